package scoring

import "github.com/corates/corates/internal/models"

// rob2Scale orders the RoB 2 three-tier judgement scale.
var rob2Scale = Scale{
	models.RiskLow:          0,
	models.RiskSomeConcerns: 1,
	models.RiskHigh:         2,
}

// rob2Rules are the per-domain decision tables for RoB 2. The scale has no
// no-information level, so missing information lands on the some-concerns
// fallback of each table.
var rob2Rules = map[string][]Rule{
	"randomization": {
		{ID: "randomization.low", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Affirmative("1.2") && !a.Affirmative("1.3") }},
		{ID: "randomization.high", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Negative("1.2") && a.Affirmative("1.3") }},
		{ID: "randomization.some_concerns", Judgement: models.RiskSomeConcerns,
			When: func(a Answers) bool { return true }},
	},
	"deviations": {
		{ID: "deviations.low_blinded", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Negative("2.1") && a.Negative("2.2") && a.Affirmative("2.6")
			}},
		{ID: "deviations.low_no_deviations", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return (a.Affirmative("2.1") || a.Affirmative("2.2")) && a.Negative("2.3") && a.Affirmative("2.6")
			}},
		{ID: "deviations.high_unbalanced", Judgement: models.RiskHigh,
			When: func(a Answers) bool {
				return a.Affirmative("2.3") && a.Affirmative("2.4") && a.Negative("2.5")
			}},
		{ID: "deviations.high_analysis", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Negative("2.6") && a.Affirmative("2.7") }},
		{ID: "deviations.some_concerns", Judgement: models.RiskSomeConcerns,
			When: func(a Answers) bool { return true }},
	},
	"missing_data": {
		{ID: "missing_data.low_complete", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Affirmative("3.1") }},
		{ID: "missing_data.low_evidence", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Affirmative("3.2") }},
		{ID: "missing_data.low_independent", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Negative("3.3") }},
		{ID: "missing_data.high", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Affirmative("3.4") }},
		{ID: "missing_data.some_concerns", Judgement: models.RiskSomeConcerns,
			When: func(a Answers) bool { return true }},
	},
	"measurement": {
		{ID: "measurement.high_inappropriate", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Affirmative("4.1") }},
		{ID: "measurement.high_differential", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Affirmative("4.2") }},
		{ID: "measurement.low_blinded", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Negative("4.1") && a.Negative("4.2") && a.Negative("4.3")
			}},
		{ID: "measurement.low_uninfluenced", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Negative("4.4") }},
		{ID: "measurement.high_influenced", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Affirmative("4.5") }},
		{ID: "measurement.some_concerns", Judgement: models.RiskSomeConcerns,
			When: func(a Answers) bool { return true }},
	},
	"selection": {
		{ID: "selection.low", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Affirmative("5.1") && a.Negative("5.2") && a.Negative("5.3")
			}},
		{ID: "selection.high", Judgement: models.RiskHigh,
			When: func(a Answers) bool { return a.Affirmative("5.2") || a.Affirmative("5.3") }},
		{ID: "selection.some_concerns", Judgement: models.RiskSomeConcerns,
			When: func(a Answers) bool { return true }},
	},
}
