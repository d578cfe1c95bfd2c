package scoring

import "github.com/corates/corates/internal/models"

// robinsScale orders the ROBINS-I judgement levels from best to worst.
// No-information sits between moderate and serious: a domain judged serious
// or critical stays the worst answer even when another domain lacks
// information.
var robinsScale = Scale{
	models.RiskLow:           0,
	models.RiskModerate:      1,
	models.RiskNoInformation: 2,
	models.RiskSerious:       3,
	models.RiskCritical:      4,
}

// robinsRules are the per-domain decision tables for ROBINS-I. Each table is
// ordered; the first matching rule wins and its ID is recorded on the domain
// score. The final rule of each table is an unconditional fallback.
var robinsRules = map[string][]Rule{
	"confounding": {
		{ID: "confounding.none", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Negative("1.1") }},
		{ID: "confounding.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("1.1", "1.4", "1.6") }},
		{ID: "confounding.post_intervention", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Affirmative("1.6") }},
		{ID: "confounding.uncontrolled", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Negative("1.4") }},
		{ID: "confounding.controlled", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return a.Affirmative("1.4") }},
		{ID: "confounding.fallback", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return true }},
	},
	"selection": {
		{ID: "selection.none", Judgement: models.RiskLow,
			When: func(a Answers) bool { return a.Negative("2.1") && a.Affirmative("2.4") }},
		{ID: "selection.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("2.1", "2.4") }},
		{ID: "selection.outcome_related", Judgement: models.RiskCritical,
			When: func(a Answers) bool {
				return a.Affirmative("2.1") && a.Affirmative("2.2") && a.Affirmative("2.3")
			}},
		{ID: "selection.adjusted", Judgement: models.RiskModerate,
			When: func(a Answers) bool {
				return (a.Affirmative("2.1") || a.Negative("2.4")) && a.Affirmative("2.5")
			}},
		{ID: "selection.unadjusted", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Affirmative("2.1") || a.Negative("2.4") }},
		{ID: "selection.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
	"classification": {
		{ID: "classification.well_defined", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Affirmative("3.1") && a.Affirmative("3.2") && a.Negative("3.3")
			}},
		{ID: "classification.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("3.1", "3.2", "3.3") }},
		{ID: "classification.outcome_influenced", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Affirmative("3.3") }},
		{ID: "classification.poorly_defined", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Negative("3.1") }},
		{ID: "classification.retrospective", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return a.Negative("3.2") }},
		{ID: "classification.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
	"deviations": {
		{ID: "deviations.none", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Negative("4.1") && a.Affirmative("4.3") && a.Affirmative("4.4") && a.Affirmative("4.5")
			}},
		{ID: "deviations.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("4.1", "4.3", "4.4", "4.5") }},
		{ID: "deviations.unbalanced_unadjusted", Judgement: models.RiskCritical,
			When: func(a Answers) bool {
				return a.Affirmative("4.1") && a.Affirmative("4.2") && a.Negative("4.6")
			}},
		{ID: "deviations.unbalanced", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Affirmative("4.1") && a.Affirmative("4.2") }},
		{ID: "deviations.cointerventions", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Negative("4.3") }},
		{ID: "deviations.implementation_adjusted", Judgement: models.RiskModerate,
			When: func(a Answers) bool {
				return (a.Negative("4.4") || a.Negative("4.5")) && a.Affirmative("4.6")
			}},
		{ID: "deviations.implementation", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Negative("4.4") || a.Negative("4.5") }},
		{ID: "deviations.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
	"missing_data": {
		{ID: "missing_data.complete", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Affirmative("5.1") && a.Negative("5.2") && a.Negative("5.3")
			}},
		{ID: "missing_data.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("5.1", "5.2", "5.3") }},
		{ID: "missing_data.robust", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return a.Affirmative("5.5") }},
		{ID: "missing_data.balanced", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return a.Affirmative("5.4") }},
		{ID: "missing_data.excluded", Judgement: models.RiskSerious,
			When: func(a Answers) bool {
				return a.Negative("5.1") || a.Affirmative("5.2") || a.Affirmative("5.3")
			}},
		{ID: "missing_data.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
	"measurement": {
		{ID: "measurement.blind", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Negative("6.1") && a.Negative("6.2") && a.Affirmative("6.3") && a.Negative("6.4")
			}},
		{ID: "measurement.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("6.1", "6.2", "6.3", "6.4") }},
		{ID: "measurement.differential", Judgement: models.RiskCritical,
			When: func(a Answers) bool { return a.Affirmative("6.4") }},
		{ID: "measurement.influenced", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Affirmative("6.1") && a.Affirmative("6.2") }},
		{ID: "measurement.incomparable", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.Negative("6.3") }},
		{ID: "measurement.assessors_aware", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return a.Affirmative("6.2") }},
		{ID: "measurement.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
	"reporting": {
		{ID: "reporting.none", Judgement: models.RiskLow,
			When: func(a Answers) bool {
				return a.Negative("7.1") && a.Negative("7.2") && a.Negative("7.3")
			}},
		{ID: "reporting.no_information", Judgement: models.RiskNoInformation,
			When: func(a Answers) bool { return a.AllNoInformation("7.1", "7.2", "7.3") }},
		{ID: "reporting.multiple_selected", Judgement: models.RiskCritical,
			When: func(a Answers) bool { return a.CountAffirmative("7.1", "7.2", "7.3") >= 2 }},
		{ID: "reporting.selected", Judgement: models.RiskSerious,
			When: func(a Answers) bool { return a.CountAffirmative("7.1", "7.2", "7.3") == 1 }},
		{ID: "reporting.fallback", Judgement: models.RiskModerate,
			When: func(a Answers) bool { return true }},
	},
}
