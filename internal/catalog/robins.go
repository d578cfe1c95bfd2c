package catalog

import "github.com/corates/corates/internal/models"

// robinsDef is the ROBINS-I tool for non-randomized studies of
// interventions: seven bias domains, each with its signalling questions.
// Optional questions are conditional follow-ups whose applicability depends
// on earlier answers; they never gate domain completeness.
var robinsDef = &InstrumentDef{
	Instrument: models.InstrumentRobinsI,
	Name:       "ROBINS-I",
	Domains: []DomainDef{
		{
			ID:       "confounding",
			Label:    "Bias due to confounding",
			Guidance: "Baseline and time-varying confounding of the intervention-outcome relationship.",
			Questions: []SignallingQuestion{
				{ID: "1.1", Label: "Is there potential for confounding of the effect of intervention in this study?"},
				{ID: "1.2", Label: "Was the analysis based on splitting participants' follow-up time according to intervention received?", Optional: true},
				{ID: "1.3", Label: "Were intervention discontinuations or switches likely to be related to factors that are prognostic for the outcome?", Optional: true},
				{ID: "1.4", Label: "Did the authors use an appropriate analysis method that controlled for all the important confounding domains?"},
				{ID: "1.5", Label: "Were confounding domains that were controlled for measured validly and reliably?", Optional: true},
				{ID: "1.6", Label: "Did the authors control for any post-intervention variables that could have been affected by the intervention?"},
			},
		},
		{
			ID:       "selection",
			Label:    "Bias in selection of participants into the study",
			Guidance: "Selection into the study related to intervention and outcome.",
			Questions: []SignallingQuestion{
				{ID: "2.1", Label: "Was selection of participants into the study (or into the analysis) based on participant characteristics observed after the start of intervention?"},
				{ID: "2.2", Label: "Were the post-intervention variables that influenced selection likely to be associated with intervention?", Optional: true},
				{ID: "2.3", Label: "Were the post-intervention variables that influenced selection likely to be influenced by the outcome or a cause of the outcome?", Optional: true},
				{ID: "2.4", Label: "Do start of follow-up and start of intervention coincide for most participants?"},
				{ID: "2.5", Label: "Were adjustment techniques used that are likely to correct for the presence of selection biases?", Optional: true},
			},
		},
		{
			ID:       "classification",
			Label:    "Bias in classification of interventions",
			Guidance: "Misclassification of intervention status.",
			Questions: []SignallingQuestion{
				{ID: "3.1", Label: "Were intervention groups clearly defined?"},
				{ID: "3.2", Label: "Was the information used to define intervention groups recorded at the start of the intervention?"},
				{ID: "3.3", Label: "Could classification of intervention status have been affected by knowledge of the outcome or risk of the outcome?"},
			},
		},
		{
			ID:       "deviations",
			Label:    "Bias due to deviations from intended interventions",
			Guidance: "Systematic differences between intervention and comparator groups in care provided.",
			Questions: []SignallingQuestion{
				{ID: "4.1", Label: "Were there deviations from the intended intervention beyond what would be expected in usual practice?"},
				{ID: "4.2", Label: "Were these deviations from intended intervention unbalanced between groups and likely to have affected the outcome?", Optional: true},
				{ID: "4.3", Label: "Were important co-interventions balanced across intervention groups?"},
				{ID: "4.4", Label: "Was the intervention implemented successfully for most participants?"},
				{ID: "4.5", Label: "Did study participants adhere to the assigned intervention regimen?"},
				{ID: "4.6", Label: "Was an appropriate analysis used to estimate the effect of starting and adhering to the intervention?", Optional: true},
			},
		},
		{
			ID:       "missing_data",
			Label:    "Bias due to missing data",
			Guidance: "Missing outcome, intervention, or confounder data.",
			Questions: []SignallingQuestion{
				{ID: "5.1", Label: "Were outcome data available for all, or nearly all, participants?"},
				{ID: "5.2", Label: "Were participants excluded due to missing data on intervention status?"},
				{ID: "5.3", Label: "Were participants excluded due to missing data on other variables needed for the analysis?"},
				{ID: "5.4", Label: "Are the proportion of participants and reasons for missing data similar across interventions?", Optional: true},
				{ID: "5.5", Label: "Is there evidence that results were robust to the presence of missing data?", Optional: true},
			},
		},
		{
			ID:       "measurement",
			Label:    "Bias in measurement of outcomes",
			Guidance: "Differential or non-differential outcome measurement error.",
			Questions: []SignallingQuestion{
				{ID: "6.1", Label: "Could the outcome measure have been influenced by knowledge of the intervention received?"},
				{ID: "6.2", Label: "Were outcome assessors aware of the intervention received by study participants?"},
				{ID: "6.3", Label: "Were the methods of outcome assessment comparable across intervention groups?"},
				{ID: "6.4", Label: "Were any systematic errors in measurement of the outcome related to intervention received?"},
			},
		},
		{
			ID:       "reporting",
			Label:    "Bias in selection of the reported result",
			Guidance: "Selective reporting from multiple measurements, analyses, or subgroups.",
			Questions: []SignallingQuestion{
				{ID: "7.1", Label: "Is the reported effect estimate likely to be selected, on the basis of the results, from multiple outcome measurements within the outcome domain?"},
				{ID: "7.2", Label: "Is the reported effect estimate likely to be selected, on the basis of the results, from multiple analyses of the intervention-outcome relationship?"},
				{ID: "7.3", Label: "Is the reported effect estimate likely to be selected, on the basis of the results, from different subgroups?"},
			},
		},
	},
}
