package catalog

import "github.com/corates/corates/internal/models"

// rob2Def is the RoB 2 tool for randomized trials: five bias domains with a
// three-tier judgement scale. RoB 2 has no not-applicable response option.
var rob2Def = &InstrumentDef{
	Instrument: models.InstrumentRob2,
	Name:       "RoB 2",
	Domains: []DomainDef{
		{
			ID:       "randomization",
			Label:    "Bias arising from the randomization process",
			Guidance: "Random sequence generation, allocation concealment, and baseline imbalances.",
			Questions: []SignallingQuestion{
				{ID: "1.1", Label: "Was the allocation sequence random?"},
				{ID: "1.2", Label: "Was the allocation sequence concealed until participants were enrolled and assigned to interventions?"},
				{ID: "1.3", Label: "Did baseline differences between intervention groups suggest a problem with the randomization process?"},
			},
		},
		{
			ID:       "deviations",
			Label:    "Bias due to deviations from intended interventions",
			Guidance: "Effect of assignment to intervention: blinding of participants and carers, and deviations arising from the trial context.",
			Questions: []SignallingQuestion{
				{ID: "2.1", Label: "Were participants aware of their assigned intervention during the trial?"},
				{ID: "2.2", Label: "Were carers and people delivering the interventions aware of participants' assigned intervention during the trial?"},
				{ID: "2.3", Label: "Were there deviations from the intended intervention that arose because of the trial context?", Optional: true},
				{ID: "2.4", Label: "Were these deviations likely to have affected the outcome?", Optional: true},
				{ID: "2.5", Label: "Were these deviations from intended intervention balanced between groups?", Optional: true},
				{ID: "2.6", Label: "Was an appropriate analysis used to estimate the effect of assignment to intervention?"},
				{ID: "2.7", Label: "Was there potential for a substantial impact (on the result) of the failure to analyse participants in the group to which they were randomized?", Optional: true},
			},
		},
		{
			ID:       "missing_data",
			Label:    "Bias due to missing outcome data",
			Guidance: "Availability of outcome data and dependence of missingness on its true value.",
			Questions: []SignallingQuestion{
				{ID: "3.1", Label: "Were data for this outcome available for all, or nearly all, participants randomized?"},
				{ID: "3.2", Label: "Is there evidence that the result was not biased by missing outcome data?", Optional: true},
				{ID: "3.3", Label: "Could missingness in the outcome depend on its true value?", Optional: true},
				{ID: "3.4", Label: "Is it likely that missingness in the outcome depended on its true value?", Optional: true},
			},
		},
		{
			ID:       "measurement",
			Label:    "Bias in measurement of the outcome",
			Guidance: "Appropriateness of the outcome measure and blinding of outcome assessors.",
			Questions: []SignallingQuestion{
				{ID: "4.1", Label: "Was the method of measuring the outcome inappropriate?"},
				{ID: "4.2", Label: "Could measurement or ascertainment of the outcome have differed between intervention groups?"},
				{ID: "4.3", Label: "Were outcome assessors aware of the intervention received by study participants?"},
				{ID: "4.4", Label: "Could assessment of the outcome have been influenced by knowledge of intervention received?", Optional: true},
				{ID: "4.5", Label: "Is it likely that assessment of the outcome was influenced by knowledge of intervention received?", Optional: true},
			},
		},
		{
			ID:       "selection",
			Label:    "Bias in selection of the reported result",
			Guidance: "Pre-specified analysis plan and selection from multiple measurements or analyses.",
			Questions: []SignallingQuestion{
				{ID: "5.1", Label: "Were the data that produced this result analysed in accordance with a pre-specified analysis plan that was finalized before unblinded outcome data were available for analysis?"},
				{ID: "5.2", Label: "Is the numerical result being assessed likely to have been selected, on the basis of the results, from multiple eligible outcome measurements within the outcome domain?"},
				{ID: "5.3", Label: "Is the numerical result being assessed likely to have been selected, on the basis of the results, from multiple eligible analyses of the data?"},
			},
		},
	},
}
