package catalog

import "github.com/corates/corates/internal/models"

// amstar2Def is the 16-item AMSTAR 2 quality tool. Critical items follow the
// published tool: q2, q4, q7, q9, q11, q13, q15. Items with a Partial
// sub-question subset can rate Partial Yes when only that subset is met.
var amstar2Def = &InstrumentDef{
	Instrument: models.InstrumentAmstar2,
	Name:       "AMSTAR 2",
	Items: []ItemDef{
		{
			ID:       "q1",
			Label:    "Did the research questions and inclusion criteria for the review include the components of PICO?",
			Guidance: "All four PICO components must be addressed in the research question or inclusion criteria.",
			SubQuestions: []SubQuestion{
				{ID: "population", Label: "Population"},
				{ID: "intervention", Label: "Intervention"},
				{ID: "comparator", Label: "Comparator group"},
				{ID: "outcome", Label: "Outcome"},
			},
		},
		{
			ID:       "q2",
			Label:    "Did the report contain an explicit statement that the review methods were established prior to the conduct of the review, and did the report justify any significant deviations from the protocol?",
			Guidance: "Partial Yes requires a stated protocol with research question, search strategy, and inclusion/exclusion criteria set out in advance.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "protocol", Label: "Protocol registered before commencement of the review", Partial: true},
				{ID: "questions", Label: "Research questions and inclusion criteria stated in advance", Partial: true},
				{ID: "analysis_plan", Label: "Planned analysis/synthesis strategy stated in advance", Partial: true},
				{ID: "deviations", Label: "Deviations from the protocol justified"},
			},
		},
		{
			ID:       "q3",
			Label:    "Did the review authors explain their selection of the study designs for inclusion in the review?",
			Guidance: "An explanation is required for restricting to RCTs, to NRSI, or for including both.",
			SubQuestions: []SubQuestion{
				{ID: "explained", Label: "Selection of study designs explained"},
			},
		},
		{
			ID:       "q4",
			Label:    "Did the review authors use a comprehensive literature search strategy?",
			Guidance: "Partial Yes requires at least two databases, keyword/search strategy reported, and justified restrictions.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "databases", Label: "Searched at least two relevant databases", Partial: true},
				{ID: "keywords", Label: "Provided keywords and/or full search strategy", Partial: true},
				{ID: "restrictions", Label: "Justified any publication restrictions (e.g. language)", Partial: true},
				{ID: "references", Label: "Searched reference lists of included studies"},
				{ID: "registries", Label: "Searched trial/study registries"},
				{ID: "experts", Label: "Consulted content experts or searched grey literature"},
			},
		},
		{
			ID:       "q5",
			Label:    "Did the review authors perform study selection in duplicate?",
			Guidance: "Two reviewers independently selecting studies, with a consensus process, or acceptable agreement checks.",
			SubQuestions: []SubQuestion{
				{ID: "duplicate", Label: "Study selection performed in duplicate"},
			},
		},
		{
			ID:       "q6",
			Label:    "Did the review authors perform data extraction in duplicate?",
			Guidance: "Two reviewers independently extracting data, with a consensus process, or acceptable agreement checks.",
			SubQuestions: []SubQuestion{
				{ID: "duplicate", Label: "Data extraction performed in duplicate"},
			},
		},
		{
			ID:       "q7",
			Label:    "Did the review authors provide a list of excluded studies and justify the exclusions?",
			Guidance: "Partial Yes requires a list of all potentially relevant studies read in full text but excluded.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "list", Label: "Provided a list of excluded full-text studies", Partial: true},
				{ID: "justified", Label: "Justified each exclusion from the review"},
			},
		},
		{
			ID:       "q8",
			Label:    "Did the review authors describe the included studies in adequate detail?",
			Guidance: "Partial Yes requires populations, interventions, comparators, outcomes, and study designs described.",
			SubQuestions: []SubQuestion{
				{ID: "pico", Label: "Described populations, interventions, comparators, outcomes", Partial: true},
				{ID: "designs", Label: "Described research designs", Partial: true},
				{ID: "detail", Label: "Described setting and follow-up in detail"},
			},
		},
		{
			ID:       "q9",
			Label:    "Did the review authors use a satisfactory technique for assessing the risk of bias in individual studies that were included in the review?",
			Guidance: "Partial Yes requires assessment of unconcealed allocation and lack of blinding (RCTs) or confounding and selection bias (NRSI).",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "allocation", Label: "Assessed bias from unconcealed allocation / confounding", Partial: true},
				{ID: "blinding", Label: "Assessed bias from lack of blinding / selection", Partial: true},
				{ID: "other_sources", Label: "Assessed bias from other relevant sources (selective reporting, analysis)"},
			},
		},
		{
			ID:       "q10",
			Label:    "Did the review authors report on the sources of funding for the studies included in the review?",
			Guidance: "Must report funding sources for individual included studies, or note that none was reported.",
			SubQuestions: []SubQuestion{
				{ID: "reported", Label: "Funding sources of included studies reported"},
			},
		},
		{
			ID:       "q11",
			Label:    "If meta-analysis was performed, did the review authors use appropriate methods for statistical combination of results?",
			Guidance: "Weighted technique, appropriate heterogeneity adjustment, and justified combination of study designs.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "weighting", Label: "Used a justified weighted technique to combine results"},
				{ID: "heterogeneity", Label: "Adjusted or investigated causes of heterogeneity"},
			},
		},
		{
			ID:       "q12",
			Label:    "If meta-analysis was performed, did the review authors assess the potential impact of risk of bias in individual studies on the results of the meta-analysis or other evidence synthesis?",
			Guidance: "Only low-risk studies included, or analysis of the possible impact of risk of bias on summary estimates.",
			SubQuestions: []SubQuestion{
				{ID: "assessed", Label: "Impact of risk of bias on synthesized results assessed"},
			},
		},
		{
			ID:       "q13",
			Label:    "Did the review authors account for risk of bias in individual studies when interpreting/discussing the results of the review?",
			Guidance: "Only low-risk studies included, or discussion of the likely impact of risk of bias on the results.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "accounted", Label: "Risk of bias accounted for when interpreting results"},
			},
		},
		{
			ID:       "q14",
			Label:    "Did the review authors provide a satisfactory explanation for, and discussion of, any heterogeneity observed in the results of the review?",
			Guidance: "No significant heterogeneity, or sources investigated and impact discussed.",
			SubQuestions: []SubQuestion{
				{ID: "explained", Label: "Heterogeneity explained and discussed"},
			},
		},
		{
			ID:       "q15",
			Label:    "If they performed quantitative synthesis, did the review authors carry out an adequate investigation of publication bias (small study bias) and discuss its likely impact on the results of the review?",
			Guidance: "Graphical or statistical tests for publication bias plus discussion of its likely impact.",
			Critical: true,
			SubQuestions: []SubQuestion{
				{ID: "investigated", Label: "Publication bias investigated"},
				{ID: "discussed", Label: "Likely impact on results discussed"},
			},
		},
		{
			ID:       "q16",
			Label:    "Did the review authors report any potential sources of conflict of interest, including any funding they received for conducting the review?",
			Guidance: "Must report no conflicts, or describe funding sources and how conflicts were managed.",
			SubQuestions: []SubQuestion{
				{ID: "reported", Label: "Conflicts of interest and review funding reported"},
			},
		},
	},
}
