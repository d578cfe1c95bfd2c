package models

// RiskLevel is a categorical domain or overall judgement. ROBINS-I uses
// low/moderate/serious/critical/no-information; RoB 2 uses
// low/some-concerns/high. Ordering (which level is "worse") is defined per
// instrument by the scoring engine, not here.
type RiskLevel string

const (
	RiskUnset         RiskLevel = ""
	RiskLow           RiskLevel = "low"
	RiskModerate      RiskLevel = "moderate"
	RiskSerious       RiskLevel = "serious"
	RiskCritical      RiskLevel = "critical"
	RiskSomeConcerns  RiskLevel = "some_concerns"
	RiskHigh          RiskLevel = "high"
	RiskNoInformation RiskLevel = "no_information"
)

// JudgementSource distinguishes engine-computed judgements from reviewer
// overrides.
type JudgementSource string

const (
	JudgementAuto   JudgementSource = "auto"
	JudgementManual JudgementSource = "manual"
)

// Direction indicates which way a bias likely points.
type Direction string

const (
	DirectionUnset              Direction = ""
	DirectionFavoursExperiment  Direction = "favours_experimental"
	DirectionFavoursComparator  Direction = "favours_comparator"
	DirectionTowardsNull        Direction = "towards_null"
	DirectionAwayFromNull       Direction = "away_from_null"
	DirectionUnpredictable      Direction = "unpredictable"
)

// DomainJudgement is the verdict attached to a domain (or the overall
// record). When Source is manual, Judgement holds the reviewer's value and
// Auto retains the engine-computed one so the override never loses the
// reference value. When Source is auto, the engine writes both fields.
type DomainJudgement struct {
	Judgement RiskLevel
	Source    JudgementSource
	Auto      RiskLevel
	RuleID    string // decision-table rule that produced Auto
	Direction Direction
}

// Effective returns the judgement that counts: the reviewer's when manually
// overridden, the computed one otherwise.
func (j DomainJudgement) Effective() RiskLevel {
	if j.Source == JudgementManual {
		return j.Judgement
	}
	return j.Auto
}
