package scoring

import (
	"fmt"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// Rule is one row of a domain decision table: an identifier, a predicate
// over the domain's answers, and the judgement produced when the predicate
// matches. Tables are evaluated in order and the first match wins; the
// matched rule's ID is recorded for auditability.
type Rule struct {
	ID        string
	When      func(a Answers) bool
	Judgement models.RiskLevel
}

// Answers is a read-only view over a domain's signalling answers used by
// rule predicates.
type Answers map[string]models.SignalAnswer

// Affirmative reports whether the question was answered yes or probably-yes.
func (a Answers) Affirmative(id string) bool { return a[id].Response.Affirmative() }

// Negative reports whether the question was answered no or probably-no.
func (a Answers) Negative(id string) bool { return a[id].Response.Negative() }

// NoInformation reports whether the question was answered no-information.
func (a Answers) NoInformation(id string) bool {
	return a[id].Response == models.ResponseNoInformation
}

// AllNoInformation reports whether every listed question was answered
// no-information.
func (a Answers) AllNoInformation(ids ...string) bool {
	for _, id := range ids {
		if !a.NoInformation(id) {
			return false
		}
	}
	return true
}

// CountAffirmative returns how many of the listed questions were answered
// yes or probably-yes.
func (a Answers) CountAffirmative(ids ...string) int {
	n := 0
	for _, id := range ids {
		if a.Affirmative(id) {
			n++
		}
	}
	return n
}

// DomainScore is the scoring outcome for one domain.
type DomainScore struct {
	DomainID  string
	Judgement models.RiskLevel // effective: manual override when present, else auto
	Auto      models.RiskLevel // engine-computed, always exposed
	Source    models.JudgementSource
	RuleID    string
	Direction models.Direction
	Complete  bool
}

// ScoreDomain evaluates one domain against its decision table. The auto
// judgement is computed only for complete domains (all non-optional
// signalling questions answered); an incomplete domain yields an unset auto
// value. A manual override is returned unchanged as the effective judgement,
// with the auto value computed and exposed alongside it.
func ScoreDomain(dom *models.Domain, def catalog.DomainDef, rules []Rule) (DomainScore, error) {
	score := DomainScore{
		DomainID:  def.ID,
		Source:    dom.Judgement.Source,
		Direction: dom.Judgement.Direction,
		Complete:  true,
	}

	for _, q := range def.Questions {
		ans, ok := dom.Answers[q.ID]
		if !ok {
			return DomainScore{}, fmt.Errorf("%w: domain %s missing question %s", ErrMalformed, def.ID, q.ID)
		}
		if !q.Optional && !ans.Response.Answered() {
			score.Complete = false
		}
	}

	if score.Complete {
		view := Answers(dom.Answers)
		for _, r := range rules {
			if r.When(view) {
				score.Auto = r.Judgement
				score.RuleID = r.ID
				break
			}
		}
	}

	if dom.Judgement.Source == models.JudgementManual {
		score.Judgement = dom.Judgement.Judgement
	} else {
		score.Judgement = score.Auto
	}
	return score, nil
}

// ScoreAllDomains scores every domain in catalog order.
func ScoreAllDomains(form *models.DomainSet, def *catalog.InstrumentDef, rules map[string][]Rule) ([]DomainScore, error) {
	scores := make([]DomainScore, 0, len(def.Domains))
	for _, domDef := range def.Domains {
		dom, ok := form.Domains[domDef.ID]
		if !ok {
			return nil, fmt.Errorf("%w: missing domain %s", ErrMalformed, domDef.ID)
		}
		ds, err := ScoreDomain(dom, domDef, rules[domDef.ID])
		if err != nil {
			return nil, err
		}
		scores = append(scores, ds)
	}
	return scores, nil
}

// Scale orders an instrument's judgement levels from best to worst. Higher
// rank is worse.
type Scale map[models.RiskLevel]int

// Worst returns the worse of two judgements on the scale.
func (s Scale) Worst(a, b models.RiskLevel) models.RiskLevel {
	if s[b] > s[a] {
		return b
	}
	return a
}

// ScoreOverall aggregates domain scores into the overall judgement: the
// single worst effective domain judgement on the instrument's scale. A
// manual override on the overall record wins, with the worst-case value
// retained as the auto reference. The auto value is unset while any domain
// is still incomplete.
func ScoreOverall(form *models.DomainSet, scores []DomainScore, scale Scale, complete bool) models.DomainJudgement {
	overall := models.DomainJudgement{
		Source:    form.Overall.Source,
		Direction: form.Overall.Direction,
	}

	if complete {
		worst := models.RiskUnset
		for _, ds := range scores {
			if worst == models.RiskUnset {
				worst = ds.Judgement
				continue
			}
			worst = scale.Worst(worst, ds.Judgement)
		}
		overall.Auto = worst
	}

	if form.Overall.Source == models.JudgementManual {
		overall.Judgement = form.Overall.Judgement
	} else {
		overall.Judgement = overall.Auto
	}
	return overall
}
