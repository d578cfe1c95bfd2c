// Package scoring evaluates checklist answers into item ratings, domain
// judgements, and overall scores. Every function here is a pure function of
// the checklist it is handed: no I/O, no shared state, and identical inputs
// always produce identical results.
package scoring

import (
	"errors"
	"fmt"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// ErrMalformed indicates a checklist is missing an item, domain, or question
// the factory guarantees to create. It signals a data-integrity bug
// upstream, never a reviewer input state.
var ErrMalformed = errors.New("malformed checklist")

// Result is the uniform scoring output across all three instruments.
// Quality-tool checklists populate Amstar; risk-of-bias checklists populate
// Domains and Overall.
type Result struct {
	Instrument models.InstrumentType
	Complete   bool

	Amstar *AmstarResult

	Domains []DomainScore
	Overall models.DomainJudgement
}

// Score dispatches on the checklist's instrument tag. An unrecognized tag
// returns catalog.ErrUnknownInstrument.
func Score(c *models.Checklist) (*Result, error) {
	switch c.Instrument {
	case models.InstrumentAmstar2:
		return scoreAmstarChecklist(c)
	case models.InstrumentRobinsI:
		return scoreDomainChecklist(c, robinsScale, robinsRules)
	case models.InstrumentRob2:
		return scoreDomainChecklist(c, rob2Scale, rob2Rules)
	}
	return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownInstrument, c.Instrument)
}

// IsComplete reports whether every item or non-optional signalling question
// on the checklist has been answered.
func IsComplete(c *models.Checklist) (bool, error) {
	res, err := Score(c)
	if err != nil {
		return false, err
	}
	return res.Complete, nil
}

// AdvanceStatus moves a checklist's lifecycle status to match its answers:
// complete once every item or non-optional question is answered, otherwise
// in progress. Superseded checklists are terminal and never change.
func AdvanceStatus(c *models.Checklist) error {
	if c.Status == models.ChecklistStatusSuperseded {
		return nil
	}
	done, err := IsComplete(c)
	if err != nil {
		return err
	}
	if done {
		c.Status = models.ChecklistStatusComplete
	} else {
		c.Status = models.ChecklistStatusInProgress
	}
	return nil
}

func scoreAmstarChecklist(c *models.Checklist) (*Result, error) {
	if c.Amstar == nil {
		return nil, fmt.Errorf("%w: amstar2 checklist has no form", ErrMalformed)
	}
	ar, err := ScoreAmstar(c.Amstar)
	if err != nil {
		return nil, err
	}
	return &Result{
		Instrument: c.Instrument,
		Complete:   ar.Complete,
		Amstar:     ar,
	}, nil
}

func scoreDomainChecklist(c *models.Checklist, scale Scale, rules map[string][]Rule) (*Result, error) {
	form := c.DomainForm()
	if form == nil {
		return nil, fmt.Errorf("%w: %s checklist has no form", ErrMalformed, c.Instrument)
	}
	def, err := catalog.Definition(c.Instrument)
	if err != nil {
		return nil, err
	}

	scores, err := ScoreAllDomains(form, def, rules)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Instrument: c.Instrument,
		Complete:   true,
		Domains:    scores,
	}
	for _, ds := range scores {
		if !ds.Complete {
			res.Complete = false
		}
	}
	res.Overall = ScoreOverall(form, scores, scale, res.Complete)
	return res, nil
}
