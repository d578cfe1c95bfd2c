package models

import (
	"fmt"
	"time"
)

// InstrumentType identifies one of the three supported appraisal instruments.
// It is the discriminator for the checklist variant: exactly one form pointer
// on Checklist is non-nil, and it must match this tag.
type InstrumentType string

const (
	InstrumentAmstar2 InstrumentType = "amstar2"
	InstrumentRobinsI InstrumentType = "robins_i"
	InstrumentRob2    InstrumentType = "rob2"
)

// Valid reports whether t is a known instrument.
func (t InstrumentType) Valid() bool {
	switch t {
	case InstrumentAmstar2, InstrumentRobinsI, InstrumentRob2:
		return true
	}
	return false
}

// ChecklistStatus represents the lifecycle state of a checklist.
type ChecklistStatus string

const (
	ChecklistStatusNotStarted ChecklistStatus = "not_started"
	ChecklistStatusInProgress ChecklistStatus = "in_progress"
	ChecklistStatusComplete   ChecklistStatus = "complete"
	ChecklistStatusSuperseded ChecklistStatus = "superseded"
)

// ChecklistMeta holds instrument-independent checklist metadata.
// Instrument is immutable after creation.
type ChecklistMeta struct {
	ID               string
	StudyID          string
	Instrument       InstrumentType
	Name             string
	Reviewer         string
	AssignedTo       string
	Status           ChecklistStatus
	SourceChecklists []string // IDs of the double-coded checklists this was reconciled from
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Checklist is a single appraisal record. The Instrument tag on the embedded
// meta selects which form pointer is populated; the other two are nil.
type Checklist struct {
	ChecklistMeta
	Amstar *AmstarForm
	Robins *RobinsForm
	Rob2   *Rob2Form
}

// DomainForm returns the domain-based form for risk-of-bias instruments,
// or nil for the quality tool.
func (c *Checklist) DomainForm() *DomainSet {
	switch c.Instrument {
	case InstrumentRobinsI:
		if c.Robins == nil {
			return nil
		}
		return &c.Robins.DomainSet
	case InstrumentRob2:
		if c.Rob2 == nil {
			return nil
		}
		return &c.Rob2.DomainSet
	}
	return nil
}

// ValidateAnswers checks every stored answer against the instrument's
// vocabulary. Unanswered is the only permitted non-answer value; anything
// outside the accepted set is rejected before it can reach storage or the
// scoring engine.
func (c *Checklist) ValidateAnswers() error {
	if c.Amstar != nil {
		for id, item := range c.Amstar.Items {
			for sq, a := range item.Answers {
				if a != BoolUnanswered && !a.Answered() {
					return fmt.Errorf("item %s sub-answer %s: invalid answer %q", id, sq, a)
				}
			}
		}
	}
	if ds := c.DomainForm(); ds != nil {
		for id, dom := range ds.Domains {
			for q, a := range dom.Answers {
				if a.Response != ResponseUnanswered && !a.Response.ValidFor(c.Instrument) {
					return fmt.Errorf("domain %s question %s: invalid response %q", id, q, a.Response)
				}
			}
		}
	}
	return nil
}

// Reconciled reports whether this checklist was produced by merging two
// double-coded checklists.
func (c *Checklist) Reconciled() bool {
	return len(c.SourceChecklists) > 0
}
