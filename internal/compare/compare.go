// Package compare implements double-coding support: structural comparison
// of two independently completed checklists and construction of the merged,
// reconciled checklist. Like scoring, everything here is a pure function of
// its inputs.
package compare

import (
	"errors"
	"fmt"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// ErrInstrumentMismatch is returned when the two checklists were filled in
// against different instruments.
var ErrInstrumentMismatch = errors.New("checklists use different instruments")

// ErrStudyMismatch is returned when the two checklists appraise different
// studies.
var ErrStudyMismatch = errors.New("checklists target different studies")

// EntryStatus classifies one item or domain of the comparison.
type EntryStatus string

const (
	StatusAgree      EntryStatus = "agree"
	StatusDiscrepant EntryStatus = "discrepant"
	StatusIncomplete EntryStatus = "incomplete"
)

// FieldDiff records one differing answer within a discrepant entry.
type FieldDiff struct {
	ID string // sub-question or signalling-question id, or "judgement"
	A  string
	B  string
}

// Entry is the comparison outcome for one item or domain.
type Entry struct {
	Key    string
	Status EntryStatus
	Diffs  []FieldDiff // populated for discrepant entries
}

// Report is the structured output of comparing two checklists. Entries
// follow catalog order. AgreementRate excludes incomplete entries from the
// denominator; it is zero when nothing was comparable.
type Report struct {
	Instrument    models.InstrumentType
	StudyID       string
	AID           string
	BID           string
	Entries       []Entry
	Agree         int
	Discrepant    int
	Incomplete    int
	AgreementRate float64
}

// Checklists compares two checklists of the same instrument and study,
// classifying every item or domain as agree, discrepant, or incomplete.
// Comparison is symmetric: swapping a and b flips the diff sides but never
// changes any entry's status.
func Checklists(a, b *models.Checklist) (*Report, error) {
	if a.Instrument != b.Instrument {
		return nil, fmt.Errorf("%w: %s vs %s", ErrInstrumentMismatch, a.Instrument, b.Instrument)
	}
	if a.StudyID != b.StudyID {
		return nil, fmt.Errorf("%w: %s vs %s", ErrStudyMismatch, a.StudyID, b.StudyID)
	}
	def, err := catalog.Definition(a.Instrument)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Instrument: a.Instrument,
		StudyID:    a.StudyID,
		AID:        a.ID,
		BID:        b.ID,
	}

	switch a.Instrument {
	case models.InstrumentAmstar2:
		err = compareAmstar(r, def, a.Amstar, b.Amstar)
	case models.InstrumentRobinsI, models.InstrumentRob2:
		err = compareDomains(r, def, a.DomainForm(), b.DomainForm())
	}
	if err != nil {
		return nil, err
	}

	for _, e := range r.Entries {
		switch e.Status {
		case StatusAgree:
			r.Agree++
		case StatusDiscrepant:
			r.Discrepant++
		case StatusIncomplete:
			r.Incomplete++
		}
	}
	if n := r.Agree + r.Discrepant; n > 0 {
		r.AgreementRate = float64(r.Agree) / float64(n)
	}
	return r, nil
}

// DiscrepantKeys returns the keys of all entries needing a resolution
// (discrepant or incomplete), in catalog order.
func (r *Report) DiscrepantKeys() []string {
	var keys []string
	for _, e := range r.Entries {
		if e.Status != StatusAgree {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

func compareAmstar(r *Report, def *catalog.InstrumentDef, fa, fb *models.AmstarForm) error {
	if fa == nil || fb == nil {
		return fmt.Errorf("amstar2 checklist has no form")
	}
	for _, itemDef := range def.Items {
		ia, ok := fa.Items[itemDef.ID]
		if !ok {
			return fmt.Errorf("checklist %s missing item %s", r.AID, itemDef.ID)
		}
		ib, ok := fb.Items[itemDef.ID]
		if !ok {
			return fmt.Errorf("checklist %s missing item %s", r.BID, itemDef.ID)
		}

		// A missing sub-answer key is form corruption, not an unanswered
		// question; the reserved unanswered value covers the latter.
		for _, sq := range itemDef.SubQuestions {
			if _, ok := ia.Answers[sq.ID]; !ok {
				return fmt.Errorf("checklist %s item %s missing sub-answer %s", r.AID, itemDef.ID, sq.ID)
			}
			if _, ok := ib.Answers[sq.ID]; !ok {
				return fmt.Errorf("checklist %s item %s missing sub-answer %s", r.BID, itemDef.ID, sq.ID)
			}
		}

		entry := Entry{Key: itemDef.ID, Status: StatusAgree}
		if !ia.Answered() || !ib.Answered() {
			entry.Status = StatusIncomplete
		} else {
			for _, sq := range itemDef.SubQuestions {
				if ia.Answers[sq.ID] != ib.Answers[sq.ID] {
					entry.Status = StatusDiscrepant
					entry.Diffs = append(entry.Diffs, FieldDiff{
						ID: sq.ID,
						A:  string(ia.Answers[sq.ID]),
						B:  string(ib.Answers[sq.ID]),
					})
				}
			}
		}
		r.Entries = append(r.Entries, entry)
	}
	return nil
}

func compareDomains(r *Report, def *catalog.InstrumentDef, fa, fb *models.DomainSet) error {
	if fa == nil || fb == nil {
		return fmt.Errorf("%s checklist has no form", r.Instrument)
	}
	for _, domDef := range def.Domains {
		da, ok := fa.Domains[domDef.ID]
		if !ok {
			return fmt.Errorf("checklist %s missing domain %s", r.AID, domDef.ID)
		}
		db, ok := fb.Domains[domDef.ID]
		if !ok {
			return fmt.Errorf("checklist %s missing domain %s", r.BID, domDef.ID)
		}

		for _, q := range domDef.Questions {
			if _, ok := da.Answers[q.ID]; !ok {
				return fmt.Errorf("checklist %s domain %s missing question %s", r.AID, domDef.ID, q.ID)
			}
			if _, ok := db.Answers[q.ID]; !ok {
				return fmt.Errorf("checklist %s domain %s missing question %s", r.BID, domDef.ID, q.ID)
			}
		}

		entry := Entry{Key: domDef.ID, Status: StatusAgree}
		if !domainAnswered(da, domDef) || !domainAnswered(db, domDef) {
			entry.Status = StatusIncomplete
		} else {
			for _, q := range domDef.Questions {
				ra := da.Answers[q.ID].Response
				rb := db.Answers[q.ID].Response
				if ra != rb {
					entry.Status = StatusDiscrepant
					entry.Diffs = append(entry.Diffs, FieldDiff{ID: q.ID, A: string(ra), B: string(rb)})
				}
			}
			// A manual override is part of the reviewer's verdict: if either
			// side overrode the judgement, both must carry the same one.
			if da.Judgement.Source == models.JudgementManual || db.Judgement.Source == models.JudgementManual {
				if da.Judgement.Source != db.Judgement.Source || da.Judgement.Judgement != db.Judgement.Judgement {
					entry.Status = StatusDiscrepant
					entry.Diffs = append(entry.Diffs, FieldDiff{
						ID: "judgement",
						A:  judgementLabel(da.Judgement),
						B:  judgementLabel(db.Judgement),
					})
				}
			}
		}
		r.Entries = append(r.Entries, entry)
	}
	return nil
}

// domainAnswered mirrors scoring completeness: every non-optional
// signalling question answered.
func domainAnswered(d *models.Domain, def catalog.DomainDef) bool {
	for _, q := range def.Questions {
		if !q.Optional && !d.Answers[q.ID].Response.Answered() {
			return false
		}
	}
	return true
}

func judgementLabel(j models.DomainJudgement) string {
	if j.Source == models.JudgementManual {
		return string(j.Judgement) + " (manual)"
	}
	return string(j.Effective())
}
