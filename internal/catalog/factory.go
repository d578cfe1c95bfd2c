package catalog

import (
	"fmt"

	"github.com/corates/corates/internal/models"
)

// NewChecklist builds an empty checklist for the given instrument. Every
// item sub-answer and signalling question is initialized to the reserved
// unanswered value, so an absent answer can never be mistaken for "no
// information" or "not applicable". The caller supplies identifier and
// timestamps through meta; given identical meta the result is
// deterministic.
func NewChecklist(t models.InstrumentType, meta models.ChecklistMeta) (*models.Checklist, error) {
	def, err := Definition(t)
	if err != nil {
		return nil, err
	}

	meta.Instrument = t
	if meta.Status == "" {
		meta.Status = models.ChecklistStatusNotStarted
	}
	if meta.Name == "" {
		meta.Name = def.Name
	}

	c := &models.Checklist{ChecklistMeta: meta}

	switch t {
	case models.InstrumentAmstar2:
		form := &models.AmstarForm{Items: make(map[string]*models.AmstarItem, len(def.Items))}
		for _, item := range def.Items {
			answers := make(map[string]models.BoolAnswer, len(item.SubQuestions))
			for _, sq := range item.SubQuestions {
				answers[sq.ID] = models.BoolUnanswered
			}
			form.Items[item.ID] = &models.AmstarItem{
				Answers:  answers,
				Critical: item.Critical,
			}
		}
		c.Amstar = form

	case models.InstrumentRobinsI:
		c.Robins = &models.RobinsForm{DomainSet: newDomainSet(def)}

	case models.InstrumentRob2:
		c.Rob2 = &models.Rob2Form{DomainSet: newDomainSet(def)}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, t)
	}

	return c, nil
}

func newDomainSet(def *InstrumentDef) models.DomainSet {
	domains := make(map[string]*models.Domain, len(def.Domains))
	for _, dom := range def.Domains {
		answers := make(map[string]models.SignalAnswer, len(dom.Questions))
		for _, q := range dom.Questions {
			answers[q.ID] = models.SignalAnswer{Response: models.ResponseUnanswered}
		}
		domains[dom.ID] = &models.Domain{
			Answers:   answers,
			Judgement: models.DomainJudgement{Source: models.JudgementAuto},
		}
	}
	return models.DomainSet{
		Domains: domains,
		Overall: models.DomainJudgement{Source: models.JudgementAuto},
	}
}
