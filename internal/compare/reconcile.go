package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// ErrUnresolved is returned when reconciliation is invoked with a
// discrepant or incomplete entry that has no resolution. Reconciliation is
// all-or-nothing: no partial checklist is ever produced.
var ErrUnresolved = errors.New("unresolved discrepancies")

// Resolution is a reviewer-supplied consensus answer for one discrepant or
// incomplete item/domain. Answers applies to quality-tool items, Responses
// to risk-of-bias domains. Judgement optionally records a consensus manual
// override for the domain.
type Resolution struct {
	Answers   map[string]models.BoolAnswer
	Responses map[string]models.Response
	Comment   string
	Judgement *models.DomainJudgement
}

// Reconcile builds the consensus checklist from two double-coded
// checklists. Agreed items and domains are copied from the sources
// unchanged; every discrepant or incomplete entry must have a resolution
// that fully answers it. The result carries both source identifiers as
// provenance and re-enters the ordinary scoring path like any other
// checklist.
func Reconcile(a, b *models.Checklist, resolutions map[string]Resolution, meta models.ChecklistMeta) (*models.Checklist, error) {
	report, err := Checklists(a, b)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range report.DiscrepantKeys() {
		if _, ok := resolutions[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(missing, ", "))
	}

	meta.StudyID = a.StudyID
	merged, err := catalog.NewChecklist(a.Instrument, meta)
	if err != nil {
		return nil, err
	}
	merged.SourceChecklists = []string{a.ID, b.ID}
	merged.Status = models.ChecklistStatusInProgress

	def, err := catalog.Definition(a.Instrument)
	if err != nil {
		return nil, err
	}

	switch a.Instrument {
	case models.InstrumentAmstar2:
		err = mergeAmstar(merged.Amstar, a.Amstar, report, resolutions, def)
	case models.InstrumentRobinsI, models.InstrumentRob2:
		copyPreliminary(merged, a)
		err = mergeDomains(merged.DomainForm(), a.DomainForm(), report, resolutions, def)
	}
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeAmstar(dst, src *models.AmstarForm, report *Report, resolutions map[string]Resolution, def *catalog.InstrumentDef) error {
	for _, entry := range report.Entries {
		item := dst.Items[entry.Key]
		itemDef, _ := def.ItemDef(entry.Key)

		if entry.Status == StatusAgree {
			srcItem := src.Items[entry.Key]
			for id, v := range srcItem.Answers {
				item.Answers[id] = v
			}
			item.Comment = srcItem.Comment
			continue
		}

		res := resolutions[entry.Key]
		for id, v := range res.Answers {
			if _, ok := item.Answers[id]; !ok {
				return fmt.Errorf("resolution for %s has unknown sub-question %s", entry.Key, id)
			}
			if !v.Answered() {
				return fmt.Errorf("resolution for %s sub-question %s: invalid answer %q", entry.Key, id, v)
			}
			item.Answers[id] = v
		}
		item.Comment = res.Comment
		for _, sq := range itemDef.SubQuestions {
			if !item.Answers[sq.ID].Answered() {
				return fmt.Errorf("%w: resolution for %s leaves %s unanswered", ErrUnresolved, entry.Key, sq.ID)
			}
		}
	}
	return nil
}

func mergeDomains(dst, src *models.DomainSet, report *Report, resolutions map[string]Resolution, def *catalog.InstrumentDef) error {
	for _, entry := range report.Entries {
		dom := dst.Domains[entry.Key]
		domDef, _ := def.DomainDef(entry.Key)

		if entry.Status == StatusAgree {
			srcDom := src.Domains[entry.Key]
			for id, ans := range srcDom.Answers {
				dom.Answers[id] = ans
			}
			dom.Judgement = srcDom.Judgement
			continue
		}

		res := resolutions[entry.Key]
		for id, resp := range res.Responses {
			if _, ok := dom.Answers[id]; !ok {
				return fmt.Errorf("resolution for %s has unknown question %s", entry.Key, id)
			}
			if !resp.ValidFor(def.Instrument) {
				return fmt.Errorf("resolution for %s question %s: invalid response %q", entry.Key, id, resp)
			}
			dom.Answers[id] = models.SignalAnswer{Response: resp, Comment: res.Comment}
		}
		for _, q := range domDef.Questions {
			if !q.Optional && !dom.Answers[q.ID].Response.Answered() {
				return fmt.Errorf("%w: resolution for %s leaves %s unanswered", ErrUnresolved, entry.Key, q.ID)
			}
		}
		if res.Judgement != nil {
			dom.Judgement = *res.Judgement
		}
	}
	return nil
}

// copyPreliminary carries the unscored free-text sections over from the
// first reviewer's checklist.
func copyPreliminary(dst, src *models.Checklist) {
	switch {
	case dst.Robins != nil && src.Robins != nil:
		dst.Robins.ResultDescription = src.Robins.ResultDescription
		dst.Robins.TargetTrial = src.Robins.TargetTrial
	case dst.Rob2 != nil && src.Rob2 != nil:
		dst.Rob2.ResultDescription = src.Rob2.ResultDescription
	}
}
