package scoring

import (
	"fmt"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// ItemScore is the scoring outcome for one quality-tool item.
type ItemScore struct {
	ItemID   string
	Rating   models.AmstarItemRating
	Critical bool
	Weakness bool
}

// AmstarResult is the full quality-tool scoring output.
type AmstarResult struct {
	Rating                models.AmstarRating
	Complete              bool
	CriticalWeaknesses    int
	NonCriticalWeaknesses int
	Items                 []ItemScore
}

// ScoreAmstar evaluates a quality-tool form. Weaknesses are counted per
// item: an item is a weakness when its sub-answers fail the catalog's pass
// rule (rating No; a Partial Yes is not a weakness). The overall rating
// applies the critical-flaw rule first: more than one critical weakness is
// critically low, exactly one is low regardless of the non-critical count,
// otherwise more than one non-critical weakness is moderate and anything
// else is high. An unanswered item anywhere yields Incomplete.
func ScoreAmstar(form *models.AmstarForm) (*AmstarResult, error) {
	def, err := catalog.Definition(models.InstrumentAmstar2)
	if err != nil {
		return nil, err
	}

	res := &AmstarResult{
		Complete: true,
		Items:    make([]ItemScore, 0, len(def.Items)),
	}

	for _, itemDef := range def.Items {
		item, ok := form.Items[itemDef.ID]
		if !ok {
			return nil, fmt.Errorf("%w: missing item %s", ErrMalformed, itemDef.ID)
		}
		is, err := scoreItem(item, itemDef)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, is)

		if is.Rating == models.AmstarItemUnanswered {
			res.Complete = false
			continue
		}
		if is.Weakness {
			if is.Critical {
				res.CriticalWeaknesses++
			} else {
				res.NonCriticalWeaknesses++
			}
		}
	}

	res.Rating = overallRating(res)
	return res, nil
}

// scoreItem rates a single item from its sub-answers: Yes when all are yes,
// Partial Yes when the partial subset is fully yes, otherwise No. The
// critical flag comes from the catalog, never from the record.
func scoreItem(item *models.AmstarItem, def catalog.ItemDef) (ItemScore, error) {
	is := ItemScore{ItemID: def.ID, Critical: def.Critical}

	allYes := true
	partialYes := def.HasPartial()
	for _, sq := range def.SubQuestions {
		ans, ok := item.Answers[sq.ID]
		if !ok {
			return ItemScore{}, fmt.Errorf("%w: item %s missing sub-answer %s", ErrMalformed, def.ID, sq.ID)
		}
		if !ans.Answered() {
			is.Rating = models.AmstarItemUnanswered
			return is, nil
		}
		if ans != models.BoolYes {
			allYes = false
			if sq.Partial {
				partialYes = false
			}
		}
	}

	switch {
	case allYes:
		is.Rating = models.AmstarItemYes
	case partialYes:
		is.Rating = models.AmstarItemPartialYes
	default:
		is.Rating = models.AmstarItemNo
		is.Weakness = true
	}
	return is, nil
}

// overallRating applies the ordered rating rule; first match wins.
func overallRating(res *AmstarResult) models.AmstarRating {
	if !res.Complete {
		return models.AmstarIncomplete
	}
	switch {
	case res.CriticalWeaknesses > 1:
		return models.AmstarCriticallyLow
	case res.CriticalWeaknesses == 1:
		return models.AmstarLow
	case res.NonCriticalWeaknesses > 1:
		return models.AmstarModerate
	default:
		return models.AmstarHigh
	}
}
