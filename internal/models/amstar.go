package models

// AmstarRating is the overall confidence rating produced by the quality
// tool. Incomplete is a first-class result for partially answered
// checklists, not an error.
type AmstarRating string

const (
	AmstarHigh          AmstarRating = "high"
	AmstarModerate      AmstarRating = "moderate"
	AmstarLow           AmstarRating = "low"
	AmstarCriticallyLow AmstarRating = "critically_low"
	AmstarIncomplete    AmstarRating = "incomplete"
)

// AmstarItemRating is the per-item rating derived from an item's
// sub-answers.
type AmstarItemRating string

const (
	AmstarItemYes        AmstarItemRating = "yes"
	AmstarItemPartialYes AmstarItemRating = "partial_yes"
	AmstarItemNo         AmstarItemRating = "no"
	AmstarItemUnanswered AmstarItemRating = "unanswered"
)

// AmstarItem holds a single item's sub-answers, keyed by sub-question id.
// Critical is stamped from the instrument definition at creation and is not
// reviewer-editable; the scoring engine reads the flag from the catalog, so
// a tampered copy here cannot change the rating.
type AmstarItem struct {
	Answers  map[string]BoolAnswer
	Critical bool
	Comment  string
}

// Answered reports whether every sub-answer has been filled in.
func (i *AmstarItem) Answered() bool {
	for _, a := range i.Answers {
		if !a.Answered() {
			return false
		}
	}
	return true
}

// AmstarForm is the 16-item quality-tool checklist body, keyed by item id
// (q1..q16).
type AmstarForm struct {
	Items map[string]*AmstarItem
}
