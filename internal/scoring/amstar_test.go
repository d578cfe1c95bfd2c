package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// newAmstarForm returns a factory-built form with every sub-answer yes.
func newAmstarForm(t *testing.T) *models.AmstarForm {
	t.Helper()
	c, err := catalog.NewChecklist(models.InstrumentAmstar2, models.ChecklistMeta{ID: "test"})
	require.NoError(t, err)
	for _, item := range c.Amstar.Items {
		for id := range item.Answers {
			item.Answers[id] = models.BoolYes
		}
	}
	return c.Amstar
}

// failItem sets every sub-answer of an item to no.
func failItem(form *models.AmstarForm, itemID string) {
	for id := range form.Items[itemID].Answers {
		form.Items[itemID].Answers[id] = models.BoolNo
	}
}

func TestScoreAmstar_AllYes_High(t *testing.T) {
	form := newAmstarForm(t)

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, models.AmstarHigh, res.Rating)
	assert.Zero(t, res.CriticalWeaknesses)
	assert.Zero(t, res.NonCriticalWeaknesses)
	require.Len(t, res.Items, 16)
	for _, is := range res.Items {
		assert.Equal(t, models.AmstarItemYes, is.Rating, "item %s", is.ItemID)
	}
}

func TestScoreAmstar_OneCriticalThreeNonCritical_Low(t *testing.T) {
	// The critical-flaw rule takes precedence over the weakness count.
	form := newAmstarForm(t)
	failItem(form, "q2") // critical
	failItem(form, "q1")
	failItem(form, "q3")
	failItem(form, "q5")

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CriticalWeaknesses)
	assert.Equal(t, 3, res.NonCriticalWeaknesses)
	assert.Equal(t, models.AmstarLow, res.Rating)
}

func TestScoreAmstar_TwoCritical_CriticallyLow(t *testing.T) {
	form := newAmstarForm(t)
	failItem(form, "q2")
	failItem(form, "q13")

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, models.AmstarCriticallyLow, res.Rating)
}

func TestScoreAmstar_NonCriticalOnly(t *testing.T) {
	tests := []struct {
		name   string
		items  []string
		rating models.AmstarRating
	}{
		{"none", nil, models.AmstarHigh},
		{"one", []string{"q1"}, models.AmstarHigh},
		{"two", []string{"q1", "q3"}, models.AmstarModerate},
		{"many", []string{"q1", "q3", "q5", "q6", "q10"}, models.AmstarModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := newAmstarForm(t)
			for _, id := range tt.items {
				failItem(form, id)
			}
			res, err := ScoreAmstar(form)
			require.NoError(t, err)
			assert.Equal(t, tt.rating, res.Rating)
		})
	}
}

func TestScoreAmstar_CriticalMonotonicity(t *testing.T) {
	// Adding a second critical weakness to a Low checklist always degrades
	// it to Critically Low, never improves it.
	form := newAmstarForm(t)
	failItem(form, "q4")

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	require.Equal(t, models.AmstarLow, res.Rating)

	failItem(form, "q9")
	res, err = ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, models.AmstarCriticallyLow, res.Rating)
}

func TestScoreAmstar_PartialYesIsNotAWeakness(t *testing.T) {
	// q2's partial subset met but the remaining sub-question failed.
	form := newAmstarForm(t)
	form.Items["q2"].Answers["deviations"] = models.BoolNo

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, models.AmstarHigh, res.Rating)
	for _, is := range res.Items {
		if is.ItemID == "q2" {
			assert.Equal(t, models.AmstarItemPartialYes, is.Rating)
			assert.False(t, is.Weakness)
		}
	}
}

func TestScoreAmstar_NoPartialSubsetMeansNo(t *testing.T) {
	// q13 has a single sub-question and no partial subset; any failure is No.
	form := newAmstarForm(t)
	form.Items["q13"].Answers["accounted"] = models.BoolNo

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CriticalWeaknesses)
	assert.Equal(t, models.AmstarLow, res.Rating)
}

func TestScoreAmstar_IncompleteGate(t *testing.T) {
	// A single unanswered sub-question anywhere yields Incomplete,
	// regardless of the other answers.
	form := newAmstarForm(t)
	failItem(form, "q2")
	failItem(form, "q4")
	form.Items["q16"].Answers["reported"] = models.BoolUnanswered

	res, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.AmstarIncomplete, res.Rating)
}

func TestScoreAmstar_MissingItemIsMalformed(t *testing.T) {
	form := newAmstarForm(t)
	delete(form.Items, "q7")

	_, err := ScoreAmstar(form)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestScoreAmstar_MissingSubAnswerIsMalformed(t *testing.T) {
	form := newAmstarForm(t)
	delete(form.Items["q1"].Answers, "outcome")

	_, err := ScoreAmstar(form)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestScoreAmstar_Deterministic(t *testing.T) {
	form := newAmstarForm(t)
	failItem(form, "q11")
	failItem(form, "q8")

	first, err := ScoreAmstar(form)
	require.NoError(t, err)
	second, err := ScoreAmstar(form)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
