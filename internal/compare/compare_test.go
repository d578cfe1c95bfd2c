package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

func newAmstar(t *testing.T, id string) *models.Checklist {
	t.Helper()
	c, err := catalog.NewChecklist(models.InstrumentAmstar2, models.ChecklistMeta{
		ID:      id,
		StudyID: "study-1",
	})
	require.NoError(t, err)
	for _, item := range c.Amstar.Items {
		for sub := range item.Answers {
			item.Answers[sub] = models.BoolYes
		}
	}
	return c
}

func newRobinsPair(t *testing.T) (*models.Checklist, *models.Checklist) {
	t.Helper()
	build := func(id string) *models.Checklist {
		c, err := catalog.NewChecklist(models.InstrumentRobinsI, models.ChecklistMeta{
			ID:      id,
			StudyID: "study-1",
		})
		require.NoError(t, err)
		for _, dom := range c.Robins.Domains {
			for q := range dom.Answers {
				dom.Answers[q] = models.SignalAnswer{Response: models.ResponseNo}
			}
		}
		return c
	}
	return build("rev-a"), build("rev-b")
}

func entryFor(t *testing.T, r *Report, key string) Entry {
	t.Helper()
	for _, e := range r.Entries {
		if e.Key == key {
			return e
		}
	}
	t.Fatalf("no entry for %s", key)
	return Entry{}
}

func TestChecklists_InstrumentMismatch(t *testing.T) {
	a := newAmstar(t, "a")
	b, err := catalog.NewChecklist(models.InstrumentRob2, models.ChecklistMeta{ID: "b", StudyID: "study-1"})
	require.NoError(t, err)

	_, err = Checklists(a, b)
	assert.ErrorIs(t, err, ErrInstrumentMismatch)
}

func TestChecklists_StudyMismatch(t *testing.T) {
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")
	b.StudyID = "study-2"

	_, err := Checklists(a, b)
	assert.ErrorIs(t, err, ErrStudyMismatch)
}

func TestChecklists_FullAgreement(t *testing.T) {
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, 16, r.Agree)
	assert.Zero(t, r.Discrepant)
	assert.Zero(t, r.Incomplete)
	assert.Equal(t, 1.0, r.AgreementRate)
	assert.Equal(t, "a", r.AID)
	assert.Equal(t, "b", r.BID)
	assert.Empty(t, r.DiscrepantKeys())
}

func TestChecklists_AmstarDiscrepancy(t *testing.T) {
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")
	b.Amstar.Items["q4"].Answers["registries"] = models.BoolNo

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, 15, r.Agree)
	assert.Equal(t, 1, r.Discrepant)

	e := entryFor(t, r, "q4")
	assert.Equal(t, StatusDiscrepant, e.Status)
	require.Len(t, e.Diffs, 1)
	assert.Equal(t, "registries", e.Diffs[0].ID)
	assert.Equal(t, "yes", e.Diffs[0].A)
	assert.Equal(t, "no", e.Diffs[0].B)

	assert.InDelta(t, 15.0/16.0, r.AgreementRate, 1e-9)
}

func TestChecklists_IncompleteExcludedFromRate(t *testing.T) {
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")
	a.Amstar.Items["q1"].Answers["outcome"] = models.BoolUnanswered
	b.Amstar.Items["q3"].Answers["explained"] = models.BoolNo

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, 14, r.Agree)
	assert.Equal(t, 1, r.Discrepant)
	assert.Equal(t, 1, r.Incomplete)
	assert.InDelta(t, 14.0/15.0, r.AgreementRate, 1e-9)
	assert.Equal(t, StatusIncomplete, entryFor(t, r, "q1").Status)
}

func TestChecklists_Symmetry(t *testing.T) {
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")
	b.Amstar.Items["q2"].Answers["protocol"] = models.BoolNo
	b.Amstar.Items["q9"].Answers["blinding"] = models.BoolNo
	a.Amstar.Items["q12"].Answers["assessed"] = models.BoolUnanswered

	ab, err := Checklists(a, b)
	require.NoError(t, err)
	ba, err := Checklists(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab.DiscrepantKeys(), ba.DiscrepantKeys())
	assert.Equal(t, ab.Agree, ba.Agree)
	assert.Equal(t, ab.AgreementRate, ba.AgreementRate)
}

func TestChecklists_DomainDiscrepancy(t *testing.T) {
	a, b := newRobinsPair(t)
	b.Robins.Domains["confounding"].Answers["1.4"] = models.SignalAnswer{Response: models.ResponseYes}

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Agree)
	assert.Equal(t, 1, r.Discrepant)

	e := entryFor(t, r, "confounding")
	require.Len(t, e.Diffs, 1)
	assert.Equal(t, "1.4", e.Diffs[0].ID)
}

func TestChecklists_CommentsDoNotAffectAgreement(t *testing.T) {
	a, b := newRobinsPair(t)
	b.Robins.Domains["selection"].Answers["2.1"] = models.SignalAnswer{
		Response: models.ResponseNo,
		Comment:  "selection described on p.4",
	}

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, 7, r.Agree)
}

func TestChecklists_ManualOverrideDisagreement(t *testing.T) {
	a, b := newRobinsPair(t)
	b.Robins.Domains["confounding"].Judgement = models.DomainJudgement{
		Judgement: models.RiskSerious,
		Source:    models.JudgementManual,
	}

	r, err := Checklists(a, b)
	require.NoError(t, err)
	e := entryFor(t, r, "confounding")
	assert.Equal(t, StatusDiscrepant, e.Status)
	require.Len(t, e.Diffs, 1)
	assert.Equal(t, "judgement", e.Diffs[0].ID)
}

func TestChecklists_MatchingManualOverridesAgree(t *testing.T) {
	a, b := newRobinsPair(t)
	override := models.DomainJudgement{
		Judgement: models.RiskSerious,
		Source:    models.JudgementManual,
	}
	a.Robins.Domains["confounding"].Judgement = override
	b.Robins.Domains["confounding"].Judgement = override

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, StatusAgree, entryFor(t, r, "confounding").Status)
}

func TestChecklists_MissingSubAnswerKeyIsError(t *testing.T) {
	// A deleted sub-answer key is corruption, not an unanswered question,
	// and must not be misread as an incomplete entry.
	a := newAmstar(t, "a")
	b := newAmstar(t, "b")
	delete(b.Amstar.Items["q4"].Answers, "registries")

	_, err := Checklists(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checklist b item q4 missing sub-answer registries")
}

func TestChecklists_MissingSignallingQuestionKeyIsError(t *testing.T) {
	a, b := newRobinsPair(t)
	delete(a.Robins.Domains["confounding"].Answers, "1.1")

	_, err := Checklists(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checklist rev-a domain confounding missing question 1.1")
}

func TestChecklists_OptionalQuestionsStillCompared(t *testing.T) {
	// Optional questions don't gate completeness, but a difference in them
	// is still a discrepancy.
	a, b := newRobinsPair(t)
	b.Robins.Domains["confounding"].Answers["1.2"] = models.SignalAnswer{Response: models.ResponseYes}

	r, err := Checklists(a, b)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscrepant, entryFor(t, r, "confounding").Status)
}
