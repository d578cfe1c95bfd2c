package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

func newTestChecklist(t *testing.T, instrument models.InstrumentType) *models.Checklist {
	t.Helper()
	c, err := catalog.NewChecklist(instrument, models.ChecklistMeta{StudyID: "study-1"})
	require.NoError(t, err)
	return c
}

func TestApplyAnswers_Rob2(t *testing.T) {
	c := newTestChecklist(t, models.InstrumentRob2)

	applied, err := applyAnswers(c, map[string]map[string]string{
		"randomization": {"1.1": "yes", "1.2": "probably_yes"},
		"missing_data":  {"3.1": "no_information"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	form := c.DomainForm()
	assert.Equal(t, models.ResponseYes, form.Domains["randomization"].Answers["1.1"].Response)
	assert.Equal(t, models.ResponseProbablyYes, form.Domains["randomization"].Answers["1.2"].Response)
	assert.Equal(t, models.ResponseNoInformation, form.Domains["missing_data"].Answers["3.1"].Response)
}

func TestApplyAnswers_UnknownDomain(t *testing.T) {
	c := newTestChecklist(t, models.InstrumentRob2)

	_, err := applyAnswers(c, map[string]map[string]string{
		"randomization": {"1.1": "yes"},
		"confounding":   {"1.1": "yes"}, // ROBINS-I domain, not RoB 2
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")

	// Validation failure leaves the checklist untouched.
	form := c.DomainForm()
	assert.False(t, form.Domains["randomization"].Answers["1.1"].Response.Answered())
}

func TestApplyAnswers_Rob2_RejectsNotApplicable(t *testing.T) {
	c := newTestChecklist(t, models.InstrumentRob2)

	_, err := applyAnswers(c, map[string]map[string]string{
		"randomization": {"1.1": "not_applicable"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response")
}

func TestApplyAnswers_Amstar(t *testing.T) {
	c := newTestChecklist(t, models.InstrumentAmstar2)

	applied, err := applyAnswers(c, map[string]map[string]string{
		"q1": {"population": "yes", "intervention": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, models.BoolYes, c.Amstar.Items["q1"].Answers["population"])
	assert.Equal(t, models.BoolYes, c.Amstar.Items["q1"].Answers["intervention"])
}

func TestApplyAnswers_Amstar_RejectsGradedResponse(t *testing.T) {
	c := newTestChecklist(t, models.InstrumentAmstar2)

	_, err := applyAnswers(c, map[string]map[string]string{
		"q1": {"population": "probably_yes"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yes or no")
}
