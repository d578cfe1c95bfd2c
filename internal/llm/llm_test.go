package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractPrompt(t *testing.T) {
	system, user := buildExtractPrompt("Abstract: We randomized 248 adults...")

	assert.Contains(t, system, "JSON object")
	assert.Contains(t, system, `"title"`)
	assert.Contains(t, system, `"authors"`)
	assert.Contains(t, system, `"design"`)
	assert.Contains(t, system, `"sample_size"`)
	assert.Contains(t, system, `"outcomes"`)

	assert.Contains(t, user, "We randomized 248 adults")
}

func TestBuildExtractPrompt_LongContent(t *testing.T) {
	content := strings.Repeat("x", 10000)
	_, user := buildExtractPrompt(content)
	assert.Contains(t, user, content)
}

func TestBuildExtractPrompt_DesignVocabulary(t *testing.T) {
	system, _ := buildExtractPrompt("content")

	assert.Contains(t, system, "systematic review")
	assert.Contains(t, system, "randomized trial")
	assert.Contains(t, system, "non-randomized study")
}

func TestBuildDiscrepancyPrompt(t *testing.T) {
	t.Run("with discrepancies", func(t *testing.T) {
		system, user := buildDiscrepancyPrompt("rob2", []string{
			"randomization 1.1: yes vs no_information",
			"missing_data judgement: low vs some_concerns",
		})

		assert.Contains(t, system, "JSON array")
		assert.Contains(t, system, `"key"`)
		assert.Contains(t, system, `"summary"`)
		assert.Contains(t, system, `"suggestion"`)

		assert.Contains(t, user, "Instrument: rob2")
		assert.Contains(t, user, "randomization 1.1: yes vs no_information")
		assert.Contains(t, user, "missing_data judgement: low vs some_concerns")
	})

	t.Run("never decides for the reviewers", func(t *testing.T) {
		system, _ := buildDiscrepancyPrompt("amstar2", []string{"q4: yes vs no"})
		assert.Contains(t, system, "Never recommend a final answer")
	})
}

func TestExtractedStudy_Unmarshal(t *testing.T) {
	raw := `{
		"title": "Exercise for knee OA",
		"authors": "Smith J, Jones K",
		"year": 2021,
		"design": "randomized trial",
		"doi": "10.1000/example.1",
		"sample_size": "n=248",
		"population": "Adults with symptomatic knee osteoarthritis",
		"interventions": "Supervised exercise vs usual care",
		"outcomes": ["WOMAC pain", "WOMAC function"],
		"funding": "National health agency"
	}`

	var study ExtractedStudy
	require.NoError(t, json.Unmarshal([]byte(raw), &study))
	assert.Equal(t, "Exercise for knee OA", study.Title)
	assert.Equal(t, 2021, study.Year)
	assert.Len(t, study.Outcomes, 2)
}
