package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ExtractedStudy holds study metadata extracted from a paper's text.
type ExtractedStudy struct {
	Title         string   `json:"title"`
	Authors       string   `json:"authors"`
	Year          int      `json:"year"`
	Design        string   `json:"design"`
	DOI           string   `json:"doi"`
	SampleSize    string   `json:"sample_size"`
	Population    string   `json:"population"`
	Interventions string   `json:"interventions"`
	Outcomes      []string `json:"outcomes"`
	Funding       string   `json:"funding"`
}

// Client wraps the Anthropic API for study extraction.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildExtractPrompt constructs the system and user prompts for study extraction.
func buildExtractPrompt(content string) (system string, user string) {
	system = `You extract bibliographic and methodological metadata from the text of a research paper for a critical-appraisal workflow. Return ONLY a JSON object with these fields:
- "title": the full article title
- "authors": author list as printed, e.g. "Smith J, Jones K, Lee A"
- "year": publication year as an integer (0 if not found)
- "design": study design, one of "systematic review", "randomized trial", "non-randomized study", or a short free-text label if none fits
- "doi": the DOI string without a URL prefix (empty string if not found)
- "sample_size": total number of participants or included studies, as printed (e.g. "n=248", "32 trials"); empty string if not reported
- "population": one-sentence description of the study population
- "interventions": one-sentence description of the intervention and comparator
- "outcomes": array of primary and secondary outcome names
- "funding": funding source as reported; empty string if not reported

Rules:
- Use only information present in the text; never invent values
- Prefer the abstract and methods section when fields conflict
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Extract study metadata from this text:\n\n")
	sb.WriteString(content)
	user = sb.String()
	return
}

// ExtractStudy sends paper text to the LLM and returns structured study metadata.
func (c *Client) ExtractStudy(ctx context.Context, content string) (*ExtractedStudy, error) {
	systemPrompt, userPrompt := buildExtractPrompt(content)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	text, err := responseText(msg)
	if err != nil {
		return nil, err
	}

	var study ExtractedStudy
	if err := json.Unmarshal([]byte(text), &study); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return &study, nil
}

// DiscrepancyNote is one LLM-drafted talking point for a consensus meeting.
type DiscrepancyNote struct {
	Key        string `json:"key"`
	Summary    string `json:"summary"`
	Suggestion string `json:"suggestion"`
}

// buildDiscrepancyPrompt constructs the prompts for consensus-meeting notes.
func buildDiscrepancyPrompt(instrument string, discrepancies []string) (system string, user string) {
	system = `You help two reviewers prepare for a consensus meeting after double-coding a critical-appraisal checklist. For each discrepant item or domain you are given, return a JSON array of objects with these fields:
- "key": the item or domain identifier exactly as given
- "summary": one sentence restating what the two reviewers disagreed about
- "suggestion": one or two sentences on what evidence in the paper would settle the disagreement

Rules:
- Cover every discrepancy you are given, in the same order
- Never recommend a final answer; the reviewers decide
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Instrument: ")
	sb.WriteString(instrument)
	sb.WriteString("\n\nDiscrepancies:\n")
	for _, d := range discrepancies {
		sb.WriteString("- ")
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// DraftDiscrepancyNotes asks the LLM for consensus-meeting talking points
// covering each discrepancy from a checklist comparison. Each discrepancy
// line should carry the key and both reviewers' values.
func (c *Client) DraftDiscrepancyNotes(ctx context.Context, instrument string, discrepancies []string) ([]DiscrepancyNote, error) {
	systemPrompt, userPrompt := buildDiscrepancyPrompt(instrument, discrepancies)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	text, err := responseText(msg)
	if err != nil {
		return nil, err
	}

	var notes []DiscrepancyNote
	if err := json.Unmarshal([]byte(text), &notes); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return notes, nil
}

// responseText pulls the first text block out of a response and strips any
// markdown fencing the model wrapped around it.
func responseText(msg *anthropic.Message) (string, error) {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text, nil
}
