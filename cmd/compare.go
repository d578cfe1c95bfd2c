package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/corates/corates/internal/compare"
	"github.com/corates/corates/internal/llm"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/output"
	"github.com/corates/corates/internal/store"
)

var (
	reconcileReviewer    string
	reconcileName        string
	reconcileResolutions string
)

var compareCmd = &cobra.Command{
	Use:   "compare <checklist-a> <checklist-b>",
	Short: "Compare two double-coded checklists",
	Long: `Compare two checklists of the same instrument and study, classifying
every item or domain as agree, discrepant, or incomplete. The agreement rate
excludes incomplete entries from its denominator.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return compareRun(args[0], args[1])
	},
}

var compareNotesCmd = &cobra.Command{
	Use:   "notes <checklist-a> <checklist-b>",
	Short: "Draft discussion notes for the discrepancies",
	Long: `Use the configured Anthropic model to draft neutral discussion notes
for each discrepant or incomplete entry. The notes frame the disagreement for
the consensus meeting; they never recommend a final answer.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return compareNotesRun(args[0], args[1])
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <checklist-a> <checklist-b>",
	Short: "Merge two double-coded checklists into a consensus record",
	Long: `Build a consensus checklist from two double-coded checklists. Agreed
entries are carried over unchanged; every discrepant or incomplete entry must
have a resolution in the --resolutions YAML file, for example:

  q7:
    answers:
      list: "yes"
      justified: "yes"
    comment: Agreed after checking the full-text exclusions appendix.
  missing_data:
    responses:
      "3.1": "no"
    judgement: low

Reconciliation is all-or-nothing: if any entry lacks a resolution, nothing is
written. On success the consensus checklist records both sources and the
source checklists are marked superseded.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reconcileRun(args[0], args[1])
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileReviewer, "reviewer", "", "Reviewer recording the consensus")
	reconcileCmd.Flags().StringVar(&reconcileName, "name", "", "Label for the consensus checklist")
	reconcileCmd.Flags().StringVar(&reconcileResolutions, "resolutions", "", "YAML file of per-entry resolutions")

	compareCmd.AddCommand(compareNotesCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// loadPair fetches and sanity-checks the two checklists being compared.
func loadPair(ctx context.Context, s store.Store, idA, idB string) (*models.Checklist, *models.Checklist, error) {
	a, err := findChecklist(ctx, s, idA)
	if err != nil {
		return nil, nil, err
	}
	b, err := findChecklist(ctx, s, idB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func compareRun(idA, idB string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, b, err := loadPair(ctx, s, idA, idB)
	if err != nil {
		return err
	}

	report, err := compare.Checklists(a, b)
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Entry", "Status", "Differences"})
	for _, e := range report.Entries {
		table.Append([]string{e.Key, entryStatusColor(e.Status), diffSummary(e.Diffs)})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "Agree: %d, discrepant: %d, incomplete: %d\n",
		report.Agree, report.Discrepant, report.Incomplete)
	if report.Agree+report.Discrepant > 0 {
		fmt.Fprintf(ui.Out, "Agreement rate: %s (incomplete entries excluded)\n",
			output.AgreementColor(report.AgreementRate))
	} else {
		ui.Warning("Nothing comparable yet: all entries incomplete")
	}
	return nil
}

func entryStatusColor(status compare.EntryStatus) string {
	switch status {
	case compare.StatusAgree:
		return output.Green(string(status))
	case compare.StatusDiscrepant:
		return output.Red(string(status))
	default:
		return output.Yellow(string(status))
	}
}

func diffSummary(diffs []compare.FieldDiff) string {
	parts := make([]string, len(diffs))
	for i, d := range diffs {
		parts[i] = fmt.Sprintf("%s: %s vs %s", d.ID, d.A, d.B)
	}
	return strings.Join(parts, "; ")
}

func compareNotesRun(idA, idB string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, b, err := loadPair(ctx, s, idA, idB)
	if err != nil {
		return err
	}

	report, err := compare.Checklists(a, b)
	if err != nil {
		return err
	}

	var discrepancies []string
	for _, e := range report.Entries {
		if e.Status == compare.StatusAgree {
			continue
		}
		if len(e.Diffs) == 0 {
			discrepancies = append(discrepancies, fmt.Sprintf("%s: incomplete", e.Key))
			continue
		}
		discrepancies = append(discrepancies, fmt.Sprintf("%s: %s", e.Key, diffSummary(e.Diffs)))
	}
	if len(discrepancies) == 0 {
		ui.Success("No discrepancies: the checklists fully agree.")
		return nil
	}

	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return fmt.Errorf("anthropic.api_key is not configured (set CORATES_ANTHROPIC_API_KEY or run 'corates config init')")
	}
	client := llm.NewClient(apiKey, viper.GetString("anthropic.model"))

	notes, err := client.DraftDiscrepancyNotes(ctx, string(a.Instrument), discrepancies)
	if err != nil {
		return fmt.Errorf("draft notes: %w", err)
	}

	for _, note := range notes {
		fmt.Fprintf(ui.Out, "%s\n", output.Cyan(note.Key))
		fmt.Fprintf(ui.Out, "  %s\n", note.Summary)
		if note.Suggestion != "" {
			fmt.Fprintf(ui.Out, "  Discuss: %s\n", note.Suggestion)
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}

// resolutionEntry is the YAML shape of one resolution in the --resolutions file.
type resolutionEntry struct {
	Answers   map[string]string `yaml:"answers"`
	Responses map[string]string `yaml:"responses"`
	Comment   string            `yaml:"comment"`
	Judgement string            `yaml:"judgement"`
}

// parseResolutions converts the YAML resolutions document into the
// reconciliation input.
func parseResolutions(data []byte) (map[string]compare.Resolution, error) {
	var entries map[string]resolutionEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse resolutions: %w", err)
	}

	resolutions := make(map[string]compare.Resolution, len(entries))
	for key, entry := range entries {
		res := compare.Resolution{Comment: entry.Comment}
		if len(entry.Answers) > 0 {
			res.Answers = make(map[string]models.BoolAnswer, len(entry.Answers))
			for id, v := range entry.Answers {
				res.Answers[id] = models.BoolAnswer(v)
			}
		}
		if len(entry.Responses) > 0 {
			res.Responses = make(map[string]models.Response, len(entry.Responses))
			for id, v := range entry.Responses {
				res.Responses[id] = models.Response(v)
			}
		}
		if entry.Judgement != "" {
			res.Judgement = &models.DomainJudgement{
				Judgement: models.RiskLevel(entry.Judgement),
				Source:    models.JudgementManual,
			}
		}
		resolutions[key] = res
	}
	return resolutions, nil
}

func reconcileRun(idA, idB string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, b, err := loadPair(ctx, s, idA, idB)
	if err != nil {
		return err
	}

	resolutions := map[string]compare.Resolution{}
	if reconcileResolutions != "" {
		data, err := os.ReadFile(reconcileResolutions)
		if err != nil {
			return fmt.Errorf("read resolutions: %w", err)
		}
		resolutions, err = parseResolutions(data)
		if err != nil {
			return err
		}
	}

	merged, err := compare.Reconcile(a, b, resolutions, models.ChecklistMeta{
		Name:     reconcileName,
		Reviewer: reconcileReviewer,
	})
	if err != nil {
		if errors.Is(err, compare.ErrUnresolved) {
			return fmt.Errorf("%w (add the missing entries to the --resolutions file)", err)
		}
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create consensus checklist from %s and %s", shortID(a.ID), shortID(b.ID))
		return nil
	}

	if err := s.CreateChecklist(ctx, merged); err != nil {
		return fmt.Errorf("create consensus checklist: %w", err)
	}
	if _, err := s.MarkSuperseded(ctx, []string{a.ID, b.ID}); err != nil {
		return fmt.Errorf("supersede sources: %w", err)
	}

	ui.Success("Created consensus checklist: %s", output.Cyan(shortID(merged.ID)))
	ui.Info("Superseded %s and %s", shortID(a.ID), shortID(b.ID))
	return nil
}
