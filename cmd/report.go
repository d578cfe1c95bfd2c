package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corates/corates/internal/compare"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/output"
	"github.com/corates/corates/internal/scoring"
	"github.com/corates/corates/internal/store"
)

var (
	exportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export projects, studies, or checklists in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "projects", "Data type: projects, studies, checklists")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "projects":
		return exportProjects(ctx, s)
	case "studies":
		return exportStudies(ctx, s)
	case "checklists":
		return exportChecklists(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: projects, studies, checklists)", exportType)
	}
}

func exportProjects(ctx context.Context, s store.Store) error {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "Name", "Description", "Created"})
		for _, p := range projects {
			w.Write([]string{p.ID, p.Name, p.Description, p.CreatedAt.Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Projects")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Name | Description |")
		fmt.Fprintln(ui.Out, "|------|-------------|")
		for _, p := range projects {
			fmt.Fprintf(ui.Out, "| %s | %s |\n", p.Name, p.Description)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", exportFormat)
	}
}

func exportStudies(ctx context.Context, s store.Store) error {
	studies, err := s.ListStudies(ctx, "")
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(studies)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "ProjectID", "Title", "Authors", "Year", "Design", "DOI", "Reviewer1", "Reviewer2"})
		for _, st := range studies {
			w.Write([]string{st.ID, st.ProjectID, st.Title, st.Authors, yearString(st.Year),
				st.Design, st.DOI, st.FirstReviewer, st.SecondReviewer})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Studies")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Title | Year | Design | Reviewers |")
		fmt.Fprintln(ui.Out, "|-------|------|--------|-----------|")
		for _, st := range studies {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s |\n", st.Title, yearString(st.Year), st.Design, reviewerPair(st))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", exportFormat)
	}
}

func exportChecklists(ctx context.Context, s store.Store) error {
	checklists, err := s.ListChecklists(ctx, store.ChecklistListFilter{})
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(checklists)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "StudyID", "Instrument", "Reviewer", "Status", "Result", "Created"})
		for _, c := range checklists {
			w.Write([]string{c.ID, c.StudyID, string(c.Instrument), c.Reviewer, string(c.Status),
				checklistResult(c), c.CreatedAt.Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Checklists")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Study | Instrument | Reviewer | Status | Result |")
		fmt.Fprintln(ui.Out, "|-------|------------|----------|--------|--------|")
		for _, c := range checklists {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s |\n",
				shortID(c.StudyID), c.Instrument, c.Reviewer, c.Status, checklistResult(c))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", exportFormat)
	}
}

// checklistResult returns the overall rating or judgement for display, or
// empty when the checklist cannot be scored yet.
func checklistResult(c *models.Checklist) string {
	res, err := scoring.Score(c)
	if err != nil {
		return ""
	}
	if res.Amstar != nil {
		return string(res.Amstar.Rating)
	}
	if eff := res.Overall.Effective(); eff != models.RiskUnset {
		return string(eff)
	}
	return ""
}

var reportCmd = &cobra.Command{
	Use:   "report [project]",
	Short: "Show an appraisal progress overview",
	Long: `Show a cross-project appraisal overview or a per-study report for one
project: checklist counts by status and the overall rating or judgement of
each scored checklist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return reportProjectRun(args[0])
		}
		return reportOverviewRun()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func reportOverviewRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		ui.Info("No projects tracked. Use 'corates project create <name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Project", "Studies", "Complete", "In progress", "Reconciled"})
	for _, p := range projects {
		studies, _ := s.ListStudies(ctx, p.ID)
		checklists, _ := s.ListChecklists(ctx, store.ChecklistListFilter{ProjectID: p.ID})

		complete, inProgress, reconciled := 0, 0, 0
		for _, c := range checklists {
			switch c.Status {
			case models.ChecklistStatusComplete:
				complete++
			case models.ChecklistStatusInProgress:
				inProgress++
			}
			if c.Reconciled() && c.Status != models.ChecklistStatusSuperseded {
				reconciled++
			}
		}

		table.Append([]string{
			output.Cyan(p.Name),
			fmt.Sprintf("%d", len(studies)),
			fmt.Sprintf("%d", complete),
			fmt.Sprintf("%d", inProgress),
			fmt.Sprintf("%d", reconciled),
		})
	}
	return table.Render()
}

func reportProjectRun(project string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, project)
	if err != nil {
		return err
	}

	studies, err := s.ListStudies(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(studies) == 0 {
		ui.Info("No studies in %s.", p.Name)
		return nil
	}

	byStudy := make(map[string][]*models.Checklist, len(studies))

	table := ui.Table([]string{"Study", "Instrument", "Reviewer", "Status", "Result"})
	for _, st := range studies {
		checklists, err := s.ListChecklists(ctx, store.ChecklistListFilter{StudyID: st.ID})
		if err != nil {
			return err
		}
		byStudy[st.ID] = checklists
		if len(checklists) == 0 {
			table.Append([]string{st.Title, "", "", "", ""})
			continue
		}
		for _, c := range checklists {
			result := checklistResult(c)
			if result != "" {
				if c.Instrument == models.InstrumentAmstar2 {
					result = output.RatingColor(result)
				} else {
					result = output.JudgementColor(result)
				}
			}
			table.Append([]string{
				st.Title,
				string(c.Instrument),
				c.Reviewer,
				output.StatusColor(string(c.Status)),
				result,
			})
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	printAgreementRates(studies, byStudy)
	return nil
}

// printAgreementRates reports inter-rater agreement for every study with an
// active double-coded pair of the same instrument.
func printAgreementRates(studies []*models.Study, byStudy map[string][]*models.Checklist) {
	printedHeader := false
	for _, st := range studies {
		pairs := make(map[models.InstrumentType][]*models.Checklist)
		for _, c := range byStudy[st.ID] {
			if c.Status == models.ChecklistStatusSuperseded || c.Reconciled() {
				continue
			}
			pairs[c.Instrument] = append(pairs[c.Instrument], c)
		}
		for instrument, cs := range pairs {
			if len(cs) != 2 {
				continue
			}
			report, err := compare.Checklists(cs[0], cs[1])
			if err != nil || report.Agree+report.Discrepant == 0 {
				continue
			}
			if !printedHeader {
				fmt.Fprintln(ui.Out)
				fmt.Fprintln(ui.Out, "Inter-rater agreement (incomplete entries excluded):")
				printedHeader = true
			}
			fmt.Fprintf(ui.Out, "  %s (%s): %s\n", st.Title, instrument,
				output.AgreementColor(report.AgreementRate))
		}
	}
}
