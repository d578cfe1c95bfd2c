package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corates/corates/internal/llm"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/output"
	"github.com/corates/corates/internal/store"
)

var (
	studyTitle          string
	studyAuthors        string
	studyYear           int
	studyDesign         string
	studyDOI            string
	studyFirstReviewer  string
	studySecondReviewer string
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Manage studies under appraisal",
	Long:  "Add, remove, list, and show the research studies appraised within a project.",
}

var studyAddCmd = &cobra.Command{
	Use:   "add <project>",
	Short: "Add a study to a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyAddRun(args[0])
	},
}

var studyListCmd = &cobra.Command{
	Use:     "list [project]",
	Aliases: []string{"ls"},
	Short:   "List studies, optionally scoped to a project",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := ""
		if len(args) == 1 {
			project = args[0]
		}
		return studyListRun(project)
	},
}

var studyShowCmd = &cobra.Command{
	Use:   "show <study-id>",
	Short: "Show a study with its checklists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyShowRun(args[0])
	},
}

var studyRemoveCmd = &cobra.Command{
	Use:     "remove <study-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a study and its checklists",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyRemoveRun(args[0])
	},
}

var studyExtractCmd = &cobra.Command{
	Use:   "extract <study-id> <file>",
	Short: "Extract study metadata from an abstract or methods file",
	Long: `Extract study metadata (title, authors, year, design, DOI) from a
plain-text abstract or methods section using the configured Anthropic model,
and fill in the study's empty fields. Existing values are never overwritten.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyExtractRun(args[0], args[1])
	},
}

func init() {
	studyAddCmd.Flags().StringVar(&studyTitle, "title", "", "Study title (required)")
	studyAddCmd.Flags().StringVar(&studyAuthors, "authors", "", "Author list")
	studyAddCmd.Flags().IntVar(&studyYear, "year", 0, "Publication year")
	studyAddCmd.Flags().StringVar(&studyDesign, "design", "", "Study design (e.g. randomized trial, cohort)")
	studyAddCmd.Flags().StringVar(&studyDOI, "doi", "", "DOI")
	studyAddCmd.Flags().StringVar(&studyFirstReviewer, "reviewer1", "", "First reviewer for double coding")
	studyAddCmd.Flags().StringVar(&studySecondReviewer, "reviewer2", "", "Second reviewer for double coding")
	_ = studyAddCmd.MarkFlagRequired("title")

	studyCmd.AddCommand(studyAddCmd)
	studyCmd.AddCommand(studyListCmd)
	studyCmd.AddCommand(studyShowCmd)
	studyCmd.AddCommand(studyRemoveCmd)
	studyCmd.AddCommand(studyExtractCmd)
	rootCmd.AddCommand(studyCmd)
}

func studyAddRun(project string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, project)
	if err != nil {
		return err
	}

	st := &models.Study{
		ProjectID:      p.ID,
		Title:          studyTitle,
		Authors:        studyAuthors,
		Year:           studyYear,
		Design:         studyDesign,
		DOI:            studyDOI,
		FirstReviewer:  studyFirstReviewer,
		SecondReviewer: studySecondReviewer,
	}

	if dryRun {
		ui.DryRunMsg("Would add study to %s: %s", p.Name, studyTitle)
		return nil
	}

	if err := s.CreateStudy(ctx, st); err != nil {
		return fmt.Errorf("add study: %w", err)
	}

	ui.Success("Added study: %s", output.Cyan(st.Title))
	ui.VerboseLog("ID: %s", st.ID)
	return nil
}

func studyListRun(project string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projectID := ""
	if project != "" {
		p, err := resolveProject(ctx, s, project)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	studies, err := s.ListStudies(ctx, projectID)
	if err != nil {
		return err
	}

	if len(studies) == 0 {
		ui.Info("No studies found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Year", "Design", "Reviewers"})
	for _, st := range studies {
		table.Append([]string{
			shortID(st.ID),
			st.Title,
			yearString(st.Year),
			st.Design,
			reviewerPair(st),
		})
	}
	return table.Render()
}

func studyShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := s.GetStudy(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(st.Title))
	if st.Authors != "" {
		fmt.Fprintf(ui.Out, "  Authors: %s\n", st.Authors)
	}
	if st.Year != 0 {
		fmt.Fprintf(ui.Out, "  Year: %d\n", st.Year)
	}
	if st.Design != "" {
		fmt.Fprintf(ui.Out, "  Design: %s\n", st.Design)
	}
	if st.DOI != "" {
		fmt.Fprintf(ui.Out, "  DOI: %s\n", st.DOI)
	}
	if pair := reviewerPair(st); pair != "" {
		fmt.Fprintf(ui.Out, "  Reviewers: %s\n", pair)
	}
	fmt.Fprintf(ui.Out, "  ID: %s\n", st.ID)
	fmt.Fprintln(ui.Out)

	checklists, err := s.ListChecklists(ctx, store.ChecklistListFilter{StudyID: st.ID})
	if err != nil {
		return err
	}
	if len(checklists) == 0 {
		ui.Info("No checklists. Use 'corates checklist create %s --instrument <type>' to add one.", shortID(st.ID))
		return nil
	}

	table := ui.Table([]string{"ID", "Instrument", "Reviewer", "Status", "Reconciled"})
	for _, c := range checklists {
		reconciled := ""
		if c.Reconciled() {
			reconciled = "yes"
		}
		table.Append([]string{
			shortID(c.ID),
			string(c.Instrument),
			c.Reviewer,
			output.StatusColor(string(c.Status)),
			reconciled,
		})
	}
	return table.Render()
}

func studyRemoveRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := s.GetStudy(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove study: %s", st.Title)
		return nil
	}

	if err := s.DeleteStudy(ctx, st.ID); err != nil {
		return fmt.Errorf("remove study: %w", err)
	}

	ui.Success("Removed study: %s", output.Cyan(st.Title))
	return nil
}

func studyExtractRun(id, path string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := s.GetStudy(ctx, id)
	if err != nil {
		return err
	}

	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return fmt.Errorf("anthropic.api_key is not configured (set CORATES_ANTHROPIC_API_KEY or run 'corates config init')")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return fmt.Errorf("file is empty: %s", path)
	}

	client := llm.NewClient(apiKey, viper.GetString("anthropic.model"))

	ui.VerboseLog("Extracting metadata with %s", viper.GetString("anthropic.model"))
	extracted, err := client.ExtractStudy(ctx, content)
	if err != nil {
		return fmt.Errorf("extract study: %w", err)
	}

	updated := applyExtracted(st, extracted)
	if len(updated) == 0 {
		ui.Info("Nothing to update: all extracted fields already set.")
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would update study fields: %s", strings.Join(updated, ", "))
		return nil
	}

	if err := s.UpdateStudy(ctx, st); err != nil {
		return fmt.Errorf("update study: %w", err)
	}

	ui.Success("Updated study: %s", output.Cyan(st.Title))
	for _, f := range updated {
		ui.VerboseLog("Set %s", f)
	}
	return nil
}

// applyExtracted fills empty study fields from the extraction result and
// returns the names of the fields it set.
func applyExtracted(st *models.Study, ex *llm.ExtractedStudy) []string {
	var updated []string
	if st.Title == "" && ex.Title != "" {
		st.Title = ex.Title
		updated = append(updated, "title")
	}
	if st.Authors == "" && ex.Authors != "" {
		st.Authors = ex.Authors
		updated = append(updated, "authors")
	}
	if st.Year == 0 && ex.Year != 0 {
		st.Year = ex.Year
		updated = append(updated, "year")
	}
	if st.Design == "" && ex.Design != "" {
		st.Design = ex.Design
		updated = append(updated, "design")
	}
	if st.DOI == "" && ex.DOI != "" {
		st.DOI = ex.DOI
		updated = append(updated, "doi")
	}
	return updated
}
