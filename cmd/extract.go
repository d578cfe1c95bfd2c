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
)

var extractReviewer1, extractReviewer2 string

var extractCmd = &cobra.Command{
	Use:   "extract <project> <file>",
	Short: "Create a study from an abstract or methods file",
	Long: `Extract study metadata (title, authors, year, design, DOI) from a
plain-text abstract or methods section using the configured Anthropic model,
and create a study record in the given project.

To fill in an existing study instead, use 'corates study extract'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return extractRun(args[0], args[1])
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractReviewer1, "reviewer1", "", "First reviewer for double coding")
	extractCmd.Flags().StringVar(&extractReviewer2, "reviewer2", "", "Second reviewer for double coding")
	rootCmd.AddCommand(extractCmd)
}

func extractRun(project, path string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, project)
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
	if extracted.Title == "" {
		return fmt.Errorf("no study title found in %s", path)
	}

	st := &models.Study{
		ProjectID:      p.ID,
		Title:          extracted.Title,
		Authors:        extracted.Authors,
		Year:           extracted.Year,
		Design:         extracted.Design,
		DOI:            extracted.DOI,
		FirstReviewer:  extractReviewer1,
		SecondReviewer: extractReviewer2,
	}

	if dryRun {
		ui.DryRunMsg("Would add study to %s: %s", p.Name, st.Title)
		return nil
	}

	if err := s.CreateStudy(ctx, st); err != nil {
		return fmt.Errorf("add study: %w", err)
	}

	ui.Success("Added study: %s", output.Cyan(st.Title))
	if extracted.Design != "" {
		ui.VerboseLog("Design: %s", extracted.Design)
	}
	if extracted.SampleSize != "" {
		ui.VerboseLog("Sample size: %s", extracted.SampleSize)
	}
	ui.VerboseLog("ID: %s", st.ID)
	return nil
}
