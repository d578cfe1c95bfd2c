package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/output"
	"github.com/corates/corates/internal/store"
)

var projectDescription string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage review projects",
	Long:  "Create, remove, list, and show review projects that group the studies under appraisal.",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a review project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectCreateRun(args[0])
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <name-or-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a project and its studies",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRemoveRun(args[0])
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List review projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name-or-id>",
	Short: "Show a project with its studies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectCreateRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	p := &models.Project{
		Name:        name,
		Description: projectDescription,
	}

	if dryRun {
		ui.DryRunMsg("Would create project: %s", name)
		return nil
	}

	if err := s.CreateProject(context.Background(), p); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	ui.Success("Created project: %s", output.Cyan(name))
	ui.VerboseLog("ID: %s", p.ID)
	return nil
}

func projectRemoveRun(nameOrID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, nameOrID)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove project: %s", p.Name)
		return nil
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}

	ui.Success("Removed project: %s", output.Cyan(p.Name))
	return nil
}

func projectListRun() error {
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
		ui.Info("No projects yet. Use 'corates project create <name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Name", "Studies", "Checklists", "Description"})
	for _, p := range projects {
		studies, _ := s.ListStudies(ctx, p.ID)
		checklists, _ := s.ListChecklists(ctx, store.ChecklistListFilter{ProjectID: p.ID})

		table.Append([]string{
			output.Cyan(p.Name),
			fmt.Sprintf("%d", len(studies)),
			fmt.Sprintf("%d", len(checklists)),
			p.Description,
		})
	}
	return table.Render()
}

func projectShowRun(nameOrID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, nameOrID)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(p.Name))
	if p.Description != "" {
		fmt.Fprintf(ui.Out, "  %s\n", p.Description)
	}
	fmt.Fprintf(ui.Out, "  ID: %s\n", p.ID)
	fmt.Fprintf(ui.Out, "  Created: %s\n", p.CreatedAt.Format("2006-01-02"))
	fmt.Fprintln(ui.Out)

	studies, err := s.ListStudies(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(studies) == 0 {
		ui.Info("No studies. Use 'corates study add %s --title <title>' to add one.", p.Name)
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

// resolveProject finds a project by name first, then by id.
func resolveProject(ctx context.Context, s store.Store, nameOrID string) (*models.Project, error) {
	if p, err := s.GetProjectByName(ctx, nameOrID); err == nil {
		return p, nil
	}
	p, err := s.GetProject(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %s", nameOrID)
	}
	return p, nil
}

// shortID truncates a ULID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

func reviewerPair(st *models.Study) string {
	switch {
	case st.FirstReviewer == "" && st.SecondReviewer == "":
		return ""
	case st.SecondReviewer == "":
		return st.FirstReviewer
	default:
		return st.FirstReviewer + " / " + st.SecondReviewer
	}
}
