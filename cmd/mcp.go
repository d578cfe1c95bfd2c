package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/corates/corates/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This allows Claude Code to query corates natively for studies,
checklists, scores, and comparison reports. Configure in Claude Code with:

  {
    "mcpServers": {
      "corates": { "command": "corates", "args": ["mcp"] }
    }
  }

Available tools: corates_list_projects, corates_list_studies,
corates_create_study, corates_list_checklists, corates_create_checklist,
corates_answer, corates_score, corates_compare, corates_instrument`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s).ServeStdio(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
