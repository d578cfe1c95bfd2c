package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := buildVersion
		if v == "" {
			v = "dev"
		}
		fmt.Fprintf(ui.Out, "corates %s", v)
		if buildCommit != "" && buildCommit != "none" {
			fmt.Fprintf(ui.Out, " (%s)", buildCommit)
		}
		if buildDate != "" && buildDate != "unknown" {
			fmt.Fprintf(ui.Out, " built %s", buildDate)
		}
		fmt.Fprintln(ui.Out)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
