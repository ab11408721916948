package cmd

import (
	"github.com/spf13/cobra"
)

// datasetCmd groups the commands operating on datasets
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Commands to manage datasets in a project",
	Long: `Commands to manage datasets in a project.

A dataset groups files under a common name, with metadata and per-file
provenance. Files live under the project's data area and their records
under the project's metadata area.
`,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
}
