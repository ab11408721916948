package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var datasetTagsRemoveCmd = &cobra.Command{
	Use:   "rm-tags <name> <tag> [<tag>...]",
	Short: "Remove tags from a dataset",
	Long: `Remove the named tags from a dataset.

Unknown tags are reported but do not fail the command.
`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		removed, missing, err := svc.tags.RemoveTags(ctx, args[0], args[1:])
		if err != nil {
			wrapFatalln("remove tags", err)
			return
		}
		for _, name := range removed {
			infoLogger.Printf("removed tag %q", name)
		}
		for _, name := range missing {
			infoLogger.Printf("no such tag %q", name)
		}
	},
}

func init() {
	datasetCmd.AddCommand(datasetTagsRemoveCmd)
}
