package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var datasetRemoveCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a dataset and its tags",
	Long: `Remove a dataset from the project.

The dataset descriptor and all of its tags are deleted from the metadata
area. Files under the project's data area are left in place.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		if err := svc.registry.Remove(ctx, args[0]); err != nil {
			wrapFatalln("remove dataset", err)
			return
		}
		infoLogger.Printf("removed dataset %q", args[0])
	},
}

func init() {
	datasetCmd.AddCommand(datasetRemoveCmd)
}
