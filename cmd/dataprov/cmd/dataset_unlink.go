package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/model"
	"github.com/spf13/cobra"
)

var datasetUnlinkCmd = &cobra.Command{
	Use:   "unlink <name>",
	Short: "Remove files from a dataset",
	Long: `Remove tracked files from a dataset.

Files matching the --include patterns and not matching the --exclude
patterns stop being tracked. Their content is left in the project's data
area. Removal is confirmed on the terminal unless --force is given.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		confirm := func(files []model.DatasetFile) bool {
			if flags.force {
				return true
			}
			infoLogger.Printf("about to unlink %d file(s):", len(files))
			for _, f := range files {
				infoLogger.Println(" ", f.Path)
			}
			return newTerminalPrompter().Confirm("proceed?")
		}

		removed, err := svc.registry.Unlink(ctx, args[0], flags.filters.Include, flags.filters.Exclude, confirm)
		if err != nil {
			wrapFatalln("unlink files", err)
			return
		}
		if len(removed) == 0 {
			infoLogger.Println("no tracked file matches")
			return
		}
		for _, f := range removed {
			infoLogger.Printf("unlinked %s", f.Path)
		}
	},
}

func init() {
	addIncludeFlag(datasetUnlinkCmd)
	addExcludeFlag(datasetUnlinkCmd)
	addForceFlag(datasetUnlinkCmd, &flags.force, "Do not ask for confirmation")
	datasetCmd.AddCommand(datasetUnlinkCmd)
}
