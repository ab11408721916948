package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/spf13/cobra"
)

var datasetUpdateCmd = &cobra.Command{
	Use:   "update [<name>...]",
	Short: "Synchronize datasets with their sources",
	Long: `Synchronize the named datasets with their sources, or all datasets when
no name is given.

Files imported from git repositories are re-imported when their source
content changed at the latest commit of their origin branch, or at the
commit given by --ref. With --delete, files whose source vanished are
removed. Datasets imported from a catalog provider are refreshed against
the provider's current record. Externally linked files are only refreshed
with --external.

Failures on one dataset do not stop the others; a combined error is
reported at the end.
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		reports, err := svc.update.Update(ctx, args, core.UpdateRequest{
			Ref:      flags.update.Ref,
			Include:  flags.filters.Include,
			Exclude:  flags.filters.Exclude,
			Creators: flags.filters.Creators,
			Delete:   flags.update.Delete,
			External: flags.update.External,
		})
		for _, report := range reports {
			switch {
			case report.Err != nil:
				infoLogger.Printf("%s: failed: %v", report.Name, report.Err)
			case len(report.Updated)+len(report.Deleted)+len(report.Refreshed) == 0:
				infoLogger.Printf("%s: up to date", report.Name)
			default:
				for _, p := range report.Updated {
					infoLogger.Printf("%s: updated %s", report.Name, p)
				}
				for _, p := range report.Deleted {
					infoLogger.Printf("%s: deleted %s", report.Name, p)
				}
				for _, p := range report.Refreshed {
					infoLogger.Printf("%s: refreshed %s", report.Name, p)
				}
			}
		}
		if err != nil {
			wrapFatalln("update datasets", err)
			return
		}
	},
}

func init() {
	addRefFlag(datasetUpdateCmd, &flags.update.Ref)
	addIncludeFlag(datasetUpdateCmd)
	addExcludeFlag(datasetUpdateCmd)
	addFilterCreatorsFlag(datasetUpdateCmd)
	addDeleteFlag(datasetUpdateCmd)
	addExternalFlag(datasetUpdateCmd, &flags.update.External, "Also refresh externally linked files")
	datasetCmd.AddCommand(datasetUpdateCmd)
}
