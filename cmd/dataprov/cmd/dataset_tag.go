package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var datasetTagCmd = &cobra.Command{
	Use:   "tag <name> <tag>",
	Short: "Tag the current state of a dataset",
	Long: `Capture the current state of a dataset under an immutable tag.

The tag snapshots the dataset's file records and the project's current
commit. Later changes to the dataset do not affect existing tags. Tag
names follow the same rules as dataset names.
`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		tag, err := svc.tags.Tag(ctx, args[0], args[1], flags.tag.Description, flags.tag.Force)
		if err != nil {
			wrapFatalln("tag dataset", err)
			return
		}
		infoLogger.Printf("tagged %q as %q (%d files)", args[0], tag.Name, len(tag.Files))
	},
}

func init() {
	addTagDescriptionFlag(datasetTagCmd)
	addForceFlag(datasetTagCmd, &flags.tag.Force, "Rebind the tag when it already exists")
	datasetCmd.AddCommand(datasetTagCmd)
}
