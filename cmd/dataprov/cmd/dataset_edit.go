package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/spf13/cobra"
)

var datasetEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit the metadata of a dataset",
	Long: `Edit the metadata of a dataset.

Only the fields given by flags change; omitted fields keep their value.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		var fields core.EditFields
		if cmd.Flags().Changed("title") {
			fields.Title = &flags.dataset.Title
		}
		if cmd.Flags().Changed("description") {
			fields.Description = &flags.dataset.Description
		}
		if cmd.Flags().Changed("keyword") {
			fields.Keywords = flags.dataset.Keywords
		}
		if cmd.Flags().Changed("creator") {
			creators, err := model.ParseCreators(flags.dataset.Creators)
			if err != nil {
				wrapFatalln("parse creators", err)
				return
			}
			fields.Creators = creators
		}

		updated, warnings, err := svc.registry.Edit(ctx, args[0], fields)
		if err != nil {
			wrapFatalln("edit dataset", err)
			return
		}
		if len(updated) == 0 {
			infoLogger.Println("nothing to update: use metadata flags to change fields")
			return
		}
		infoLogger.Printf("updated fields: %v", updated)
		for _, w := range warnings {
			infoLogger.Println("warning:", w)
		}
	},
}

func init() {
	addTitleFlag(datasetEditCmd)
	addDescriptionFlag(datasetEditCmd)
	addCreatorsFlag(datasetEditCmd)
	addKeywordsFlag(datasetEditCmd)
	datasetCmd.AddCommand(datasetEditCmd)
}
