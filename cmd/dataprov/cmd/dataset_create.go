package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/model"
	"github.com/spf13/cobra"
)

var datasetCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new empty dataset",
	Long: `Create a new empty dataset in the project.

Names may contain letters, digits, '-' and '_'. Metadata given by flags is
recorded in the dataset descriptor; everything can be amended later with
'dataset edit'.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		opts := []model.DatasetDescriptorOption{
			model.Title(flags.dataset.Title),
			model.Description(flags.dataset.Description),
			model.Keywords(flags.dataset.Keywords),
			model.License(flags.dataset.License),
			model.Language(flags.dataset.Language),
		}
		if len(flags.dataset.Creators) > 0 {
			creators, err := model.ParseCreators(flags.dataset.Creators)
			if err != nil {
				wrapFatalln("parse creators", err)
				return
			}
			opts = append(opts, model.Creators(creators))
		}

		dataset, err := svc.registry.Create(ctx, args[0], opts...)
		if err != nil {
			wrapFatalln("create dataset", err)
			return
		}
		infoLogger.Printf("created dataset %q", dataset.Name)
	},
}

func init() {
	addTitleFlag(datasetCreateCmd)
	addDescriptionFlag(datasetCreateCmd)
	addCreatorsFlag(datasetCreateCmd)
	addKeywordsFlag(datasetCreateCmd)
	addLicenseFlag(datasetCreateCmd)
	addLanguageFlag(datasetCreateCmd)
	datasetCmd.AddCommand(datasetCreateCmd)
}
