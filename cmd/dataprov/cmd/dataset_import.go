package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/provider"
	"github.com/spf13/cobra"
)

var datasetImportCmd = &cobra.Command{
	Use:   "import <uri>",
	Short: "Import a dataset from a catalog provider",
	Long: `Import a published dataset from a catalog provider into the project.

Supported references are Zenodo record URLs and DOIs, Dataverse dataset
URLs, plain DOIs resolved against the configured Dataverse instance, and
datasets in other projects as '<git-uri>#<dataset-name>'.

The remote record's metadata and files are fetched, and the remote
version, when published, is captured as a tag.
`,
	Example: `
dataprov dataset import https://zenodo.org/record/3831980
dataprov dataset import doi:10.5281/zenodo.3831980 --name sea-ice
dataprov dataset import 'https://github.com/acme/telemetry.git#weather-obs'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		importer := provider.NewImporter(svc.registry, svc.importer, svc.tags, svc.provide,
			provider.ImportLogger(svc.logger))
		dataset, err := importer.Import(ctx, args[0], provider.ImportRequest{
			Name:    flags.remote.Name,
			Extract: flags.remote.Extract,
		})
		if err != nil {
			wrapFatalln("import dataset", err)
			return
		}
		infoLogger.Printf("imported dataset %q (%d files)", dataset.Name, len(dataset.Files))
	},
}

func init() {
	addNameFlag(datasetImportCmd)
	addExtractFlag(datasetImportCmd)
	datasetCmd.AddCommand(datasetImportCmd)
}
