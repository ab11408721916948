package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/provider"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var datasetExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a dataset to a catalog provider",
	Long: `Export a dataset to a catalog provider as an unpublished draft.

With --tag, the state captured by that tag is exported; otherwise the
dataset's tags are offered for selection, falling back to the current
state. An access token for the provider is required: it is taken from the
--token flag or configuration, or prompted for.

The draft is left for review on the provider: publication happens there.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		var client core.ProviderClient
		switch flags.remote.Provider {
		case "zenodo":
			client = provider.NewZenodo(viper.GetString("zenodo"), provider.ClientLogger(svc.logger))
		case "dataverse":
			base := viper.GetString("dataverse")
			if base == "" {
				wrapFatalln("select provider", errors.New("no dataverse instance configured"))
				return
			}
			client = provider.NewDataverse(base, provider.ClientLogger(svc.logger))
		default:
			wrapFatalln("select provider", errors.New("unknown provider").WrapMessage("%q", flags.remote.Provider))
			return
		}

		var selection core.SelectionHandler = newTerminalPrompter()
		if flags.remote.Tag != "" {
			tags, terr := svc.tags.ListTags(ctx, args[0])
			if terr != nil {
				wrapFatalln("list tags", terr)
				return
			}
			found := false
			for i := range tags {
				if tags[i].Name == flags.remote.Tag {
					found = true
					break
				}
			}
			if !found {
				wrapFatalln("export dataset", errors.New("no such tag").WrapMessage("%q", flags.remote.Tag))
				return
			}
			selection = namedTagPicker{name: flags.remote.Tag}
		}

		exporter := provider.NewExporter(svc.registry, svc.tags,
			provider.ExportSelection(selection),
			provider.ExportTokens(tokenFromFlagOrPrompt(viper.GetString("token"))),
			provider.ExportLogger(svc.logger),
		)
		draftID, err := exporter.Export(ctx, client, args[0])
		if err != nil {
			wrapFatalln("export dataset", err)
			return
		}
		infoLogger.Printf("exported %q as draft %s: review and publish it on the provider", args[0], draftID)
	},
}

func init() {
	addProviderFlag(datasetExportCmd)
	addTagFlag(datasetExportCmd)
	addTokenFlag(datasetExportCmd)
	datasetCmd.AddCommand(datasetExportCmd)
}
