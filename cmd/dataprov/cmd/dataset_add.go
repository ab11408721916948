package cmd

import (
	"context"

	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/spf13/cobra"
)

var datasetAddCmd = &cobra.Command{
	Use:   "add <name> <uri> [<uri>...]",
	Short: "Add files to a dataset",
	Long: `Add files to a dataset from local paths or git repositories.

Local paths are copied as-is. For git repositories, --source selects files
or directories within the remote tree, with wildcard support (*, ** and ?),
and --ref pins a branch, tag or commit. With --external, local paths are
linked in place instead of copied: only their location and checksum are
recorded.
`,
	Example: `
dataprov dataset add my-data ./measurements.csv
dataprov dataset add my-data https://github.com/acme/telemetry.git -s 'data/**' --ref v2.1
dataprov dataset add my-data /mnt/share/huge.bin --external`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()
		name, uris := args[0], args[1:]

		dataset, err := svc.registry.Get(ctx, name)
		if err != nil {
			if !flags.add.Create {
				wrapFatalln("get dataset (use --create to create it)", err)
				return
			}
			dataset, err = svc.registry.Create(ctx, name)
			if err != nil {
				wrapFatalln("create dataset", err)
				return
			}
			infoLogger.Printf("created dataset %q", name)
		}

		if flags.add.External {
			for _, uri := range uris {
				file, lerr := svc.external.Link(ctx, dataset, uri, flags.add.Destination)
				if lerr != nil {
					wrapFatalln("link external file", lerr)
					return
				}
				infoLogger.Printf("linked %s (external)", file.Path)
			}
			if err = svc.registry.Save(ctx, dataset); err != nil {
				wrapFatalln("save dataset", err)
				return
			}
			return
		}

		var refs []source.Ref
		for _, uri := range uris {
			kind, kerr := source.ClassifyURI(uri)
			if kerr != nil {
				wrapFatalln("classify source", kerr)
				return
			}
			if kind == source.KindProvider {
				wrapFatalln("add files", errors.New("provider references are imported with 'dataset import'"))
				return
			}
			resolved, rerr := svc.resolver.Resolve(ctx, uri, flags.add.Sources, flags.add.Ref)
			if rerr != nil {
				wrapFatalln("resolve source", rerr)
				return
			}
			refs = append(refs, resolved...)
		}

		result, err := svc.importer.Import(ctx, dataset, refs, flags.add.Destination, flags.add.Overwrite)
		if err != nil {
			wrapFatalln("import files", err)
			return
		}
		if err = svc.registry.Save(ctx, dataset); err != nil {
			wrapFatalln("save dataset", err)
			return
		}
		for _, f := range result.Added {
			infoLogger.Printf("added %s (%s)", f.Path, shortChecksum(f))
		}
		for _, p := range result.Skipped {
			infoLogger.Printf("skipped %s: already tracked (use --overwrite to replace)", p)
		}
	},
}

func shortChecksum(f model.DatasetFile) string {
	if len(f.Checksum) > 12 {
		return f.Checksum[:12]
	}
	return f.Checksum
}

func init() {
	addSourceFlag(datasetAddCmd)
	addDestinationFlag(datasetAddCmd)
	addRefFlag(datasetAddCmd, &flags.add.Ref)
	addExternalFlag(datasetAddCmd, &flags.add.External, "Link local files in place instead of copying them")
	addOverwriteFlag(datasetAddCmd)
	addCreateFlag(datasetAddCmd)
	datasetCmd.AddCommand(datasetAddCmd)
}
