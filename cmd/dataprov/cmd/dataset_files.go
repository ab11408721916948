package cmd

import (
	"bytes"
	"context"
	"text/template"

	"github.com/spf13/cobra"
)

var fileLineTemplate = template.Must(template.New("file line").
	Funcs(template.FuncMap{"short": shortCommit}).
	Parse(`{{.DatasetName}}	{{.Path}}	{{.Size}}	{{if .External}}external{{else}}{{.SourceURI}}{{end}}{{if .OriginCommit}}	@{{short .OriginCommit}}{{end}}`))

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

var datasetFilesCmd = &cobra.Command{
	Use:   "ls-files [<name>...]",
	Short: "List the files tracked by datasets",
	Long: `List the files tracked by the named datasets, or by all datasets when
no name is given. Results are ordered by dataset then path.
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		records, err := svc.registry.ListFiles(ctx, args,
			flags.filters.Creators, flags.filters.Include, flags.filters.Exclude)
		if err != nil {
			wrapFatalln("list files", err)
			return
		}
		for _, record := range records {
			var buf bytes.Buffer
			if err := fileLineTemplate.Execute(&buf, record); err != nil {
				wrapFatalln("render line", err)
				return
			}
			infoLogger.Println(buf.String())
		}
	},
}

func init() {
	addIncludeFlag(datasetFilesCmd)
	addExcludeFlag(datasetFilesCmd)
	addFilterCreatorsFlag(datasetFilesCmd)
	datasetCmd.AddCommand(datasetFilesCmd)
}
