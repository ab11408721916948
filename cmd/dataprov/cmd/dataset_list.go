package cmd

import (
	"bytes"
	"context"
	"text/template"

	"github.com/spf13/cobra"
)

var listLineTemplate = template.Must(template.New("list line").Parse(
	`{{.Name}}, {{.ID}}, {{len .Files}} files{{if .Version}}, version {{.Version}}{{end}}{{if .Title}}, {{.Title}}{{end}}`))

var datasetListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the datasets in the project",
	Long: `List the datasets in the project, sorted by name.

Each line shows the dataset name, id, tracked file count, and when present
the version and title.
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		datasets, err := svc.registry.List(ctx)
		if err != nil {
			wrapFatalln("list datasets", err)
			return
		}
		for i := range datasets {
			var buf bytes.Buffer
			if err := listLineTemplate.Execute(&buf, datasets[i]); err != nil {
				wrapFatalln("render line", err)
				return
			}
			infoLogger.Println(buf.String())
		}
	},
}

func init() {
	datasetCmd.AddCommand(datasetListCmd)
}
