package cmd

import (
	"bytes"
	"context"
	"text/template"

	"github.com/spf13/cobra"
)

var tagLineTemplate = template.Must(template.New("tag line").
	Funcs(template.FuncMap{"short": shortCommit}).
	Parse(`{{.Name}}	{{.CreatedAt.Format "2006-01-02 15:04"}}	{{len .Files}} files	@{{short .CommitID}}{{if .Description}}	{{.Description}}{{end}}`))

var datasetTagsListCmd = &cobra.Command{
	Use:   "ls-tags <name>",
	Short: "List the tags of a dataset",
	Long:  `List the tags of a dataset, oldest first.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := newServices()

		tags, err := svc.tags.ListTags(ctx, args[0])
		if err != nil {
			wrapFatalln("list tags", err)
			return
		}
		for i := range tags {
			var buf bytes.Buffer
			if err := tagLineTemplate.Execute(&buf, tags[i]); err != nil {
				wrapFatalln("render line", err)
				return
			}
			infoLogger.Println(buf.String())
		}
	},
}

func init() {
	datasetCmd.AddCommand(datasetTagsListCmd)
}
