package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type flagsT struct {
	root struct {
		logLevel string
		project  string
	}
	dataset struct {
		Title       string
		Description string
		Creators    []string
		Keywords    []string
		License     string
		Language    string
	}
	add struct {
		Sources     []string
		Destination string
		Ref         string
		External    bool
		Overwrite   bool
		Create      bool
	}
	filters struct {
		Include  []string
		Exclude  []string
		Creators []string
	}
	update struct {
		Ref      string
		Delete   bool
		External bool
	}
	tag struct {
		Description string
		Force       bool
	}
	remote struct {
		Name     string
		Extract  bool
		Provider string
		Tag      string
		Token    string
	}
	force bool
}

var flags flagsT

func addLogLevelFlag(cmd *cobra.Command) string {
	const loglevel = "loglevel"
	cmd.PersistentFlags().StringVar(&flags.root.logLevel, loglevel, "none", "The logging level: none, info or debug")
	return loglevel
}

func addProjectFlag(cmd *cobra.Command) string {
	const project = "project"
	cmd.PersistentFlags().StringVar(&flags.root.project, project, "", "The project directory (default: current directory)")
	_ = viper.BindPFlag(project, cmd.PersistentFlags().Lookup(project))
	return project
}

func addTitleFlag(cmd *cobra.Command) string {
	const title = "title"
	cmd.Flags().StringVar(&flags.dataset.Title, title, "", "A human readable title for the dataset")
	return title
}

func addDescriptionFlag(cmd *cobra.Command) string {
	const description = "description"
	cmd.Flags().StringVar(&flags.dataset.Description, description, "", "A free text description of the dataset")
	return description
}

func addCreatorsFlag(cmd *cobra.Command) string {
	const creators = "creator"
	cmd.Flags().StringSliceVarP(&flags.dataset.Creators, creators, "c", nil,
		`A dataset creator as "Name <email> [affiliation]". Repeat for several creators`)
	return creators
}

func addKeywordsFlag(cmd *cobra.Command) string {
	const keywords = "keyword"
	cmd.Flags().StringSliceVarP(&flags.dataset.Keywords, keywords, "k", nil, "A keyword to classify the dataset. Repeat for several keywords")
	return keywords
}

func addLicenseFlag(cmd *cobra.Command) string {
	const license = "license"
	cmd.Flags().StringVar(&flags.dataset.License, license, "", "The license the dataset is distributed under")
	return license
}

func addLanguageFlag(cmd *cobra.Command) string {
	const language = "language"
	cmd.Flags().StringVar(&flags.dataset.Language, language, "", "The primary language of the dataset content")
	return language
}

func addSourceFlag(cmd *cobra.Command) string {
	const src = "source"
	cmd.Flags().StringSliceVarP(&flags.add.Sources, src, "s", nil,
		"A path or wildcard pattern within the source to import. Repeat for several sources")
	return src
}

func addDestinationFlag(cmd *cobra.Command) string {
	const destination = "destination"
	cmd.Flags().StringVarP(&flags.add.Destination, destination, "d", "", "The destination directory within the dataset data area")
	return destination
}

func addRefFlag(cmd *cobra.Command, target *string) string {
	const ref = "ref"
	cmd.Flags().StringVar(target, ref, "", "A git branch, tag or commit to pin the source at")
	return ref
}

func addExternalFlag(cmd *cobra.Command, target *bool, usage string) string {
	const external = "external"
	cmd.Flags().BoolVarP(target, external, "e", false, usage)
	return external
}

func addOverwriteFlag(cmd *cobra.Command) string {
	const overwrite = "overwrite"
	cmd.Flags().BoolVar(&flags.add.Overwrite, overwrite, false, "Replace files already tracked at the same path")
	return overwrite
}

func addCreateFlag(cmd *cobra.Command) string {
	const create = "create"
	cmd.Flags().BoolVar(&flags.add.Create, create, false, "Create the dataset when it does not exist yet")
	return create
}

func addIncludeFlag(cmd *cobra.Command) string {
	const include = "include"
	cmd.Flags().StringSliceVarP(&flags.filters.Include, include, "I", nil, "Restrict to files matching this glob pattern. Repeat for several patterns")
	return include
}

func addExcludeFlag(cmd *cobra.Command) string {
	const exclude = "exclude"
	cmd.Flags().StringSliceVarP(&flags.filters.Exclude, exclude, "X", nil, "Skip files matching this glob pattern. Repeat for several patterns")
	return exclude
}

func addFilterCreatorsFlag(cmd *cobra.Command) string {
	const creators = "creators"
	cmd.Flags().StringSliceVar(&flags.filters.Creators, creators, nil, "Restrict to files recorded with one of these creators")
	return creators
}

func addDeleteFlag(cmd *cobra.Command) string {
	const del = "delete"
	cmd.Flags().BoolVar(&flags.update.Delete, del, false, "Remove tracked files whose source no longer exists")
	return del
}

func addTagDescriptionFlag(cmd *cobra.Command) string {
	const description = "description"
	cmd.Flags().StringVar(&flags.tag.Description, description, "", "A free text description of the tagged state")
	return description
}

func addForceFlag(cmd *cobra.Command, target *bool, usage string) string {
	const force = "force"
	cmd.Flags().BoolVarP(target, force, "f", false, usage)
	return force
}

func addNameFlag(cmd *cobra.Command) string {
	const name = "name"
	cmd.Flags().StringVar(&flags.remote.Name, name, "", "Override the dataset name derived from the remote record")
	return name
}

func addExtractFlag(cmd *cobra.Command) string {
	const extract = "extract"
	cmd.Flags().BoolVar(&flags.remote.Extract, extract, false, "Extract zip and tar archives served by the provider")
	return extract
}

func addProviderFlag(cmd *cobra.Command) string {
	const prov = "provider"
	cmd.Flags().StringVar(&flags.remote.Provider, prov, "zenodo", "The catalog provider to export to: zenodo or dataverse")
	return prov
}

func addTagFlag(cmd *cobra.Command) string {
	const tag = "tag"
	cmd.Flags().StringVar(&flags.remote.Tag, tag, "", "Export the state captured by this tag instead of the current state")
	return tag
}

func addTokenFlag(cmd *cobra.Command) string {
	const token = "token"
	cmd.Flags().StringVar(&flags.remote.Token, token, "", "The provider access token. Prompted for when not given")
	_ = viper.BindPFlag(token, cmd.Flags().Lookup(token))
	return token
}
