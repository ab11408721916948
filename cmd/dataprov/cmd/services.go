package cmd

import (
	"path/filepath"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/dlogger"
	"github.com/dataprov/dataprov/pkg/provider"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/source/gitexec"
	"github.com/dataprov/dataprov/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const metadataDir = ".dataprov/metadata"

// services assembles the engine components over one project directory.
//
// Commands build this once in their Run function: construction involves no
// I/O, so a bad project directory only surfaces on the first operation.
type services struct {
	project  afero.Fs
	repo     *gitexec.Repo
	resolver *source.Resolver
	registry *core.Registry
	importer *core.Importer
	external *core.ExternalManager
	tags     *core.TagManager
	update   *core.UpdateEngine
	provide  core.ProviderResolver
	logger   *zap.Logger
}

func newServices() *services {
	logger, err := dlogger.GetLogger(flags.root.logLevel)
	if err != nil {
		wrapFatalln("set log level", err)
		return nil
	}

	projectDir := viper.GetString("project")
	if projectDir == "" {
		projectDir = "."
	}
	project := afero.NewBasePathFs(afero.NewOsFs(), projectDir)
	meta := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(projectDir, metadataDir)))

	var gitOpts []gitexec.Option
	gitOpts = append(gitOpts, gitexec.WorkDir(projectDir), gitexec.Logger(logger))
	if cache := viper.GetString("cache"); cache != "" {
		gitOpts = append(gitOpts, gitexec.CacheDir(cache))
	}
	repo := gitexec.New(gitOpts...)

	registry := core.NewRegistry(meta, core.RegistryLogger(logger))
	importer := core.NewImporter(project, repo,
		core.ImporterLogger(logger),
		core.Progress(newConsoleProgress()),
	)
	external := core.NewExternalManager(project, core.ExternalLogger(logger))
	tags := core.NewTagManager(meta, repo, registry, core.TagLogger(logger))

	provide := provider.NewResolver(provider.ResolverConfig{
		ZenodoBase:    viper.GetString("zenodo"),
		DataverseBase: viper.GetString("dataverse"),
		Repo:          repo,
		Token:         viper.GetString("token"),
		Logger:        logger,
	})

	update := core.NewUpdateEngine(registry, importer, external, repo, project,
		core.UpdateLogger(logger),
		core.WithProviderResolver(provide),
		core.WithSelectionHandler(newTerminalPrompter()),
	)

	return &services{
		project:  project,
		repo:     repo,
		resolver: source.New(repo, source.Logger(logger)),
		registry: registry,
		importer: importer,
		external: external,
		tags:     tags,
		update:   update,
		provide:  provide,
		logger:   logger,
	}
}
