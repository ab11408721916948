package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"go.uber.org/zap"
)

// Importer brings an external provider dataset into the project: metadata,
// files, and an automatic tag for the imported version.
type Importer struct {
	registry *core.Registry
	files    *core.Importer
	tags     *core.TagManager
	resolve  core.ProviderResolver
	l        *zap.Logger
}

// ImporterOption is a functor to build a provider importer with some options
type ImporterOption func(*Importer)

// ImportLogger injects a logging facility into provider imports
func ImportLogger(l *zap.Logger) ImporterOption {
	return func(i *Importer) {
		i.l = l
	}
}

// NewImporter builds a provider importer over the project's engine components
func NewImporter(registry *core.Registry, files *core.Importer, tags *core.TagManager, resolve core.ProviderResolver, opts ...ImporterOption) *Importer {
	i := &Importer{
		registry: registry,
		files:    files,
		tags:     tags,
		resolve:  resolve,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(i)
	}
	return i
}

// ImportRequest scopes one provider import
type ImportRequest struct {
	// Name overrides the dataset name derived from the remote record
	Name string

	// Extract decompresses archive-packaged payloads before materialization
	Extract bool
}

// Import fetches a provider dataset and registers it in the project.
//
// The remote record's metadata seeds the new dataset; its files are
// materialized under the dataset data root; the remote version is captured
// as an immutable tag. An unknown reference fails with ErrDatasetNotFound.
func (i *Importer) Import(ctx context.Context, uri string, req ImportRequest) (*model.DatasetDescriptor, error) {
	client, err := i.resolve(uri)
	if err != nil {
		return nil, err
	}

	record, err := client.FetchMetadata(ctx, uri)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = datasetNameFor(record, uri)
	}

	dataset, err := i.registry.Create(ctx, name,
		model.Title(record.Title),
		model.Description(record.Description),
		model.Creators(record.Creators),
		model.Keywords(record.Keywords),
		model.License(record.License),
		model.Language(record.Language),
		model.Version(record.Version),
		model.SourceURI(uri),
	)
	if err != nil {
		return nil, err
	}
	dataset.PublishedAt = record.PublishedAt

	files, err := client.FetchFiles(ctx, uri)
	if err != nil {
		return nil, err
	}
	if _, err = i.files.MaterializeProviderFiles(ctx, dataset, files, req.Extract); err != nil {
		return nil, err
	}
	if err = i.registry.Save(ctx, dataset); err != nil {
		return nil, err
	}

	if record.Version != "" {
		// capture the imported version; re-imports of the same record rebind it
		if _, err = i.tags.Tag(ctx, name, record.Version, "remote version "+record.Version, true); err != nil {
			return nil, err
		}
	}

	i.l.Info("imported dataset",
		zap.String("dataset", name),
		zap.String("source", uri),
		zap.String("version", record.Version),
		zap.Int("files", len(dataset.Files)),
	)
	return dataset, nil
}

var slugInvalidRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// datasetNameFor derives a dataset name slug from the remote record title,
// falling back to the reference itself
func datasetNameFor(record *core.ProviderRecord, uri string) string {
	slug := slugInvalidRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(record.Title)), "-")
	slug = strings.Trim(slug, "-_")
	if slug != "" && model.ValidateName(slug) == nil {
		return slug
	}
	return source.NameFromURI(uri)
}
