package provider

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"testing"

	"github.com/dataprov/dataprov/pkg/core"
	corestatus "github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/source/mocks"
	"github.com/dataprov/dataprov/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(name string) *model.DatasetDescriptor {
	return model.NewDatasetDescriptor(name,
		model.Title("Hourly Weather Observations"),
		model.Description("Observations over a year"),
		model.SingleCreator(model.Creator{Name: "Ada Lovelace", Email: "ada@example.com"}),
		model.Version("1.0"),
	)
}

// memCatalog is an in-memory provider used to close the export/import loop
type memCatalog struct {
	record  core.ProviderRecord
	files   []core.ProviderFile
	draft   *model.DatasetDescriptor
	missing bool
}

func (c *memCatalog) FetchMetadata(context.Context, string) (*core.ProviderRecord, error) {
	if c.missing {
		return nil, corestatus.ErrDatasetNotFound.WrapMessage("record gone")
	}
	record := c.record
	return &record, nil
}

func (c *memCatalog) FetchFiles(context.Context, string) ([]core.ProviderFile, error) {
	return c.files, nil
}

func (c *memCatalog) CreateDraft(_ context.Context, dataset model.DatasetDescriptor, token string) (string, error) {
	if token != "secret" {
		return "", status.ErrInvalidAccessToken.WrapMessage("token rejected")
	}
	draft := dataset
	c.draft = &draft
	return "draft-1", nil
}

func (c *memCatalog) AccessTokenURL() string {
	return "https://catalog.example.org/tokens"
}

func streamOf(content []byte) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(content)), nil
	}
}

// tagPicker selects a named tag snapshot for export
type tagPicker struct {
	name string
}

func (p tagPicker) SelectTag(tags []model.TagDescriptor) *model.TagDescriptor {
	for i := range tags {
		if tags[i].Name == p.name {
			return &tags[i]
		}
	}
	return nil
}

func (tagPicker) Confirm(string) bool { return true }

type projectFixture struct {
	registry *core.Registry
	importer *core.Importer
	tags     *core.TagManager
	project  afero.Fs
}

func newProjectFixture() *projectFixture {
	meta := localfs.New(afero.NewMemMapFs())
	project := afero.NewMemMapFs()
	repo := mocks.NewRepo("head0")
	registry := core.NewRegistry(meta)
	return &projectFixture{
		registry: registry,
		importer: core.NewImporter(project, repo, core.LocalFs(project)),
		tags:     core.NewTagManager(meta, repo, registry),
		project:  project,
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	// project A builds and tags a dataset from staged local files
	src := newProjectFixture()
	require.NoError(t, afero.WriteFile(src.project, "/stage/a.csv", []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, afero.WriteFile(src.project, "/stage/sub/b.csv", []byte("c,d\n3,4\n"), 0644))

	dataset, err := src.registry.Create(ctx, "weather-obs",
		model.Title("Hourly Weather Observations"),
		model.SingleCreator(model.Creator{Name: "Ada Lovelace", Email: "ada@example.com"}),
		model.Version("1.0"),
	)
	require.NoError(t, err)

	_, err = src.importer.Import(ctx, dataset, []source.Ref{
		{Kind: source.KindLocal, SourcePath: "/stage/a.csv"},
		{Kind: source.KindLocal, SourcePath: "/stage/sub/b.csv"},
	}, "", false)
	require.NoError(t, err)
	require.NoError(t, src.registry.Save(ctx, dataset))

	_, err = src.tags.Tag(ctx, "weather-obs", "v1", "", false)
	require.NoError(t, err)

	// export the v1 snapshot
	catalog := &memCatalog{}
	exporter := NewExporter(src.registry, src.tags,
		ExportSelection(tagPicker{name: "v1"}),
		ExportTokens(func(string) (string, error) { return "secret", nil }),
	)
	draftID, err := exporter.Export(ctx, catalog, "weather-obs")
	require.NoError(t, err)
	assert.Equal(t, "draft-1", draftID)
	require.NotNil(t, catalog.draft)
	assert.Equal(t, "v1", catalog.draft.Version)

	exported, err := src.registry.Get(ctx, "weather-obs")
	require.NoError(t, err)
	assert.Equal(t, "v1", exported.ExportedVersion)

	// the catalog serves what was exported
	catalog.record = core.ProviderRecord{
		ID:       "77",
		Title:    catalog.draft.Title,
		Creators: catalog.draft.Creators,
		Version:  catalog.draft.Version,
		URI:      "https://catalog.example.org/record/77",
	}
	for _, f := range catalog.draft.Files {
		content, rerr := afero.ReadFile(src.project, f.FullPath)
		require.NoError(t, rerr)
		catalog.files = append(catalog.files, core.ProviderFile{
			Path: f.Path,
			Size: f.Size,
			Open: streamOf(content),
		})
	}

	// project B imports the record
	dst := newProjectFixture()
	resolve := func(string) (core.ProviderClient, error) { return catalog, nil }
	imported, err := NewImporter(dst.registry, dst.importer, dst.tags, resolve).
		Import(ctx, "https://catalog.example.org/record/77", ImportRequest{})
	require.NoError(t, err)

	assert.Equal(t, "hourly-weather-observations", imported.Name)
	assert.Equal(t, "https://catalog.example.org/record/77", imported.SourceURI)
	require.Len(t, imported.Files, len(dataset.Files))

	// paths and checksums survive the round trip
	for _, want := range dataset.Files {
		got, ok := imported.FileByPath(want.Path)
		require.True(t, ok, "missing %q after round trip", want.Path)
		assert.Equal(t, want.Checksum, got.Checksum)

		content, rerr := afero.ReadFile(dst.project, got.FullPath)
		require.NoError(t, rerr)
		original, rerr := afero.ReadFile(src.project, want.FullPath)
		require.NoError(t, rerr)
		assert.Equal(t, original, content)
	}

	// the imported version was captured as a tag
	tag, err := dst.tags.GetTag(ctx, imported.Name, "v1")
	require.NoError(t, err)
	assert.Len(t, tag.Files, len(dataset.Files))
}

func TestExportWithoutToken(t *testing.T) {
	ctx := context.Background()
	src := newProjectFixture()
	_, err := src.registry.Create(ctx, "weather-obs")
	require.NoError(t, err)

	catalog := &memCatalog{}

	// no token source at all
	exporter := NewExporter(src.registry, src.tags)
	_, err = exporter.Export(ctx, catalog, "weather-obs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidAccessToken))

	// empty token from the source
	exporter = NewExporter(src.registry, src.tags,
		ExportTokens(func(string) (string, error) { return "", nil }))
	_, err = exporter.Export(ctx, catalog, "weather-obs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidAccessToken))
}

func TestImportUnknownRecord(t *testing.T) {
	ctx := context.Background()
	dst := newProjectFixture()
	catalog := &memCatalog{missing: true}
	resolve := func(string) (core.ProviderClient, error) { return catalog, nil }

	_, err := NewImporter(dst.registry, dst.importer, dst.tags, resolve).
		Import(ctx, "https://catalog.example.org/record/0", ImportRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, corestatus.ErrDatasetNotFound))
}
