package core

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/fingerprint"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/source/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updateFixture struct {
	ctx      context.Context
	repo     *mocks.Repo
	registry *Registry
	engine   *UpdateEngine
	project  afero.Fs
	local    afero.Fs
}

func newUpdateFixture(t *testing.T, opts ...UpdateOption) *updateFixture {
	ctx := context.Background()
	repo := newHeadRepo("local0").
		AddRef(telemetryRepo, "main", "c1").
		AddFile(telemetryRepo, "c1", "data/x.csv", []byte("v1-x")).
		AddFile(telemetryRepo, "c1", "data/y.csv", []byte("v1-y"))

	project := afero.NewMemMapFs()
	local := afero.NewMemMapFs()
	registry := NewRegistry(newTestMeta())
	importer := NewImporter(project, repo, LocalFs(local))
	external := NewExternalManager(project, ExternalLocalFs(local))
	engine := NewUpdateEngine(registry, importer, external, repo, project, opts...)

	dataset, err := registry.Create(ctx, "telemetry")
	require.NoError(t, err)

	resolver := source.New(repo)
	refs, err := resolver.Resolve(ctx, telemetryRepo, []string{"data/**"}, "main")
	require.NoError(t, err)
	_, err = importer.Import(ctx, dataset, refs, "", false)
	require.NoError(t, err)
	require.NoError(t, registry.Save(ctx, dataset))

	return &updateFixture{
		ctx:      ctx,
		repo:     repo,
		registry: registry,
		engine:   engine,
		project:  project,
		local:    local,
	}
}

// moveSource advances the remote to c2: x.csv changes, y.csv vanishes
func (f *updateFixture) moveSource() {
	f.repo.AddRef(telemetryRepo, "main", "c2").
		AddFile(telemetryRepo, "c2", "data/x.csv", []byte("v2-x, now longer"))
}

func TestUpdateNoDrift(t *testing.T) {
	f := newUpdateFixture(t)

	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Updated)
	assert.Empty(t, reports[0].Deleted)
	assert.Empty(t, reports[0].Refreshed)
	assert.NoError(t, reports[0].Err)
}

func TestUpdateReimportsDriftedFiles(t *testing.T) {
	f := newUpdateFixture(t)
	before, err := f.registry.Get(f.ctx, "telemetry")
	require.NoError(t, err)
	f.moveSource()

	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"x.csv"}, reports[0].Updated)
	assert.Empty(t, reports[0].Deleted, "vanished sources are tolerated without delete")

	after, err := f.registry.Get(f.ctx, "telemetry")
	require.NoError(t, err)
	record, ok := after.FileByPath("x.csv")
	require.True(t, ok)
	assert.Equal(t, "c2", record.OriginCommit)
	beforeRecord, _ := before.FileByPath("x.csv")
	assert.NotEqual(t, beforeRecord.Checksum, record.Checksum)

	content, err := afero.ReadFile(f.project, record.FullPath)
	require.NoError(t, err)
	assert.Equal(t, "v2-x, now longer", string(content))

	// y.csv kept its record and content
	_, ok = after.FileByPath("y.csv")
	assert.True(t, ok)
}

func TestUpdateIncludeFilterIsolatesFiles(t *testing.T) {
	f := newUpdateFixture(t)
	f.moveSource()

	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{
		Include: []string{"y.csv"},
		Delete:  true,
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// x.csv drifted but was excluded by the filter; y.csv was deleted
	assert.Empty(t, reports[0].Updated)
	assert.Equal(t, []string{"y.csv"}, reports[0].Deleted)

	after, err := f.registry.Get(f.ctx, "telemetry")
	require.NoError(t, err)
	record, ok := after.FileByPath("x.csv")
	require.True(t, ok)
	assert.Equal(t, "c1", record.OriginCommit)
}

func TestUpdateDeleteRemovesVanishedFiles(t *testing.T) {
	f := newUpdateFixture(t)
	f.moveSource()

	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{Delete: true})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"x.csv"}, reports[0].Updated)
	assert.Equal(t, []string{"y.csv"}, reports[0].Deleted)

	after, err := f.registry.Get(f.ctx, "telemetry")
	require.NoError(t, err)
	_, ok := after.FileByPath("y.csv")
	assert.False(t, ok)

	_, err = f.project.Stat("data/telemetry/y.csv")
	require.Error(t, err, "deleted file content is removed from the working tree")
}

func TestUpdatePinnedRef(t *testing.T) {
	f := newUpdateFixture(t)
	f.moveSource()

	// pinning the original commit sees no drift
	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{Ref: "c1"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Updated)

	_, err = f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{Ref: "no-such-ref"})
	require.Error(t, err)
}

func TestUpdateCreatorFilter(t *testing.T) {
	f := newUpdateFixture(t)
	f.moveSource()

	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{
		Creators: []string{"nobody@example.com"},
	})
	require.NoError(t, err)
	assert.Empty(t, reports[0].Updated)
}

func TestUpdateExternalRefresh(t *testing.T) {
	f := newUpdateFixture(t)

	require.NoError(t, afero.WriteFile(f.local, "/mnt/share/huge.bin", []byte("before"), 0644))
	dataset, err := f.registry.Get(f.ctx, "telemetry")
	require.NoError(t, err)
	external := NewExternalManager(f.project, ExternalLocalFs(f.local))
	_, err = external.Link(f.ctx, dataset, "/mnt/share/huge.bin", "")
	require.NoError(t, err)
	require.NoError(t, f.registry.Save(f.ctx, dataset))

	require.NoError(t, afero.WriteFile(f.local, "/mnt/share/huge.bin", []byte("after, and longer"), 0644))

	// external files are only refreshed on request
	reports, err := f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{})
	require.NoError(t, err)
	assert.Empty(t, reports[0].Refreshed)

	reports, err = f.engine.Update(f.ctx, []string{"telemetry"}, UpdateRequest{External: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"huge.bin"}, reports[0].Refreshed)
}

type fakeProvider struct {
	record ProviderRecord
	files  []ProviderFile
}

func (p *fakeProvider) FetchMetadata(_ context.Context, _ string) (*ProviderRecord, error) {
	record := p.record
	return &record, nil
}

func (p *fakeProvider) FetchFiles(_ context.Context, _ string) ([]ProviderFile, error) {
	return p.files, nil
}

func (p *fakeProvider) CreateDraft(_ context.Context, _ model.DatasetDescriptor, _ string) (string, error) {
	return "draft-1", nil
}

func (p *fakeProvider) AccessTokenURL() string {
	return "https://zenodo.example.org/account/settings/applications/tokens/new/"
}

func payload(content string) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(content))), nil
	}
}

const recordURI = "https://zenodo.example.org/record/1234"

func newProviderFixture(t *testing.T, handler SelectionHandler) *updateFixture {
	client := &fakeProvider{
		record: ProviderRecord{
			ID:          "1234",
			Version:     "2",
			PublishedAt: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			URI:         recordURI,
		},
		files: []ProviderFile{
			{Path: "obs.csv", Size: 9, Open: payload("refreshed")},
		},
	}
	resolver := func(uri string) (ProviderClient, error) {
		return client, nil
	}
	opts := []UpdateOption{WithProviderResolver(resolver)}
	if handler != nil {
		opts = append(opts, WithSelectionHandler(handler))
	}

	f := newUpdateFixture(t, opts...)

	// a second dataset imported from a provider record, version 1
	dataset, err := f.registry.Create(f.ctx, "remote-obs",
		model.SourceURI(recordURI), model.Version("1"))
	require.NoError(t, err)

	full := "data/remote-obs/obs.csv"
	require.NoError(t, afero.WriteFile(f.project, full, []byte("original"), 0644))
	checksum, err := fingerprint.New().Process(f.project, full)
	require.NoError(t, err)
	dataset.Files = []model.DatasetFile{{
		Path:      "obs.csv",
		FullPath:  full,
		SourceURI: recordURI,
		Checksum:  checksum,
	}}
	require.NoError(t, f.registry.Save(f.ctx, dataset))
	return f
}

func TestUpdateProviderRejectsFilters(t *testing.T) {
	f := newProviderFixture(t, nil)

	reports, err := f.engine.Update(f.ctx, []string{"remote-obs"}, UpdateRequest{
		Include: []string{"*.csv"},
	})
	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.True(t, errors.Is(reports[0].Err, status.ErrIncompatibleFilter))
}

func TestUpdateProviderRefresh(t *testing.T) {
	f := newProviderFixture(t, nil)

	reports, err := f.engine.Update(f.ctx, []string{"remote-obs"}, UpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"obs.csv"}, reports[0].Updated)

	after, err := f.registry.Get(f.ctx, "remote-obs")
	require.NoError(t, err)
	assert.Equal(t, "2", after.Version)

	content, err := afero.ReadFile(f.project, "data/remote-obs/obs.csv")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", string(content))
}

func TestUpdateProviderLocalModification(t *testing.T) {
	f := newProviderFixture(t, nil)

	// local edits block the refresh unless explicitly acknowledged
	require.NoError(t, afero.WriteFile(f.project, "data/remote-obs/obs.csv", []byte("edited locally"), 0644))

	reports, err := f.engine.Update(f.ctx, []string{"remote-obs"}, UpdateRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(reports[0].Err, status.ErrLocalModification))

	confirmed := newProviderFixture(t, acceptAll{})
	require.NoError(t, afero.WriteFile(confirmed.project, "data/remote-obs/obs.csv", []byte("edited locally"), 0644))

	reports, err = confirmed.engine.Update(confirmed.ctx, []string{"remote-obs"}, UpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"obs.csv"}, reports[0].Updated)
}

func TestUpdateBatchCollectsFailures(t *testing.T) {
	// no provider resolver: the provider-origin dataset fails, the git one proceeds
	f := newUpdateFixture(t)
	_, err := f.registry.Create(f.ctx, "remote-obs", model.SourceURI(recordURI))
	require.NoError(t, err)
	f.moveSource()

	reports, err := f.engine.Update(f.ctx, []string{"remote-obs", "telemetry"}, UpdateRequest{})
	require.Error(t, err)
	require.Len(t, reports, 2)
	assert.Error(t, reports[0].Err)
	assert.Equal(t, "remote-obs", reports[0].Name)
	assert.NoError(t, reports[1].Err)
	assert.Equal(t, []string{"x.csv"}, reports[1].Updated)
}
