package core

import (
	"context"
	"testing"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalLink(t *testing.T) {
	ctx := context.Background()

	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/mnt/share/huge.bin", []byte("0123456789"), 0644))

	project := afero.NewMemMapFs()
	em := NewExternalManager(project, ExternalLocalFs(local))
	dataset := model.NewDatasetDescriptor("telemetry")

	record, err := em.Link(ctx, dataset, "/mnt/share/huge.bin", "mounted")
	require.NoError(t, err)
	assert.True(t, record.External)
	assert.Equal(t, "mounted/huge.bin", record.Path)
	assert.Equal(t, "/mnt/share/huge.bin", record.SourcePath)
	assert.NotEmpty(t, record.Checksum)
	assert.Equal(t, uint64(10), record.Size)

	// only a link is placed in the project tree, content stays external
	_, err = project.Stat(record.FullPath)
	require.NoError(t, err)

	require.Len(t, dataset.Files, 1)
	require.NoError(t, model.Validate(*dataset))
}

func TestExternalLinkMissingSource(t *testing.T) {
	ctx := context.Background()
	em := NewExternalManager(afero.NewMemMapFs(), ExternalLocalFs(afero.NewMemMapFs()))
	dataset := model.NewDatasetDescriptor("telemetry")

	_, err := em.Link(ctx, dataset, "/mnt/share/absent.bin", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExternalSourceMissing))
	assert.Empty(t, dataset.Files)
}

func TestExternalRefresh(t *testing.T) {
	ctx := context.Background()

	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/mnt/share/huge.bin", []byte("before"), 0644))
	require.NoError(t, afero.WriteFile(local, "/mnt/share/still.bin", []byte("same"), 0644))

	project := afero.NewMemMapFs()
	em := NewExternalManager(project, ExternalLocalFs(local))
	dataset := model.NewDatasetDescriptor("telemetry")

	changed, err := em.Link(ctx, dataset, "/mnt/share/huge.bin", "")
	require.NoError(t, err)
	_, err = em.Link(ctx, dataset, "/mnt/share/still.bin", "")
	require.NoError(t, err)

	// nothing drifted yet
	refreshed, err := em.Refresh(ctx, dataset)
	require.NoError(t, err)
	assert.Empty(t, refreshed)

	require.NoError(t, afero.WriteFile(local, "/mnt/share/huge.bin", []byte("after, and longer"), 0644))

	refreshed, err = em.Refresh(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, []string{"huge.bin"}, refreshed)

	record, ok := dataset.FileByPath("huge.bin")
	require.True(t, ok)
	assert.NotEqual(t, changed.Checksum, record.Checksum)
	assert.Equal(t, uint64(len("after, and longer")), record.Size)
}

func TestExternalRefreshMissingSource(t *testing.T) {
	ctx := context.Background()

	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/mnt/share/huge.bin", []byte("content"), 0644))

	em := NewExternalManager(afero.NewMemMapFs(), ExternalLocalFs(local))
	dataset := model.NewDatasetDescriptor("telemetry")
	_, err := em.Link(ctx, dataset, "/mnt/share/huge.bin", "")
	require.NoError(t, err)

	require.NoError(t, local.Remove("/mnt/share/huge.bin"))

	_, err = em.Refresh(ctx, dataset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExternalSourceMissing))
}
