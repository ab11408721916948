package provider

import (
	"context"
	"io/ioutil"
	"testing"

	corestatus "github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

const remoteProject = "https://gitlab.example.com/acme/telemetry.git"

func newRemoteProject(t *testing.T) *mocks.Repo {
	dataset := testDescriptor("weather-obs")
	dataset.Files = []model.DatasetFile{
		{
			Path:     "a.csv",
			FullPath: "data/weather-obs/a.csv",
			Checksum: "feed",
			Size:     8,
		},
		{
			Path:     "linked.bin",
			FullPath: "data/weather-obs/linked.bin",
			External: true,
			Checksum: "beef",
		},
	}
	buffer, err := yaml.Marshal(dataset)
	require.NoError(t, err)

	return mocks.NewRepo("head0").
		AddRef(remoteProject, "main", "c1").
		AddFile(remoteProject, "c1", ".dataprov/metadata/datasets/weather-obs/dataset.yaml", buffer).
		AddFile(remoteProject, "c1", "data/weather-obs/a.csv", []byte("a,b\n1,2\n"))
}

func TestProjectFetchMetadata(t *testing.T) {
	ctx := context.Background()
	p := NewProject(newRemoteProject(t))

	record, err := p.FetchMetadata(ctx, remoteProject+"#weather-obs")
	require.NoError(t, err)
	assert.Equal(t, "weather-obs", record.Name)
	assert.Equal(t, "Hourly Weather Observations", record.Title)
	assert.Equal(t, "1.0", record.Version)
	require.Len(t, record.Creators, 1)
}

func TestProjectFetchMetadataUnknownDataset(t *testing.T) {
	ctx := context.Background()
	p := NewProject(newRemoteProject(t))

	_, err := p.FetchMetadata(ctx, remoteProject+"#no-such-dataset")
	require.Error(t, err)
	assert.True(t, errors.Is(err, corestatus.ErrDatasetNotFound))
}

func TestProjectFetchFiles(t *testing.T) {
	ctx := context.Background()
	p := NewProject(newRemoteProject(t))

	files, err := p.FetchFiles(ctx, remoteProject+"#weather-obs")
	require.NoError(t, err)

	// external records are not served: their content lives outside the project
	require.Len(t, files, 1)
	assert.Equal(t, "a.csv", files[0].Path)
	assert.Equal(t, "feed", files[0].Checksum, "remote checksums are carried over")

	rdr, err := files[0].Open(ctx)
	require.NoError(t, err)
	defer rdr.Close()
	content, err := ioutil.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestProjectCreateDraftUnsupported(t *testing.T) {
	p := NewProject(newRemoteProject(t))
	_, err := p.CreateDraft(context.Background(), *testDescriptor("weather-obs"), "token")
	require.Error(t, err)
	assert.Empty(t, p.AccessTokenURL())
}

func TestProjectHandles(t *testing.T) {
	assert.True(t, projectHandles(remoteProject+"#weather-obs"))
	assert.False(t, projectHandles(remoteProject))
	assert.False(t, projectHandles("https://zenodo.org/record/1#weather-obs"))
	assert.False(t, projectHandles(remoteProject+"#"))
}
