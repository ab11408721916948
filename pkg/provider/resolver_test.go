package provider

import (
	"testing"

	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"github.com/dataprov/dataprov/pkg/source/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverSelection(t *testing.T) {
	resolve := NewResolver(ResolverConfig{
		DataverseBase: "https://dataverse.example.org",
		Repo:          mocks.NewRepo("head0"),
	})

	for _, toPin := range []struct {
		uri  string
		want interface{}
	}{
		{uri: "https://zenodo.org/record/1234", want: &Zenodo{}},
		{uri: "doi:10.5281/zenodo.1234", want: &Zenodo{}},
		{uri: "https://sandbox.zenodo.org/records/42", want: &Zenodo{}},
		{uri: "https://dataverse.harvard.edu/dataset.xhtml?persistentId=doi:10.7910/DVN/ABCDEF", want: &Dataverse{}},
		{uri: "doi:10.7910/DVN/ABCDEF", want: &Dataverse{}},
		{uri: "https://gitlab.example.com/acme/telemetry.git#weather-obs", want: &Project{}},
	} {
		testcase := toPin
		t.Run(testcase.uri, func(t *testing.T) {
			client, err := resolve(testcase.uri)
			require.NoError(t, err)
			assert.IsType(t, testcase.want, client)
		})
	}
}

func TestResolverInstanceFromURL(t *testing.T) {
	resolve := NewResolver(ResolverConfig{})

	client, err := resolve("https://sandbox.zenodo.org/record/42")
	require.NoError(t, err)
	z, ok := client.(*Zenodo)
	require.True(t, ok)
	assert.Equal(t, "https://sandbox.zenodo.org", z.base)

	// bare DOIs fall back to the configured instance
	client, err = resolve("doi:10.5281/zenodo.42")
	require.NoError(t, err)
	z, ok = client.(*Zenodo)
	require.True(t, ok)
	assert.Equal(t, "https://zenodo.org", z.base)
}

func TestResolverRejections(t *testing.T) {
	resolve := NewResolver(ResolverConfig{})

	// plain DOI to Dataverse without a configured instance
	_, err := resolve("doi:10.7910/DVN/ABCDEF")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotSupported))

	// project grammar without a repository collaborator
	_, err = resolve("https://gitlab.example.com/acme/telemetry.git#weather-obs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotSupported))

	_, err = resolve("ftp://example.com/some/file")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotSupported))
}
