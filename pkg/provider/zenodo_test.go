package provider

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	corestatus "github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetries() []ClientOption {
	return []ClientOption{
		MaxRetries(2),
		RetryInterval(time.Millisecond),
	}
}

func newZenodoServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records/1234", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprintf(w, `{
			"id": 1234,
			"doi": "10.5281/zenodo.1234",
			"metadata": {
				"title": "Hourly Weather Observations",
				"description": "Observations over a year",
				"version": "2.1",
				"publication_date": "2021-06-01",
				"keywords": ["climate", "hourly"],
				"license": {"id": "CC-BY-4.0"},
				"creators": [{"name": "Ada Lovelace", "affiliation": "Analytical Engines"}]
			},
			"files": [
				{"key": "obs.csv", "size": 8, "links": {"download": "%s/files/obs.csv"}}
			]
		}`, base)
	})
	mux.HandleFunc("/files/obs.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	})
	return httptest.NewServer(mux)
}

func TestZenodoFetchMetadata(t *testing.T) {
	server := newZenodoServer(t)
	defer server.Close()
	ctx := context.Background()

	z := NewZenodo(server.URL, fastRetries()...)
	record, err := z.FetchMetadata(ctx, server.URL+"/record/1234")
	require.NoError(t, err)

	assert.Equal(t, "1234", record.ID)
	assert.Equal(t, "Hourly Weather Observations", record.Title)
	assert.Equal(t, "2.1", record.Version)
	assert.Equal(t, "CC-BY-4.0", record.License)
	assert.Equal(t, []string{"climate", "hourly"}, record.Keywords)
	require.Len(t, record.Creators, 1)
	assert.Equal(t, "Ada Lovelace", record.Creators[0].Name)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), record.PublishedAt)
}

func TestZenodoFetchFiles(t *testing.T) {
	server := newZenodoServer(t)
	defer server.Close()
	ctx := context.Background()

	z := NewZenodo(server.URL, fastRetries()...)
	files, err := z.FetchFiles(ctx, server.URL+"/record/1234")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "obs.csv", files[0].Path)
	assert.Equal(t, uint64(8), files[0].Size)

	rdr, err := files[0].Open(ctx)
	require.NoError(t, err)
	defer rdr.Close()
	content, err := ioutil.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestZenodoRecordID(t *testing.T) {
	for _, toPin := range []struct {
		uri string
		id  string
		ok  bool
	}{
		{uri: "https://zenodo.org/record/1234", id: "1234", ok: true},
		{uri: "https://sandbox.zenodo.org/records/42/files", id: "42", ok: true},
		{uri: "10.5281/zenodo.1234", id: "1234", ok: true},
		{uri: "doi:10.5281/zenodo.1234", id: "1234", ok: true},
		{uri: "10.7910/DVN/ABCDEF", ok: false},
		{uri: "https://example.com/datasets/foo", ok: false},
	} {
		testcase := toPin
		t.Run(testcase.uri, func(t *testing.T) {
			id, err := zenodoRecordID(testcase.uri)
			if !testcase.ok {
				require.Error(t, err)
				assert.False(t, zenodoHandles(testcase.uri))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testcase.id, id)
			assert.True(t, zenodoHandles(testcase.uri))
		})
	}
}

func TestZenodoUnknownRecord(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	ctx := context.Background()

	z := NewZenodo(server.URL, fastRetries()...)
	_, err := z.FetchMetadata(ctx, server.URL+"/record/999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, corestatus.ErrDatasetNotFound))
}

// countingDoer fails every request and counts attempts
type countingDoer struct {
	calls int
	resp  func() *http.Response
	err   error
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.resp(), nil
}

func TestZenodoRetriesThenNetworkError(t *testing.T) {
	doer := &countingDoer{err: fmt.Errorf("connection refused")}
	opts := append(fastRetries(), HTTPClient(doer))
	z := NewZenodo("https://zenodo.org", opts...)

	_, err := z.FetchMetadata(context.Background(), "https://zenodo.org/record/1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNetwork))
	assert.Equal(t, 3, doer.calls, "initial attempt plus two retries")
}

func TestZenodoAuthFailureIsNotRetried(t *testing.T) {
	doer := &countingDoer{resp: func() *http.Response {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Status:     "401 Unauthorized",
			Body:       ioutil.NopCloser(strings.NewReader("")),
		}
	}}
	opts := append(fastRetries(), HTTPClient(doer), AccessToken("bad-token"))
	z := NewZenodo("https://zenodo.org", opts...)

	_, err := z.FetchMetadata(context.Background(), "https://zenodo.org/record/1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidAccessToken))
	assert.Equal(t, 1, doer.calls)
}

func TestZenodoCreateDraftRequiresToken(t *testing.T) {
	z := NewZenodo("https://zenodo.org", fastRetries()...)
	_, err := z.CreateDraft(context.Background(), *testDescriptor("weather-obs"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidAccessToken))
}

func TestZenodoCreateDraft(t *testing.T) {
	mux := http.NewServeMux()
	var gotAuth string
	mux.HandleFunc("/api/deposit/depositions", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 777}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	z := NewZenodo(server.URL, fastRetries()...)
	id, err := z.CreateDraft(context.Background(), *testDescriptor("weather-obs"), "secret")
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	assert.Equal(t, "Bearer secret", gotAuth)
}
