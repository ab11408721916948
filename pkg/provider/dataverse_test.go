package provider

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataverseServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/:persistentId/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "doi:10.7910/DVN/ABCDEF", r.URL.Query().Get("persistentId"))
		fmt.Fprint(w, `{
			"status": "OK",
			"data": {
				"id": 99,
				"persistentUrl": "https://doi.org/10.7910/DVN/ABCDEF",
				"latestVersion": {
					"versionNumber": 3,
					"versionMinorNumber": 1,
					"releaseTime": "2020-02-03T10:00:00Z",
					"license": {"name": "CC0 1.0"},
					"metadataBlocks": {
						"citation": {
							"fields": [
								{"typeName": "title", "typeClass": "primitive", "value": "Survey Responses"},
								{"typeName": "author", "typeClass": "compound", "value": [
									{"authorName": {"typeName": "authorName", "value": "Grace Hopper"},
									 "authorAffiliation": {"typeName": "authorAffiliation", "value": "Navy"}}
								]},
								{"typeName": "dsDescription", "typeClass": "compound", "value": [
									{"dsDescriptionValue": {"typeName": "dsDescriptionValue", "value": "Raw survey data"}}
								]},
								{"typeName": "keyword", "typeClass": "compound", "value": [
									{"keywordValue": {"typeName": "keywordValue", "value": "survey"}}
								]}
							]
						}
					},
					"files": [
						{"label": "answers.csv", "directoryLabel": "raw",
						 "dataFile": {"id": 501, "filename": "answers.csv", "filesize": 12}}
					]
				}
			}
		}`)
	})
	mux.HandleFunc("/api/access/datafile/501", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("q1,q2\nyes,no"))
	})
	return httptest.NewServer(mux)
}

func TestDataverseFetchMetadata(t *testing.T) {
	server := newDataverseServer(t)
	defer server.Close()
	ctx := context.Background()

	d := NewDataverse(server.URL, fastRetries()...)
	record, err := d.FetchMetadata(ctx, server.URL+"/dataset.xhtml?persistentId=doi:10.7910/DVN/ABCDEF")
	require.NoError(t, err)

	assert.Equal(t, "99", record.ID)
	assert.Equal(t, "Survey Responses", record.Title)
	assert.Equal(t, "Raw survey data", record.Description)
	assert.Equal(t, "3.1", record.Version)
	assert.Equal(t, "CC0 1.0", record.License)
	assert.Equal(t, []string{"survey"}, record.Keywords)
	require.Len(t, record.Creators, 1)
	assert.Equal(t, "Grace Hopper", record.Creators[0].Name)
	assert.Equal(t, "Navy", record.Creators[0].Affiliation)
}

func TestDataverseFetchFiles(t *testing.T) {
	server := newDataverseServer(t)
	defer server.Close()
	ctx := context.Background()

	d := NewDataverse(server.URL, fastRetries()...)
	files, err := d.FetchFiles(ctx, server.URL+"/dataset.xhtml?persistentId=doi:10.7910/DVN/ABCDEF")
	require.NoError(t, err)
	require.Len(t, files, 1)

	// directoryLabel sub-structure is preserved
	assert.Equal(t, "raw/answers.csv", files[0].Path)
	assert.Equal(t, uint64(12), files[0].Size)

	rdr, err := files[0].Open(ctx)
	require.NoError(t, err)
	defer rdr.Close()
	content, err := ioutil.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, "q1,q2\nyes,no", string(content))
}

func TestDataversePersistentID(t *testing.T) {
	for _, toPin := range []struct {
		uri string
		id  string
		ok  bool
	}{
		{uri: "https://dataverse.example.org/dataset.xhtml?persistentId=doi:10.7910/DVN/ABCDEF", id: "doi:10.7910/DVN/ABCDEF", ok: true},
		{uri: "10.7910/DVN/ABCDEF", id: "doi:10.7910/DVN/ABCDEF", ok: true},
		{uri: "doi:10.7910/DVN/ABCDEF", id: "doi:10.7910/DVN/ABCDEF", ok: true},
		{uri: "https://zenodo.org/record/1234", ok: false},
		{uri: "not-a-reference", ok: false},
	} {
		testcase := toPin
		t.Run(testcase.uri, func(t *testing.T) {
			id, err := dataversePersistentID(testcase.uri)
			if !testcase.ok {
				assert.False(t, dataverseHandles(testcase.uri))
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testcase.id, id)
			assert.True(t, dataverseHandles(testcase.uri))
		})
	}
}
