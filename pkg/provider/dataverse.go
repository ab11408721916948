package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"go.uber.org/zap"
)

var (
	dataverseURLRe = regexp.MustCompile(`^https?://([^/]+)/.*persistentId=([^&]+)`)
	plainDOIRe     = regexp.MustCompile(`^(?:doi:)?(10\.\d{4,9}/\S+)$`)
)

var _ core.ProviderClient = &Dataverse{}

// Dataverse talks to a Dataverse native API
type Dataverse struct {
	base  string
	t     *transport
	token string
	l     *zap.Logger
}

// NewDataverse builds a Dataverse client for an instance at base, e.g.
// https://dataverse.harvard.edu
func NewDataverse(base string, opts ...ClientOption) *Dataverse {
	c := makeConfig(opts)
	return &Dataverse{
		base:  strings.TrimRight(base, "/"),
		t:     newTransport(c),
		token: c.token,
		l:     c.l,
	}
}

// dataverseHandles tells whether a reference follows the Dataverse
// persistentId grammar or is a plain (non-Zenodo) DOI
func dataverseHandles(uri string) bool {
	if dataverseURLRe.MatchString(uri) {
		return true
	}
	return plainDOIRe.MatchString(uri) && !zenodoDOIRe.MatchString(uri)
}

// dataversePersistentID extracts the persistent identifier from a dataset
// URL or DOI
func dataversePersistentID(uri string) (string, error) {
	if m := dataverseURLRe.FindStringSubmatch(uri); m != nil {
		id, err := url.QueryUnescape(m[2])
		if err != nil {
			return "", status.ErrNotSupported.WrapMessage("reference %q: %v", uri, err)
		}
		return id, nil
	}
	if m := plainDOIRe.FindStringSubmatch(uri); m != nil {
		return "doi:" + m[1], nil
	}
	return "", status.ErrNotSupported.WrapMessage("reference %q", uri)
}

type dataverseEnvelope struct {
	Status string           `json:"status"`
	Data   dataverseDataset `json:"data"`
}

type dataverseDataset struct {
	ID            json.Number      `json:"id"`
	PersistentID  string           `json:"persistentUrl"`
	LatestVersion dataverseVersion `json:"latestVersion"`
}

type dataverseVersion struct {
	VersionNumber      int                       `json:"versionNumber"`
	VersionMinorNumber int                       `json:"versionMinorNumber"`
	ReleaseTime        string                    `json:"releaseTime"`
	License            json.RawMessage           `json:"license"`
	Files              []dataverseFile           `json:"files"`
	MetadataBlocks     map[string]dataverseBlock `json:"metadataBlocks"`
}

type dataverseBlock struct {
	Fields []dataverseField `json:"fields"`
}

type dataverseField struct {
	TypeName string          `json:"typeName"`
	Value    json.RawMessage `json:"value"`
}

type dataverseFile struct {
	Label          string `json:"label"`
	DirectoryLabel string `json:"directoryLabel"`
	DataFile       struct {
		ID       json.Number `json:"id"`
		Filename string      `json:"filename"`
		Filesize uint64      `json:"filesize"`
	} `json:"dataFile"`
}

func (d *Dataverse) fetchDataset(ctx context.Context, ref string) (*dataverseDataset, error) {
	id, err := dataversePersistentID(ref)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/api/datasets/:persistentId/?persistentId=%s", d.base, url.QueryEscape(id))
	var envelope dataverseEnvelope
	if err := d.t.getJSON(ctx, endpoint, d.token, &envelope); err != nil {
		return nil, err
	}
	if envelope.Status != "OK" {
		return nil, status.ErrRemoteRecord.WrapMessage("dataset %q: status %q", ref, envelope.Status)
	}
	return &envelope.Data, nil
}

// FetchMetadata retrieves the Dataverse dataset record for a URL or DOI
func (d *Dataverse) FetchMetadata(ctx context.Context, ref string) (*core.ProviderRecord, error) {
	dataset, err := d.fetchDataset(ctx, ref)
	if err != nil {
		return nil, err
	}

	version := dataset.LatestVersion
	citation := version.MetadataBlocks["citation"]
	publishedAt, _ := time.Parse(time.RFC3339, version.ReleaseTime)

	return &core.ProviderRecord{
		ID:          dataset.ID.String(),
		Name:        dataset.PersistentID,
		Title:       citation.stringField("title"),
		Description: citation.compoundStrings("dsDescription", "dsDescriptionValue"),
		Creators:    citation.authors(),
		Keywords:    citation.compoundList("keyword", "keywordValue"),
		License:     parseLicenseField(version.License),
		Version:     fmt.Sprintf("%d.%d", version.VersionNumber, version.VersionMinorNumber),
		PublishedAt: publishedAt,
		URI:         ref,
	}, nil
}

// FetchFiles retrieves the file list of the latest dataset version.
// directoryLabel sub-structure is preserved in the materialized paths.
func (d *Dataverse) FetchFiles(ctx context.Context, ref string) ([]core.ProviderFile, error) {
	dataset, err := d.fetchDataset(ctx, ref)
	if err != nil {
		return nil, err
	}

	files := make([]core.ProviderFile, 0, len(dataset.LatestVersion.Files))
	for _, f := range dataset.LatestVersion.Files {
		name := f.Label
		if name == "" {
			name = f.DataFile.Filename
		}
		if name == "" || f.DataFile.ID.String() == "" {
			return nil, status.ErrRemoteRecord.WrapMessage("dataset %q serves a file without name or id", ref)
		}
		download := fmt.Sprintf("%s/api/access/datafile/%s", d.base, f.DataFile.ID.String())
		files = append(files, core.ProviderFile{
			Path: path.Join(f.DirectoryLabel, name),
			Size: f.DataFile.Filesize,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return d.t.openStream(ctx, download, d.token)
			},
		})
	}
	return files, nil
}

// CreateDraft serializes a dataset to a new draft in the root dataverse
// and returns its persistent identifier
func (d *Dataverse) CreateDraft(ctx context.Context, dataset model.DatasetDescriptor, token string) (string, error) {
	if token == "" {
		return "", status.ErrInvalidAccessToken.WrapMessage("exporting to %q requires a token", d.base)
	}

	authors := make([]map[string]interface{}, 0, len(dataset.Creators))
	for _, c := range dataset.Creators {
		authors = append(authors, map[string]interface{}{
			"authorName":        citationValue(c.Name),
			"authorAffiliation": citationValue(c.Affiliation),
		})
	}
	title := dataset.Title
	if title == "" {
		title = dataset.Name
	}
	draft := map[string]interface{}{
		"datasetVersion": map[string]interface{}{
			"metadataBlocks": map[string]interface{}{
				"citation": map[string]interface{}{
					"displayName": "Citation Metadata",
					"fields": []map[string]interface{}{
						{"typeName": "title", "multiple": false, "typeClass": "primitive", "value": title},
						{"typeName": "author", "multiple": true, "typeClass": "compound", "value": authors},
						{"typeName": "dsDescription", "multiple": true, "typeClass": "compound",
							"value": []map[string]interface{}{{"dsDescriptionValue": citationValue(dataset.Description)}}},
					},
				},
			},
		},
	}

	var created struct {
		Status string `json:"status"`
		Data   struct {
			PersistentID string `json:"persistentId"`
		} `json:"data"`
	}
	endpoint := d.base + "/api/dataverses/root/datasets?" + url.Values{"key": {token}}.Encode()
	if err := d.t.postJSON(ctx, endpoint, token, draft, &created); err != nil {
		return "", err
	}
	if created.Status != "OK" {
		return "", status.ErrRemoteRecord.WrapMessage("draft creation returned status %q", created.Status)
	}
	d.l.Info("created draft dataset", zap.String("persistentId", created.Data.PersistentID))
	return created.Data.PersistentID, nil
}

// AccessTokenURL tells where a user creates a Dataverse API token
func (d *Dataverse) AccessTokenURL() string {
	return d.base + "/dataverseuser.xhtml?selectTab=apiTokenTab"
}

func citationValue(v string) map[string]interface{} {
	return map[string]interface{}{
		"typeClass": "primitive",
		"multiple":  false,
		"value":     v,
	}
}

// stringField extracts a primitive citation field value
func (b dataverseBlock) stringField(typeName string) string {
	for _, f := range b.Fields {
		if f.TypeName != typeName {
			continue
		}
		var s string
		if err := json.Unmarshal(f.Value, &s); err == nil {
			return s
		}
	}
	return ""
}

// compoundStrings joins the sub-values of a compound citation field
func (b dataverseBlock) compoundStrings(typeName, subField string) string {
	return strings.Join(b.compoundList(typeName, subField), "\n")
}

// compoundList extracts a sub-value from each entry of a compound citation field
func (b dataverseBlock) compoundList(typeName, subField string) []string {
	var res []string
	for _, f := range b.Fields {
		if f.TypeName != typeName {
			continue
		}
		var entries []map[string]dataverseField
		if err := json.Unmarshal(f.Value, &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			var s string
			if err := json.Unmarshal(entry[subField].Value, &s); err == nil && s != "" {
				res = append(res, s)
			}
		}
	}
	return res
}

// authors extracts the compound author field into creators
func (b dataverseBlock) authors() []model.Creator {
	var creators []model.Creator
	for _, f := range b.Fields {
		if f.TypeName != "author" {
			continue
		}
		var entries []map[string]dataverseField
		if err := json.Unmarshal(f.Value, &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			var name, affiliation string
			_ = json.Unmarshal(entry["authorName"].Value, &name)
			_ = json.Unmarshal(entry["authorAffiliation"].Value, &affiliation)
			if name != "" {
				creators = append(creators, model.Creator{Name: name, Affiliation: affiliation})
			}
		}
	}
	return creators
}
