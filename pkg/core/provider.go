package core

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/dataprov/dataprov/pkg/model"
	"go.uber.org/zap"
)

// ProviderRecord is the provider-side description of a dataset snapshot
type ProviderRecord struct {
	ID          string
	Name        string
	Title       string
	Description string
	Creators    []model.Creator
	Keywords    []string
	License     string
	Language    string
	Version     string
	PublishedAt time.Time
	URI         string
}

// ProviderFile is one file in a provider dataset snapshot. Content is
// opened lazily so that transfers can be scheduled by the importer.
type ProviderFile struct {
	Path     string
	Size     uint64
	Checksum string
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// ProviderClient is the external catalog collaborator consumed by the
// engine (Dataverse/Zenodo-style). Per-provider variants implement this
// one capability; selection by URI/DOI pattern happens at resolution time.
type ProviderClient interface {
	// FetchMetadata retrieves the remote dataset record for a reference
	FetchMetadata(ctx context.Context, ref string) (*ProviderRecord, error)

	// FetchFiles retrieves the file list of the remote dataset snapshot
	FetchFiles(ctx context.Context, ref string) ([]ProviderFile, error)

	// CreateDraft serializes a dataset to the provider's schema as a new
	// draft record and returns its identifier
	CreateDraft(ctx context.Context, dataset model.DatasetDescriptor, token string) (string, error)

	// AccessTokenURL tells where the user may create an access token
	AccessTokenURL() string
}

// ProviderResolver selects the provider client able to serve a URI/DOI,
// by pattern matching on the reference grammar
type ProviderResolver func(uri string) (ProviderClient, error)

// MaterializeProviderFiles brings a whole provider dataset snapshot into the
// dataset storage root. The provider snapshot is atomic: the dataset's file
// records are fully replaced, and tracked files absent from the snapshot are
// removed from the record list. With extract=true, archive-packaged payloads
// (zip, tar, tar.gz) are decompressed before materialization.
func (im *Importer) MaterializeProviderFiles(ctx context.Context, dataset *model.DatasetDescriptor, files []ProviderFile, extract bool) ([]model.DatasetFile, error) {
	dataRoot := model.GetDataPathToDataset(dataset.Name)

	var records []model.DatasetFile
	for _, pf := range files {
		if err := ctx.Err(); err != nil {
			// no partial record is ever written for an interrupted transfer
			return nil, statusInterrupted(err)
		}
		targets, err := im.materializeOne(ctx, dataset, dataRoot, pf, extract)
		if err != nil {
			return nil, err
		}
		records = append(records, targets...)
	}

	dataset.Files = nil
	mergeFiles(dataset, records)
	return records, nil
}

func (im *Importer) materializeOne(ctx context.Context, dataset *model.DatasetDescriptor, dataRoot string, pf ProviderFile, extract bool) ([]model.DatasetFile, error) {
	rdr, err := pf.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	im.progress.OnStart(pf.Path, int64(pf.Size))
	defer im.progress.OnFinish()
	in := &progressReader{r: rdr, sink: im.progress}

	var entries []payloadEntry
	if extract && isArchive(pf.Path) {
		entries, err = expandArchive(pf.Path, in)
		if err != nil {
			return nil, err
		}
	} else {
		entries = []payloadEntry{{path: pf.Path, r: in}}
	}

	records := make([]model.DatasetFile, 0, len(entries))
	for _, entry := range entries {
		fullPath := path.Join(dataRoot, entry.path)
		written, werr := im.writeFile(fullPath, entry.r)
		if werr != nil {
			return nil, werr
		}
		checksum := pf.Checksum
		if checksum == "" || len(entries) > 1 {
			checksum, werr = im.hasher.Process(im.project, fullPath)
			if werr != nil {
				return nil, werr
			}
		}
		im.l.Debug("materialized provider file",
			zap.String("dataset", dataset.Name),
			zap.String("path", entry.path),
			zap.Int64("bytes", written),
		)
		records = append(records, model.DatasetFile{
			Path:      entry.path,
			FullPath:  fullPath,
			SourceURI: dataset.SourceURI,
			AddedAt:   model.GetDatasetTimeStamp(),
			Checksum:  checksum,
			Size:      uint64(written),
			Creators:  dataset.Creators,
		})
	}
	return records, nil
}
