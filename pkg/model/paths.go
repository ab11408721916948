package model

import (
	"path"
	"strings"

	"github.com/dataprov/dataprov/pkg/errors"
)

const (
	// descriptor files (object metadata)
	datasetDescriptorFile = "dataset.yaml"

	datasetsPrefix = "datasets/"
	tagsPrefix     = "tags/"
	dataPrefix     = "data/"
)

// ErrInvalidArchivePath indicates an archive path which doesn't follow the
// metadata layout
var ErrInvalidArchivePath = errors.New("invalid archive path")

// GetArchivePathToDataset yields the metadata path to a dataset descriptor,
// e.g. datasets/my-dataset/dataset.yaml
func GetArchivePathToDataset(dataset string) string {
	return datasetsPrefix + dataset + "/" + datasetDescriptorFile
}

// GetArchivePathPrefixToDatasets yields the key prefix to scan for dataset descriptors
func GetArchivePathPrefixToDatasets() string {
	return datasetsPrefix
}

// GetArchivePathToTag yields the metadata path to a tag descriptor,
// e.g. tags/my-dataset/1.0.yaml
func GetArchivePathToTag(dataset, tag string) string {
	return tagsPrefix + dataset + "/" + tag + ".yaml"
}

// GetArchivePathPrefixToTags yields the key prefix to scan for the tags of a dataset
func GetArchivePathPrefixToTags(dataset string) string {
	return tagsPrefix + dataset + "/"
}

// GetDataPathToDataset yields the storage root for the files of a dataset,
// e.g. data/my-dataset
func GetDataPathToDataset(dataset string) string {
	return dataPrefix + dataset
}

// ArchivePathComponents defines the parts identifying a metadata object
type ArchivePathComponents struct {
	DatasetName     string
	TagName         string
	ArchiveFileName string
}

// GetArchivePathComponents parses an archive path into its components.
// Supported layouts are datasets/<name>/dataset.yaml and tags/<name>/<tag>.yaml.
func GetArchivePathComponents(archivePath string) (ArchivePathComponents, error) {
	cs := strings.Split(archivePath, "/")
	switch {
	case strings.HasPrefix(archivePath, datasetsPrefix):
		if len(cs) != 3 || cs[2] != datasetDescriptorFile {
			return ArchivePathComponents{}, ErrInvalidArchivePath.WrapMessage("path %q", archivePath)
		}
		return ArchivePathComponents{
			DatasetName:     cs[1],
			ArchiveFileName: cs[2],
		}, nil
	case strings.HasPrefix(archivePath, tagsPrefix):
		if len(cs) != 3 || path.Ext(cs[2]) != ".yaml" {
			return ArchivePathComponents{}, ErrInvalidArchivePath.WrapMessage("path %q", archivePath)
		}
		return ArchivePathComponents{
			DatasetName:     cs[1],
			TagName:         strings.TrimSuffix(cs[2], ".yaml"),
			ArchiveFileName: cs[2],
		}, nil
	default:
		return ArchivePathComponents{}, ErrInvalidArchivePath.WrapMessage("path %q", archivePath)
	}
}
