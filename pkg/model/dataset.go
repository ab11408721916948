package model

import (
	"sort"
	"time"
	"unicode"

	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/segmentio/ksuid"
)

// CurrentDatasetVersion is the version of the dataset descriptor schema
const CurrentDatasetVersion = 1

var (
	// ErrInvalidName indicates a dataset name which is not a valid slug
	ErrInvalidName = errors.New("invalid dataset name")

	// ErrInvalidDescriptor indicates a descriptor with missing mandatory fields
	ErrInvalidDescriptor = errors.New("invalid dataset descriptor")
)

// DatasetDescriptor represents a versioned, provenance-tracked collection
// of files inside a project.
//
// The descriptor is persisted as yaml metadata, committed alongside project
// content, and round-trips all fields losslessly.
type DatasetDescriptor struct {
	ID              string        `json:"id" yaml:"id"`
	Name            string        `json:"name" yaml:"name"`
	Title           string        `json:"title,omitempty" yaml:"title,omitempty"`
	Description     string        `json:"description,omitempty" yaml:"description,omitempty"`
	Creators        []Creator     `json:"creators" yaml:"creators"`
	Keywords        []string      `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	License         string        `json:"license,omitempty" yaml:"license,omitempty"`
	Language        string        `json:"language,omitempty" yaml:"language,omitempty"`
	CreatedAt       time.Time     `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	PublishedAt     time.Time     `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	Version         string        `json:"version,omitempty" yaml:"version,omitempty"`
	ExportedVersion string        `json:"exportedVersion,omitempty" yaml:"exportedVersion,omitempty"`
	SourceURI       string        `json:"sourceURI,omitempty" yaml:"sourceURI,omitempty"`
	SchemaVersion   uint64        `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty"`
	Files           []DatasetFile `json:"files" yaml:"files"`
	_               struct{}
}

// DatasetFile is one tracked file record within a dataset, with provenance.
//
// Records are never mutated in place: an update replaces the record.
type DatasetFile struct {
	Path         string    `json:"path" yaml:"path"`
	FullPath     string    `json:"fullPath" yaml:"fullPath"`
	SourceURI    string    `json:"sourceURI,omitempty" yaml:"sourceURI,omitempty"`
	SourcePath   string    `json:"sourcePath,omitempty" yaml:"sourcePath,omitempty"`
	AddedAt      time.Time `json:"addedAt,omitempty" yaml:"addedAt,omitempty"`
	External     bool      `json:"external,omitempty" yaml:"external,omitempty"`
	Checksum     string    `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	OriginCommit string    `json:"originCommit,omitempty" yaml:"originCommit,omitempty"`
	OriginRef    string    `json:"originRef,omitempty" yaml:"originRef,omitempty"`
	Size         uint64    `json:"size,omitempty" yaml:"size,omitempty"`
	Creators     []Creator `json:"creators,omitempty" yaml:"creators,omitempty"`
	_            struct{}
}

// NewDatasetDescriptor builds a descriptor with a fresh id and creation time
func NewDatasetDescriptor(name string, opts ...DatasetDescriptorOption) *DatasetDescriptor {
	d := &DatasetDescriptor{
		ID:            ksuid.New().String(),
		Name:          name,
		CreatedAt:     GetDatasetTimeStamp(),
		SchemaVersion: CurrentDatasetVersion,
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// Validate the fields of a dataset descriptor
func Validate(dataset DatasetDescriptor) error {
	if dataset.Name == "" {
		return ErrInvalidName.WrapMessage("name is empty")
	}
	if err := ValidateName(dataset.Name); err != nil {
		return err
	}
	if dataset.ID == "" {
		return ErrInvalidDescriptor.WrapMessage("dataset %q has no id", dataset.Name)
	}
	seen := make(map[string]struct{}, len(dataset.Files))
	for _, f := range dataset.Files {
		if _, ok := seen[f.Path]; ok {
			return ErrInvalidDescriptor.WrapMessage("dataset %q has duplicate file path %q", dataset.Name, f.Path)
		}
		seen[f.Path] = struct{}{}
		if f.External && f.Checksum == "" {
			return ErrInvalidDescriptor.WrapMessage("dataset %q external file %q has no checksum", dataset.Name, f.Path)
		}
	}
	return nil
}

// ValidateName verifies that a dataset name is a valid slug:
// letters, digits, hyphens and underscores only
func ValidateName(name string) error {
	for i, c := range name {
		if !unicode.IsDigit(c) && !unicode.IsLetter(c) && c != '-' && c != '_' {
			return ErrInvalidName.WrapMessage("name %q contains unsupported character %q",
				name, string([]rune(name)[i]))
		}
	}
	return nil
}

// SortFiles orders the file records of a dataset by path
func (d *DatasetDescriptor) SortFiles() {
	sort.Slice(d.Files, func(i, j int) bool {
		return d.Files[i].Path < d.Files[j].Path
	})
}

// FileByPath retrieves a file record by its dataset-relative path
func (d *DatasetDescriptor) FileByPath(path string) (DatasetFile, bool) {
	for _, f := range d.Files {
		if f.Path == path {
			return f, true
		}
	}
	return DatasetFile{}, false
}

// DatasetDescriptors is a sortable collection of dataset descriptors
type DatasetDescriptors []DatasetDescriptor

func (d DatasetDescriptors) Len() int           { return len(d) }
func (d DatasetDescriptors) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }
func (d DatasetDescriptors) Less(i, j int) bool { return d[i].Name < d[j].Name }

// Last returns the last descriptor in the collection
func (d DatasetDescriptors) Last() DatasetDescriptor {
	return d[len(d)-1]
}

// GetDatasetTimeStamp yields timestamps for dataset metadata, normalized to UTC
func GetDatasetTimeStamp() time.Time {
	return time.Now().UTC()
}
