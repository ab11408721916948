// Package status exports errors produced by the core package.
package status

import (
	"github.com/dataprov/dataprov/pkg/errors"
)

var (
	// ErrNotFound indicates an object was not found
	ErrNotFound = errors.New("not found")

	// ErrDatasetNotFound indicates a dataset name or remote dataset identifier
	// which does not resolve
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetExists indicates an attempt to create a dataset whose name is taken
	ErrDatasetExists = errors.New("dataset exists already")

	// ErrDestinationConflict indicates a destination path colliding with an existing file
	ErrDestinationConflict = errors.New("destination conflicts with an existing file")

	// ErrIncompatibleFilter indicates include/exclude filters applied to a
	// provider-origin dataset, which is always refreshed as a whole
	ErrIncompatibleFilter = errors.New("include/exclude filters are incompatible with provider datasets")

	// ErrLocalModification indicates an update which would discard local edits
	ErrLocalModification = errors.New("update would discard local modifications")

	// ErrDuplicateTag indicates a tag name already in use for this dataset
	ErrDuplicateTag = errors.New("tag already exists")

	// ErrExternalSourceMissing indicates an external add whose source is not
	// present on the local filesystem
	ErrExternalSourceMissing = errors.New("external source is not mounted on the local filesystem")

	// ErrInterrupted signals that the current background processing has been interrupted
	ErrInterrupted = errors.New("background processing interrupted")

	// ErrUnexpectedUpdate indicates an update operation attempted on some immutable record
	ErrUnexpectedUpdate = errors.New("unexpected update")
)
