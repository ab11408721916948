// Package status exports errors produced by the source package.
package status

import (
	"github.com/dataprov/dataprov/pkg/errors"
)

var (
	// ErrReferenceNotFound indicates a ref qualifier which names no existing
	// branch, commit or tag in the remote repository
	ErrReferenceNotFound = errors.New("reference not found in remote")

	// ErrSourceNotFound indicates a sub-path which matches nothing in the
	// remote tree at the resolved ref
	ErrSourceNotFound = errors.New("source path not found in remote tree")

	// ErrSourceNotSupported indicates a URI which matches no supported
	// source kind
	ErrSourceNotSupported = errors.New("source URI not supported")

	// ErrInvalidPattern indicates a sub-path wildcard pattern which does not compile
	ErrInvalidPattern = errors.New("invalid source pattern")
)
