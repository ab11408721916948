// Package status declares errors returned by the provider package
package status

import (
	"github.com/dataprov/dataprov/pkg/errors"
)

var (
	// ErrNotSupported indicates that no provider recognizes a reference
	ErrNotSupported = errors.New("no provider recognizes this reference")

	// ErrInvalidAccessToken indicates that the provider rejected the access token
	ErrInvalidAccessToken = errors.New("access token rejected by the provider")

	// ErrNetwork indicates a transient network failure that persisted through retries
	ErrNetwork = errors.New("provider unreachable after retries")

	// ErrRemoteRecord indicates an unusable response from the provider
	ErrRemoteRecord = errors.New("unexpected provider response")
)
