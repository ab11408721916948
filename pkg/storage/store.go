// Package storage defines the Store interface over which all
// dataset metadata and copied content is persisted.
//
// Typically this is something file system-like. Implementations of this
// interface are assumed to be fairly simple K/V backends.
package storage

import (
	"context"
	"io"
)

const (
	// OverWrite tolerates an existing object with the same key
	OverWrite = false

	// NoOverWrite makes Put fail when an object already exists with the same key
	NoOverWrite = true
)

// Store implementations know how to write entries to a K/V backend
type Store interface {
	String() string
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, source io.Reader, exclusive bool) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error)
}

// PipeIO copies a reader out to a writer with a fixed size buffer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	pSize := 32 * 1024
	buf := make([]byte, pSize)
	return io.CopyBuffer(writer, reader, buf)
}
