// Package fingerprint computes content checksums for dataset files.
//
// Files are hashed leaf-wise with blake2b: the digest of a file is the
// blake2b hash of the concatenated digests of its fixed-size leaves. This
// keeps memory bounded on large externally-mounted data.
package fingerprint

import (
	"encoding/hex"
	"io"

	units "github.com/docker/go-units"
	blake2b "github.com/minio/blake2b-simd"
	"github.com/spf13/afero"
)

// Option is a functor to configure a Maker
type Option func(*Maker)

// LeafSize sets the leaf size, in bytes, used to chunk hashed content
func LeafSize(sz int64) Option {
	return func(m *Maker) {
		m.leafSize = sz
	}
}

// New builds a fingerprint Maker
func New(opts ...Option) *Maker {
	m := &Maker{
		leafSize: 5 * units.MB,
	}
	for _, apply := range opts {
		apply(m)
	}
	return m
}

// Maker computes file fingerprints
type Maker struct {
	leafSize int64
}

// Process hashes a file on some file system and returns the hex-encoded digest
func (m *Maker) Process(fs afero.Fs, path string) (string, error) {
	r, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return m.ProcessReader(r)
}

// ProcessReader hashes a stream and returns the hex-encoded digest
func (m *Maker) ProcessReader(r io.Reader) (string, error) {
	root := blake2b.New512()
	leaf := blake2b.New512()
	buf := make([]byte, 32*1024)

	var inLeaf int64
	for {
		chunk := int64(len(buf))
		if remaining := m.leafSize - inLeaf; remaining < chunk {
			chunk = remaining
		}
		n, err := r.Read(buf[:chunk])
		if n > 0 {
			if _, werr := leaf.Write(buf[:n]); werr != nil {
				return "", werr
			}
			inLeaf += int64(n)
			if inLeaf == m.leafSize {
				if _, werr := root.Write(leaf.Sum(nil)); werr != nil {
					return "", werr
				}
				leaf.Reset()
				inLeaf = 0
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if inLeaf > 0 {
		if _, err := root.Write(leaf.Sum(nil)); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(root.Sum(nil)), nil
}
