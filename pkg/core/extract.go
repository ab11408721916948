package core

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"path"
	"strings"

	"github.com/dataprov/dataprov/pkg/core/status"
)

// payloadEntry is one file produced by a (possibly expanded) payload
type payloadEntry struct {
	path string
	r    io.Reader
}

func isArchive(name string) bool {
	switch {
	case strings.HasSuffix(name, ".zip"),
		strings.HasSuffix(name, ".tar"),
		strings.HasSuffix(name, ".tar.gz"),
		strings.HasSuffix(name, ".tgz"):
		return true
	default:
		return false
	}
}

// expandArchive decompresses an archive-packaged payload into its entries.
// Entries escaping their root via .. components are rejected.
func expandArchive(name string, r io.Reader) ([]payloadEntry, error) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return expandZip(r)
	case strings.HasSuffix(name, ".tar"):
		return expandTar(r)
	default:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return expandTar(gz)
	}
}

func expandZip(r io.Reader) ([]payloadEntry, error) {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, err
	}
	var entries []payloadEntry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		clean, err := cleanEntryPath(f.Name)
		if err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := ioutil.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, payloadEntry{path: clean, r: bytes.NewReader(content)})
	}
	return entries, nil
}

func expandTar(r io.Reader) ([]payloadEntry, error) {
	tr := tar.NewReader(r)
	var entries []payloadEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		clean, err := cleanEntryPath(hdr.Name)
		if err != nil {
			return nil, err
		}
		content, err := ioutil.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, payloadEntry{path: clean, r: bytes.NewReader(content)})
	}
}

func cleanEntryPath(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", status.ErrUnexpectedUpdate.WrapMessage("archive entry %q escapes the extraction root", name)
	}
	return clean, nil
}

func statusInterrupted(err error) error {
	return status.ErrInterrupted.Wrap(err)
}
