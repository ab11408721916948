// Package mocks provides an in-memory Repository for tests
package mocks

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/source"
)

// ErrMockNotFound stands in for the collaborator's own not-found failures
var ErrMockNotFound = errors.New("mock repository: not found")

var _ source.Repository = &Repo{}

// Repo is an in-memory git remote collaborator. Trees are registered per
// (uri, commit) and refs per uri. Safe for concurrent readers.
type Repo struct {
	mu       sync.RWMutex
	refs     map[string]map[string]string // uri -> ref -> commit
	trees    map[string]map[string][]byte // uri + "@" + commit -> path -> content
	head     string
	defaults map[string]string // uri -> default branch
}

// NewRepo builds an empty mock remote whose enclosing project is at head
func NewRepo(head string) *Repo {
	return &Repo{
		refs:     map[string]map[string]string{},
		trees:    map[string]map[string][]byte{},
		head:     head,
		defaults: map[string]string{},
	}
}

// AddRef registers a ref for a remote. The first ref registered for a uri
// becomes its default branch.
func (r *Repo) AddRef(uri, ref, commit string) *Repo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs[uri] == nil {
		r.refs[uri] = map[string]string{}
		r.defaults[uri] = ref
	}
	r.refs[uri][ref] = commit
	r.refs[uri][commit] = commit // commits resolve to themselves
	return r
}

// AddFile registers a file in a remote tree at a commit
func (r *Repo) AddFile(uri, commit, path string, content []byte) *Repo {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := uri + "@" + commit
	if r.trees[key] == nil {
		r.trees[key] = map[string][]byte{}
	}
	r.trees[key][path] = content
	return r
}

func (r *Repo) ResolveRef(ctx context.Context, uri, ref string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs, ok := r.refs[uri]
	if !ok {
		return "", ErrMockNotFound.WrapMessage("uri %q", uri)
	}
	if ref == "" {
		ref = r.defaults[uri]
	}
	commit, ok := refs[ref]
	if !ok {
		return "", ErrMockNotFound.WrapMessage("uri %q, ref %q", uri, ref)
	}
	return commit, nil
}

func (r *Repo) ListTree(ctx context.Context, uri, commitID, prefix string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[uri+"@"+commitID]
	if !ok {
		return nil, ErrMockNotFound.WrapMessage("uri %q, commit %q", uri, commitID)
	}
	paths := make([]string, 0, len(tree))
	for p := range tree {
		if prefix == "" || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Repo) ReadBlob(ctx context.Context, uri, commitID, path string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[uri+"@"+commitID]
	if !ok {
		return nil, ErrMockNotFound.WrapMessage("uri %q, commit %q", uri, commitID)
	}
	content, ok := tree[path]
	if !ok {
		return nil, ErrMockNotFound.WrapMessage("uri %q, commit %q, path %q", uri, commitID, path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (r *Repo) CurrentCommit(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.head, nil
}

// SetHead moves the enclosing project's current commit
func (r *Repo) SetHead(commit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = commit
}
