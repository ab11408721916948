package source

import (
	"context"
	"io"
)

// Repository is the version-control collaborator consumed by the engine.
//
// It exposes remote git repositories as an opaque interface: how commits
// are stored or fetched is not the engine's concern. Implementations are
// expected to be safe for use by concurrent readers.
type Repository interface {
	// ResolveRef resolves a branch, tag or commit name in a remote to a commit id.
	// An empty ref resolves to the remote's default branch head.
	ResolveRef(ctx context.Context, uri, ref string) (string, error)

	// ListTree returns the paths present in a remote tree at a commit,
	// optionally restricted to a path prefix
	ListTree(ctx context.Context, uri, commitID, prefix string) ([]string, error)

	// ReadBlob streams the content of one file in a remote tree
	ReadBlob(ctx context.Context, uri, commitID, path string) (io.ReadCloser, error)

	// CurrentCommit returns the commit the enclosing project is at
	CurrentCommit(ctx context.Context) (string, error)
}
