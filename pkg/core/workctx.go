package core

import (
	"context"
	"path"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// WorkingContext materializes a working tree for the duration of one
// operation. The local variant hands out an existing directory; the remote
// variant checks a repository ref out into a temporary directory, scoped to
// the paths the operation needs, and cleans up afterwards.
type WorkingContext interface {
	WithWorkingContext(ctx context.Context, op func(ctx context.Context, tree afero.Fs, root string) error) error
}

type localWorkingContext struct {
	tree afero.Fs
	root string
}

// NewLocalWorkingContext wraps an existing directory as a working context
func NewLocalWorkingContext(tree afero.Fs, root string) WorkingContext {
	return &localWorkingContext{tree: tree, root: root}
}

func (w *localWorkingContext) WithWorkingContext(ctx context.Context, op func(context.Context, afero.Fs, string) error) error {
	if _, err := w.tree.Stat(w.root); err != nil {
		return status.ErrNotFound.WrapMessage("working tree %q: %v", w.root, err)
	}
	return op(ctx, w.tree, w.root)
}

type remoteWorkingContext struct {
	repo     source.Repository
	uri      string
	ref      string
	prefixes []string
	scratch  afero.Fs
	l        *zap.Logger
}

// WorkingContextOption is a functor to build a remote working context with some options
type WorkingContextOption func(*remoteWorkingContext)

// CheckoutScope restricts a remote checkout to the given path prefixes,
// avoiding a full materialization of large repositories
func CheckoutScope(prefixes ...string) WorkingContextOption {
	return func(w *remoteWorkingContext) {
		w.prefixes = prefixes
	}
}

// CheckoutFs overrides the filesystem temporary checkouts are written to
func CheckoutFs(fs afero.Fs) WorkingContextOption {
	return func(w *remoteWorkingContext) {
		w.scratch = fs
	}
}

// WorkingContextLogger injects a logging facility into checkout operations
func WorkingContextLogger(l *zap.Logger) WorkingContextOption {
	return func(w *remoteWorkingContext) {
		w.l = l
	}
}

// NewRemoteWorkingContext builds a working context over a repository ref.
// Each operation runs against a fresh scoped checkout, removed when the
// operation returns.
func NewRemoteWorkingContext(repo source.Repository, uri, ref string, opts ...WorkingContextOption) WorkingContext {
	w := &remoteWorkingContext{
		repo:    repo,
		uri:     uri,
		ref:     ref,
		scratch: afero.NewOsFs(),
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(w)
	}
	return w
}

func (w *remoteWorkingContext) WithWorkingContext(ctx context.Context, op func(context.Context, afero.Fs, string) error) error {
	commit, err := w.repo.ResolveRef(ctx, w.uri, w.ref)
	if err != nil {
		return err
	}

	root, err := afero.TempDir(w.scratch, "", "checkout")
	if err != nil {
		return err
	}
	defer func() {
		if rerr := w.scratch.RemoveAll(root); rerr != nil {
			w.l.Warn("leaking temporary checkout", zap.String("root", root), zap.Error(rerr))
		}
	}()

	prefixes := w.prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	for _, prefix := range prefixes {
		paths, lerr := w.repo.ListTree(ctx, w.uri, commit, prefix)
		if lerr != nil {
			return lerr
		}
		for _, p := range paths {
			if cerr := ctx.Err(); cerr != nil {
				return status.ErrInterrupted.Wrap(cerr)
			}
			if err = w.materialize(ctx, commit, root, p); err != nil {
				return err
			}
		}
	}
	w.l.Debug("checked out working tree",
		zap.String("uri", w.uri),
		zap.String("commit", commit),
		zap.String("root", root),
	)
	return op(ctx, w.scratch, root)
}

func (w *remoteWorkingContext) materialize(ctx context.Context, commit, root, blobPath string) error {
	rdr, err := w.repo.ReadBlob(ctx, w.uri, commit, blobPath)
	if err != nil {
		return err
	}
	defer rdr.Close()

	target := path.Join(root, blobPath)
	if dir := path.Dir(target); dir != "" && dir != "." {
		if err = w.scratch.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return afero.WriteReader(w.scratch, target, rdr)
}
