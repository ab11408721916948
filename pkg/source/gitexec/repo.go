// Package gitexec implements the repository collaborator by shelling out
// to the git command line.
//
// Remotes are mirrored once into a local cache directory and refreshed on
// demand, so that tree listings and blob reads work against local objects.
package gitexec

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/dataprov/dataprov/pkg/convert"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/source/status"
	blake2b "github.com/minio/blake2b-simd"
	"go.uber.org/zap"
)

var _ source.Repository = &Repo{}

var commitIDRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Repo resolves refs, lists trees and reads blobs of git remotes, and
// reports the enclosing project's current commit
type Repo struct {
	workdir  string // enclosing project checkout
	cacheDir string // mirror clones of remotes
	l        *zap.Logger

	mu       sync.Mutex
	mirrored map[string]string // uri -> mirror path
}

// Option is a functor to build a git runner with some options
type Option func(*Repo)

// CacheDir sets where remote mirrors are kept
func CacheDir(dir string) Option {
	return func(r *Repo) {
		r.cacheDir = dir
	}
}

// WorkDir sets the enclosing project checkout
func WorkDir(dir string) Option {
	return func(r *Repo) {
		r.workdir = dir
	}
}

// Logger injects a logging facility into git invocations
func Logger(l *zap.Logger) Option {
	return func(r *Repo) {
		r.l = l
	}
}

// New builds a git-backed repository collaborator
func New(opts ...Option) *Repo {
	r := &Repo{
		workdir:  ".",
		cacheDir: filepath.Join(os.TempDir(), "dataprov-mirrors"),
		l:        zap.NewNop(),
		mirrored: map[string]string{},
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// git runs one git command and captures its output
func (r *Repo) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	r.l.Debug("running git", zap.Strings("args", args), zap.String("dir", dir))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(errOut.String()))
	}
	return out.String(), nil
}

// ResolveRef resolves a branch, tag or commit id against a remote.
// An empty ref resolves the remote's default branch.
func (r *Repo) ResolveRef(ctx context.Context, uri, ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	out, err := r.git(ctx, ".", "ls-remote", uri, ref)
	if err != nil {
		return "", status.ErrSourceNotFound.WrapMessage("remote %q: %v", uri, err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 1 && commitIDRe.MatchString(fields[0]) {
			return fields[0], nil
		}
	}
	// not advertised by the remote: maybe a commit id reachable from a ref
	if commitIDRe.MatchString(ref) {
		return ref, nil
	}
	return "", status.ErrReferenceNotFound.WrapMessage("ref %q in %q", ref, uri)
}

// ListTree lists the file paths of a remote tree at a commit, optionally
// restricted to a path prefix
func (r *Repo) ListTree(ctx context.Context, uri, commitID, prefix string) ([]string, error) {
	mirror, err := r.mirror(ctx, uri, commitID)
	if err != nil {
		return nil, err
	}
	args := []string{"ls-tree", "-r", "--name-only", commitID}
	if prefix != "" {
		args = append(args, "--", prefix)
	}
	out, err := r.git(ctx, mirror, args...)
	if err != nil {
		return nil, status.ErrSourceNotFound.WrapMessage("tree %q at %q: %v", uri, commitID, err)
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// ReadBlob streams one file of a remote tree at a commit
func (r *Repo) ReadBlob(ctx context.Context, uri, commitID, path string) (io.ReadCloser, error) {
	mirror, err := r.mirror(ctx, uri, commitID)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "git", "cat-file", "blob", commitID+":"+path)
	cmd.Dir = mirror
	var errOut bytes.Buffer
	cmd.Stderr = &errOut
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &blobReader{rdr: stdout, cmd: cmd, errOut: &errOut, path: path}, nil
}

// CurrentCommit reports the enclosing project's commit
func (r *Repo) CurrentCommit(ctx context.Context) (string, error) {
	out, err := r.git(ctx, r.workdir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// mirror clones or refreshes a local mirror of a remote, ensuring the wanted
// commit is present
func (r *Repo) mirror(ctx context.Context, uri, commitID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir, ok := r.mirrored[uri]
	if !ok {
		sum := blake2b.Sum256(convert.UnsafeStringToBytes(uri))
		dir = filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8]))
		if _, err := os.Stat(filepath.Join(dir, "HEAD")); err != nil {
			if err = os.MkdirAll(r.cacheDir, 0755); err != nil {
				return "", err
			}
			if _, err = r.git(ctx, ".", "clone", "--mirror", uri, dir); err != nil {
				return "", status.ErrSourceNotFound.WrapMessage("remote %q: %v", uri, err)
			}
		}
		r.mirrored[uri] = dir
	}

	// fetch only when the wanted commit is not already present
	if _, err := r.git(ctx, dir, "cat-file", "-e", commitID+"^{commit}"); err != nil {
		if _, err = r.git(ctx, dir, "remote", "update", "--prune"); err != nil {
			return "", status.ErrSourceNotFound.WrapMessage("refreshing mirror of %q: %v", uri, err)
		}
	}
	return dir, nil
}

// blobReader wraps the stdout of a streaming git invocation, reaping the
// process on close
type blobReader struct {
	rdr    io.ReadCloser
	cmd    *exec.Cmd
	errOut *bytes.Buffer
	path   string
}

func (b *blobReader) Read(p []byte) (int, error) {
	return b.rdr.Read(p)
}

func (b *blobReader) Close() error {
	_, _ = io.Copy(ioutil.Discard, b.rdr)
	_ = b.rdr.Close()
	if err := b.cmd.Wait(); err != nil {
		return status.ErrSourceNotFound.WrapMessage("blob %q: %v: %s", b.path, err, strings.TrimSpace(b.errOut.String()))
	}
	return nil
}
