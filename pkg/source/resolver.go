// Package source classifies dataset source URIs and resolves them
// into references the engine can import from.
//
// Three kinds of sources are recognized: local filesystem paths, remote
// git repositories (possibly restricted to sub-paths or refs) and
// external catalog providers addressed by DOI or URL.
package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/dataprov/dataprov/pkg/source/status"
	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// Kind of a resolved source
type Kind string

const (
	// KindLocal is a path on the local filesystem
	KindLocal Kind = "local"

	// KindGit is a remote git repository
	KindGit Kind = "git"

	// KindProvider is an external catalog provider reference (DOI or URL)
	KindProvider Kind = "provider"
)

// Ref is the resolved description of a source
type Ref struct {
	Kind       Kind
	URI        string
	SourcePath string // sub-path within a git remote, or the local path itself
	GitRef     string // requested branch, commit or tag
	Commit     string // commit the ref resolved to, for provenance
}

var (
	gitSchemeRe  = regexp.MustCompile(`^(git\+ssh|git\+https|git|ssh)://`)
	bareSSHRe    = regexp.MustCompile(`^[\w.-]+@[\w.-]+:\S+$`)
	doiRe        = regexp.MustCompile(`^(doi:)?10\.\d{4,9}/\S+$`)
	providerURLRe = regexp.MustCompile(`^https?://([^/]+)/(record/\d+|datasets?/[\w-]+|.*persistentId=\S+)`)
)

// Resolver classifies URIs and expands sub-path patterns against
// the remote tree at the selected ref
type Resolver struct {
	repo Repository
	l    *zap.Logger
}

// Option alters the behavior of a Resolver
type Option func(*Resolver)

// Logger injects a logging facility into source resolution
func Logger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.l = l
	}
}

// New builds a resolver delegating remote operations to a repository
func New(repo Repository, opts ...Option) *Resolver {
	r := &Resolver{
		repo: repo,
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// ClassifyURI determines the kind of a source URI without remote access
func ClassifyURI(uri string) (Kind, error) {
	switch {
	case doiRe.MatchString(uri), providerURLRe.MatchString(uri):
		return KindProvider, nil
	case gitSchemeRe.MatchString(uri), bareSSHRe.MatchString(uri):
		return KindGit, nil
	case strings.HasSuffix(uri, ".git"):
		return KindGit, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return "", status.ErrSourceNotSupported.WrapMessage("uri %q matches no git host or provider grammar", uri)
	case strings.Contains(uri, "://"):
		return "", status.ErrSourceNotSupported.WrapMessage("uri %q has unsupported scheme", uri)
	default:
		return KindLocal, nil
	}
}

// Resolve classifies a URI and produces zero or more resolved references.
//
// For git remotes, the optional sources are sub-path filters supporting
// glob wildcards (*, **, ?), expanded against the remote tree listing at
// the resolved ref, so that patterns always reflect the source state at
// that point in history. A ref naming no existing branch, commit or tag
// fails resolution.
func (r *Resolver) Resolve(ctx context.Context, uri string, sources []string, gitRef string) ([]Ref, error) {
	kind, err := ClassifyURI(uri)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindLocal:
		return []Ref{{Kind: KindLocal, URI: uri, SourcePath: uri}}, nil
	case KindProvider:
		return []Ref{{Kind: KindProvider, URI: uri}}, nil
	default:
		return r.resolveGit(ctx, uri, sources, gitRef)
	}
}

func (r *Resolver) resolveGit(ctx context.Context, uri string, sources []string, gitRef string) ([]Ref, error) {
	commit, err := r.repo.ResolveRef(ctx, uri, gitRef)
	if err != nil {
		return nil, status.ErrReferenceNotFound.WrapMessage("uri %q, ref %q: %v", uri, gitRef, err)
	}
	r.l.Debug("resolved git source", zap.String("uri", uri), zap.String("ref", gitRef), zap.String("commit", commit))

	tree, err := r.repo.ListTree(ctx, uri, commit, "")
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		refs := make([]Ref, 0, len(tree))
		for _, p := range tree {
			refs = append(refs, Ref{Kind: KindGit, URI: uri, SourcePath: p, GitRef: gitRef, Commit: commit})
		}
		return refs, nil
	}

	var refs []Ref
	for _, src := range sources {
		matched, err := matchTree(tree, src)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			return nil, status.ErrSourceNotFound.WrapMessage("uri %q, source %q at ref %q", uri, src, gitRef)
		}
		for _, p := range matched {
			refs = append(refs, Ref{Kind: KindGit, URI: uri, SourcePath: p, GitRef: gitRef, Commit: commit})
		}
	}
	return refs, nil
}

// HasWildcards tells whether a source pattern contains glob metacharacters
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func matchTree(tree []string, pattern string) ([]string, error) {
	if !HasWildcards(pattern) {
		prefix := strings.TrimSuffix(pattern, "/") + "/"
		var matched []string
		for _, p := range tree {
			if p == pattern || strings.HasPrefix(p, prefix) {
				matched = append(matched, p)
			}
		}
		return matched, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, status.ErrInvalidPattern.WrapMessage("pattern %q: %v", pattern, err)
	}
	var matched []string
	for _, p := range tree {
		if g.Match(p) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// MatchPattern tells whether a single path matches a glob pattern,
// with '/' as a separator ('*' does not cross directories, '**' does)
func MatchPattern(path, pattern string) (bool, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return false, status.ErrInvalidPattern.WrapMessage("pattern %q: %v", pattern, err)
	}
	return g.Match(path), nil
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9-_]+`)

// NameFromURI derives a default dataset name slug from a source URI,
// e.g. https://host/org/my-project.git yields my-project
func NameFromURI(uri string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(uri, "/"), ".git")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.ToLower(strings.TrimSpace(trimmed))
	return strings.Trim(nonSlugRe.ReplaceAllString(trimmed, "-"), "-")
}
