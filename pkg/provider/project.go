package provider

import (
	"context"
	"io"
	"io/ioutil"
	"path"
	"strings"

	"github.com/dataprov/dataprov/pkg/core"
	corestatus "github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"
)

// metadataRoot is where a project keeps its dataset metadata, relative to
// the repository root
const metadataRoot = ".dataprov/metadata"

var _ core.ProviderClient = &Project{}

// Project imports datasets from another project's repository.
//
// A project reference is `<git-uri>#<dataset-name>`: the repository holding
// the source project, and the dataset to import from it. Metadata is read
// from the remote project's own metadata area, so records keep the original
// provenance and checksums.
type Project struct {
	repo source.Repository
	ref  string // git ref in the remote project, empty for the default branch
	l    *zap.Logger
}

// ProjectRef option sets the git ref datasets are imported from
func ProjectRef(ref string) func(*Project) {
	return func(p *Project) {
		p.ref = ref
	}
}

// NewProject builds a project-to-project client over a repository collaborator
func NewProject(repo source.Repository, opts ...func(*Project)) *Project {
	p := &Project{
		repo: repo,
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// projectHandles tells whether a reference follows the project grammar:
// a git URI with a dataset name fragment
func projectHandles(uri string) bool {
	repoURI, name, ok := splitProjectRef(uri)
	if !ok || name == "" {
		return false
	}
	kind, err := source.ClassifyURI(repoURI)
	return err == nil && kind == source.KindGit
}

func splitProjectRef(uri string) (repoURI, dataset string, ok bool) {
	i := strings.LastIndex(uri, "#")
	if i < 0 {
		return "", "", false
	}
	return uri[:i], uri[i+1:], true
}

// FetchMetadata reads the dataset descriptor out of the remote project's
// metadata area, through a scoped temporary checkout
func (p *Project) FetchMetadata(ctx context.Context, ref string) (*core.ProviderRecord, error) {
	repoURI, name, ok := splitProjectRef(ref)
	if !ok {
		return nil, status.ErrNotSupported.WrapMessage("reference %q", ref)
	}

	descriptorPath := path.Join(metadataRoot, model.GetArchivePathToDataset(name))
	workctx := core.NewRemoteWorkingContext(p.repo, repoURI, p.ref,
		core.CheckoutScope(descriptorPath),
		core.WorkingContextLogger(p.l),
	)

	var dataset model.DatasetDescriptor
	err := workctx.WithWorkingContext(ctx, func(ctx context.Context, tree afero.Fs, root string) error {
		buffer, rerr := afero.ReadFile(tree, path.Join(root, descriptorPath))
		if rerr != nil {
			return corestatus.ErrDatasetNotFound.WrapMessage("dataset %q in project %q: %v", name, repoURI, rerr)
		}
		return yaml.Unmarshal(buffer, &dataset)
	})
	if err != nil {
		return nil, err
	}

	return &core.ProviderRecord{
		ID:          dataset.ID,
		Name:        dataset.Name,
		Title:       dataset.Title,
		Description: dataset.Description,
		Creators:    dataset.Creators,
		Keywords:    dataset.Keywords,
		License:     dataset.License,
		Language:    dataset.Language,
		Version:     dataset.Version,
		PublishedAt: dataset.PublishedAt,
		URI:         ref,
	}, nil
}

// FetchFiles lists the remote dataset's tracked files. Content is opened
// lazily against the remote tree; remote checksums are carried over.
func (p *Project) FetchFiles(ctx context.Context, ref string) ([]core.ProviderFile, error) {
	repoURI, _, ok := splitProjectRef(ref)
	if !ok {
		return nil, status.ErrNotSupported.WrapMessage("reference %q", ref)
	}
	record, err := p.FetchMetadata(ctx, ref)
	if err != nil {
		return nil, err
	}
	commit, err := p.repo.ResolveRef(ctx, repoURI, p.ref)
	if err != nil {
		return nil, err
	}

	// re-read the descriptor for the file records
	descriptorPath := path.Join(metadataRoot, model.GetArchivePathToDataset(record.Name))
	rdr, err := p.repo.ReadBlob(ctx, repoURI, commit, descriptorPath)
	if err != nil {
		return nil, corestatus.ErrDatasetNotFound.WrapMessage("dataset %q in project %q: %v", record.Name, repoURI, err)
	}
	defer rdr.Close()
	buffer, err := ioutil.ReadAll(rdr)
	if err != nil {
		return nil, err
	}
	var dataset model.DatasetDescriptor
	if err := yaml.Unmarshal(buffer, &dataset); err != nil {
		return nil, err
	}

	files := make([]core.ProviderFile, 0, len(dataset.Files))
	for _, f := range dataset.Files {
		if f.External {
			// external content lives outside the remote project
			continue
		}
		blobPath := f.FullPath
		files = append(files, core.ProviderFile{
			Path:     f.Path,
			Size:     f.Size,
			Checksum: f.Checksum,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return p.repo.ReadBlob(ctx, repoURI, commit, blobPath)
			},
		})
	}
	return files, nil
}

// CreateDraft is not supported: projects exchange datasets through their
// repositories, not draft records
func (p *Project) CreateDraft(context.Context, model.DatasetDescriptor, string) (string, error) {
	return "", status.ErrNotSupported.WrapMessage("project-to-project export")
}

// AccessTokenURL is empty: repository access control applies
func (p *Project) AccessTokenURL() string {
	return ""
}
