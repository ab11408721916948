package core

import (
	"context"
	"path"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/fingerprint"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ExternalManager manages externally-mounted dataset files.
//
// External files are linked, not copied: content lives outside project
// storage. Each record holds the link plus the source's checksum, which is
// the basis for staleness detection.
type ExternalManager struct {
	project afero.Fs
	local   afero.Fs
	l       *zap.Logger
	hasher  *fingerprint.Maker
	link    func(target, linkName string) error
}

// ExternalOption is a functor to build an external manager with some options
type ExternalOption func(*ExternalManager)

// ExternalLogger injects a logging facility into external link operations
func ExternalLogger(l *zap.Logger) ExternalOption {
	return func(em *ExternalManager) {
		em.l = l
	}
}

// ExternalLocalFs overrides the filesystem mounted sources are read from
func ExternalLocalFs(fs afero.Fs) ExternalOption {
	return func(em *ExternalManager) {
		em.local = fs
	}
}

// ExternalHasher overrides the fingerprint maker computing source checksums
func ExternalHasher(m *fingerprint.Maker) ExternalOption {
	return func(em *ExternalManager) {
		em.hasher = m
	}
}

// NewExternalManager builds an external link manager over a project working tree
func NewExternalManager(project afero.Fs, opts ...ExternalOption) *ExternalManager {
	em := &ExternalManager{
		project: project,
		local:   afero.NewOsFs(),
		l:       zap.NewNop(),
		hasher:  fingerprint.New(),
	}
	for _, apply := range opts {
		apply(em)
	}
	em.link = em.symlinkOrMarker
	return em
}

// symlinkOrMarker creates a symbolic link when the project filesystem
// supports it, or a small marker file holding the target path otherwise
// (e.g. in-memory filesystems used in tests)
func (em *ExternalManager) symlinkOrMarker(target, linkName string) error {
	if dir := path.Dir(linkName); dir != "" && dir != "." {
		if err := em.project.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	_ = em.project.Remove(linkName)
	if linker, ok := em.project.(afero.Linker); ok {
		return linker.SymlinkIfPossible(target, linkName)
	}
	return afero.WriteFile(em.project, linkName, []byte("link: "+target+"\n"), 0644)
}

// Link records an externally-mounted file in a dataset. The source must
// already be present on the local filesystem: nothing is fetched or copied,
// only a link plus the file's current checksum are recorded.
func (em *ExternalManager) Link(ctx context.Context, dataset *model.DatasetDescriptor, sourcePath, destination string) (model.DatasetFile, error) {
	fi, err := em.local.Stat(sourcePath)
	if err != nil {
		return model.DatasetFile{}, status.ErrExternalSourceMissing.WrapMessage("source %q: %v", sourcePath, err)
	}

	checksum, err := em.hasher.Process(em.local, sourcePath)
	if err != nil {
		return model.DatasetFile{}, err
	}

	dataRoot := model.GetDataPathToDataset(dataset.Name)
	relTarget := path.Join(destination, path.Base(sourcePath))
	fullPath := path.Join(dataRoot, relTarget)

	if err := em.link(sourcePath, fullPath); err != nil {
		return model.DatasetFile{}, err
	}

	em.l.Debug("linked external file",
		zap.String("dataset", dataset.Name),
		zap.String("source", sourcePath),
		zap.String("target", fullPath),
	)

	file := model.DatasetFile{
		Path:       relTarget,
		FullPath:   fullPath,
		SourceURI:  sourcePath,
		SourcePath: sourcePath,
		AddedAt:    model.GetDatasetTimeStamp(),
		External:   true,
		Checksum:   checksum,
		Size:       uint64(fi.Size()),
	}
	mergeFiles(dataset, []model.DatasetFile{file})
	return file, nil
}

// Refresh recomputes the checksum of each external source of a dataset.
// Stale records (checksum drift) are replaced and re-linked without
// refetching; the dataset-relative paths of refreshed files are returned.
func (em *ExternalManager) Refresh(ctx context.Context, dataset *model.DatasetDescriptor) ([]string, error) {
	var refreshed []string
	var replacements []model.DatasetFile

	for _, f := range dataset.Files {
		if !f.External {
			continue
		}
		if err := ctx.Err(); err != nil {
			return refreshed, status.ErrInterrupted.Wrap(err)
		}
		checksum, err := em.hasher.Process(em.local, f.SourcePath)
		if err != nil {
			return refreshed, status.ErrExternalSourceMissing.WrapMessage(
				"dataset %q, source %q: %v", dataset.Name, f.SourcePath, err)
		}
		if checksum == f.Checksum {
			continue
		}
		if err := em.link(f.SourcePath, f.FullPath); err != nil {
			return refreshed, err
		}
		fi, err := em.local.Stat(f.SourcePath)
		if err != nil {
			return refreshed, err
		}
		replacement := f
		replacement.Checksum = checksum
		replacement.AddedAt = model.GetDatasetTimeStamp()
		replacement.Size = uint64(fi.Size())
		replacements = append(replacements, replacement)
		refreshed = append(refreshed, f.Path)
	}

	mergeFiles(dataset, replacements)
	return refreshed, nil
}
