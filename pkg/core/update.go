package core

import (
	"context"
	"os"
	"strings"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/fingerprint"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// UpdateEngine diffs a dataset's tracked files against their sources and
// applies filtered updates.
//
// A failure resolving one dataset's source does not abort the batch: it is
// collected and reported per dataset while other datasets continue.
// Reconciliation within a single dataset is fail-fast.
type UpdateEngine struct {
	registry  *Registry
	importer  *Importer
	external  *ExternalManager
	repo      source.Repository
	project   afero.Fs
	providers ProviderResolver
	confirm   SelectionHandler
	hasher    *fingerprint.Maker
	l         *zap.Logger
}

// UpdateOption is a functor to build an update engine with some options
type UpdateOption func(*UpdateEngine)

// UpdateLogger injects a logging facility into update operations
func UpdateLogger(l *zap.Logger) UpdateOption {
	return func(u *UpdateEngine) {
		u.l = l
	}
}

// WithProviderResolver injects the provider selection used for
// provider-origin datasets
func WithProviderResolver(resolver ProviderResolver) UpdateOption {
	return func(u *UpdateEngine) {
		u.providers = resolver
	}
}

// WithSelectionHandler injects the confirmation callbacks acknowledging
// lossy operations
func WithSelectionHandler(handler SelectionHandler) UpdateOption {
	return func(u *UpdateEngine) {
		if handler != nil {
			u.confirm = handler
		}
	}
}

// UpdateHasher overrides the fingerprint maker used to detect content drift
func UpdateHasher(m *fingerprint.Maker) UpdateOption {
	return func(u *UpdateEngine) {
		u.hasher = m
	}
}

// NewUpdateEngine builds an update engine over the project working tree
func NewUpdateEngine(registry *Registry, importer *Importer, external *ExternalManager, repo source.Repository, project afero.Fs, opts ...UpdateOption) *UpdateEngine {
	u := &UpdateEngine{
		registry: registry,
		importer: importer,
		external: external,
		repo:     repo,
		project:  project,
		confirm:  denyAll{},
		hasher:   fingerprint.New(),
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(u)
	}
	return u
}

// UpdateRequest scopes and filters one update run
type UpdateRequest struct {
	// Ref updates git-tracked files to a specific branch, commit or tag.
	// Empty means each file's own origin branch, latest commit.
	Ref string

	// Include/Exclude restrict eligible files by glob patterns on their path
	Include []string
	Exclude []string

	// Creators restricts eligible files to those whose recorded creators
	// intersect this list
	Creators []string

	// Delete removes tracked files whose source no longer exists at the
	// resolved ref. Without it, drift is tolerated and such files are left
	// untouched.
	Delete bool

	// External refreshes externally-linked files. Checksum cost makes this
	// explicit: external files are never refreshed implicitly.
	External bool
}

// DatasetUpdate reports the outcome of reconciling one dataset
type DatasetUpdate struct {
	Name      string
	Updated   []string // dataset-relative paths re-imported from their source
	Deleted   []string // paths removed because their source vanished
	Refreshed []string // external paths re-linked after checksum drift
	Err       error
}

// Update recomputes source state for the named datasets (empty means all)
// and reconciles their tracked files. Per-dataset failures are collected in
// the returned report and combined error; sibling datasets proceed.
func (u *UpdateEngine) Update(ctx context.Context, names []string, req UpdateRequest) ([]DatasetUpdate, error) {
	datasets, err := u.registry.datasetsByNames(ctx, names)
	if err != nil {
		return nil, err
	}

	var batchErr error
	reports := make([]DatasetUpdate, 0, len(datasets))
	for i := range datasets {
		dataset := datasets[i]
		report, derr := u.updateOne(ctx, &dataset, req)
		report.Name = dataset.Name
		if derr != nil {
			report.Err = derr
			batchErr = multierr.Append(batchErr,
				errors.New("updating dataset").WrapMessage("dataset %q: %v", dataset.Name, derr))
		}
		reports = append(reports, report)
		if ctx.Err() != nil {
			break
		}
	}
	return reports, batchErr
}

func (u *UpdateEngine) updateOne(ctx context.Context, dataset *model.DatasetDescriptor, req UpdateRequest) (DatasetUpdate, error) {
	var report DatasetUpdate

	fromProvider := false
	if dataset.SourceURI != "" {
		if kind, err := source.ClassifyURI(dataset.SourceURI); err == nil && kind == source.KindProvider {
			fromProvider = true
		}
	}

	if fromProvider {
		if len(req.Include) > 0 || len(req.Exclude) > 0 {
			return report, status.ErrIncompatibleFilter.WrapMessage(
				"dataset %q was imported from %q and is refreshed as a whole", dataset.Name, dataset.SourceURI)
		}
		if err := u.refreshFromProvider(ctx, dataset, &report); err != nil {
			return report, err
		}
	} else {
		if err := u.updateGitFiles(ctx, dataset, req, &report); err != nil {
			return report, err
		}
	}

	if req.External {
		refreshed, err := u.external.Refresh(ctx, dataset)
		if err != nil {
			return report, err
		}
		report.Refreshed = refreshed
	}

	if len(report.Updated)+len(report.Deleted)+len(report.Refreshed) == 0 {
		return report, nil
	}
	return report, u.registry.Save(ctx, dataset)
}

// updateGitFiles re-resolves each git-tracked file's origin at the requested
// ref and re-imports those whose content drifted from the stored checksum
func (u *UpdateEngine) updateGitFiles(ctx context.Context, dataset *model.DatasetDescriptor, req UpdateRequest, report *DatasetUpdate) error {
	type remoteState struct {
		commit string
		tree   map[string]struct{}
	}
	states := map[string]*remoteState{}

	var (
		deleted      []string
		replacements []model.DatasetFile
	)
	for _, f := range dataset.Files {
		if f.External || f.SourceURI == "" {
			continue
		}
		kind, err := source.ClassifyURI(f.SourceURI)
		if err != nil || kind != source.KindGit {
			continue
		}

		eligible, err := matchesFilters(f.Path, req.Include, req.Exclude)
		if err != nil {
			return err
		}
		if !eligible {
			continue
		}
		if len(req.Creators) > 0 && !model.CreatorsIntersect(f.Creators, req.Creators) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return status.ErrInterrupted.Wrap(err)
		}

		ref := req.Ref
		if ref == "" {
			ref = f.OriginRef
		}
		stateKey := f.SourceURI + "@" + ref
		state := states[stateKey]
		if state == nil {
			commit, rerr := u.repo.ResolveRef(ctx, f.SourceURI, ref)
			if rerr != nil {
				return status.ErrNotFound.WrapMessage("dataset %q: resolving %q at ref %q: %v",
					dataset.Name, f.SourceURI, ref, rerr)
			}
			paths, terr := u.repo.ListTree(ctx, f.SourceURI, commit, "")
			if terr != nil {
				return terr
			}
			state = &remoteState{commit: commit, tree: make(map[string]struct{}, len(paths))}
			for _, p := range paths {
				state.tree[p] = struct{}{}
			}
			states[stateKey] = state
		}

		if _, present := state.tree[f.SourcePath]; !present {
			if !req.Delete {
				continue // explicit tolerance of drift
			}
			deleted = append(deleted, f.Path)
			if err := u.project.Remove(f.FullPath); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}

		changed, err := u.contentDrifted(ctx, f, state.commit)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		replacement, err := u.reimportFile(ctx, f, ref, state.commit)
		if err != nil {
			return err
		}
		replacements = append(replacements, replacement)
		report.Updated = append(report.Updated, f.Path)
		u.l.Info("updated file from source",
			zap.String("dataset", dataset.Name),
			zap.String("path", f.Path),
			zap.String("commit", state.commit),
		)
	}

	mergeFiles(dataset, replacements)
	if len(deleted) > 0 {
		removeFiles(dataset, deleted)
		report.Deleted = deleted
	}
	return nil
}

// reimportFile overwrites a tracked file in place with its source content at
// a commit and returns the updated record, provenance included
func (u *UpdateEngine) reimportFile(ctx context.Context, f model.DatasetFile, ref, commit string) (model.DatasetFile, error) {
	rdr, err := u.repo.ReadBlob(ctx, f.SourceURI, commit, f.SourcePath)
	if err != nil {
		return model.DatasetFile{}, err
	}
	defer rdr.Close()
	written, err := u.importer.writeFile(f.FullPath, rdr)
	if err != nil {
		return model.DatasetFile{}, err
	}
	checksum, err := u.hasher.Process(u.project, f.FullPath)
	if err != nil {
		return model.DatasetFile{}, err
	}
	replacement := f
	replacement.AddedAt = model.GetDatasetTimeStamp()
	replacement.Checksum = checksum
	replacement.Size = uint64(written)
	replacement.OriginCommit = commit
	replacement.OriginRef = ref
	return replacement, nil
}

// contentDrifted compares the remote content checksum at a commit with the
// checksum recorded for a tracked file
func (u *UpdateEngine) contentDrifted(ctx context.Context, f model.DatasetFile, commit string) (bool, error) {
	rdr, err := u.repo.ReadBlob(ctx, f.SourceURI, commit, f.SourcePath)
	if err != nil {
		return false, err
	}
	defer rdr.Close()
	checksum, err := u.hasher.ProcessReader(rdr)
	if err != nil {
		return false, err
	}
	return checksum != f.Checksum, nil
}

// refreshFromProvider refreshes a provider-origin dataset as a whole: the
// provider snapshot is atomic and cannot be partially reconciled.
func (u *UpdateEngine) refreshFromProvider(ctx context.Context, dataset *model.DatasetDescriptor, report *DatasetUpdate) error {
	if u.providers == nil {
		return status.ErrDatasetNotFound.WrapMessage(
			"dataset %q: no provider can serve %q", dataset.Name, dataset.SourceURI)
	}
	client, err := u.providers(dataset.SourceURI)
	if err != nil {
		return err
	}

	modified, err := u.locallyModified(dataset)
	if err != nil {
		return err
	}
	if len(modified) > 0 && !u.confirm.Confirm(
		"updating will discard local modifications to "+joinPaths(modified)+"; continue?") {
		return status.ErrLocalModification.WrapMessage(
			"dataset %q, modified files: %s", dataset.Name, joinPaths(modified))
	}

	record, err := client.FetchMetadata(ctx, dataset.SourceURI)
	if err != nil {
		return err
	}
	files, err := client.FetchFiles(ctx, dataset.SourceURI)
	if err != nil {
		return err
	}
	added, err := u.importer.MaterializeProviderFiles(ctx, dataset, files, false)
	if err != nil {
		return err
	}
	dataset.Version = record.Version
	if !record.PublishedAt.IsZero() {
		dataset.PublishedAt = record.PublishedAt
	}
	for _, f := range added {
		report.Updated = append(report.Updated, f.Path)
	}
	return nil
}

// locallyModified lists the non-external files whose on-disk content no
// longer matches the recorded checksum
func (u *UpdateEngine) locallyModified(dataset *model.DatasetDescriptor) ([]string, error) {
	var modified []string
	for _, f := range dataset.Files {
		if f.External || f.Checksum == "" {
			continue
		}
		current, err := u.hasher.Process(u.project, f.FullPath)
		if err != nil {
			modified = append(modified, f.Path) // missing counts as modified
			continue
		}
		if current != f.Checksum {
			modified = append(modified, f.Path)
		}
	}
	return modified, nil
}

func joinPaths(paths []string) string {
	return strings.Join(paths, ", ")
}

func removeFiles(dataset *model.DatasetDescriptor, paths []string) {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}
	kept := dataset.Files[:0]
	for _, f := range dataset.Files {
		if _, ok := drop[f.Path]; !ok {
			kept = append(kept, f)
		}
	}
	dataset.Files = kept
}
