package core

import (
	"bytes"
	"context"
	"io/ioutil"
	"sort"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/storage"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"
)

// TagManager creates, lists and removes immutable named snapshots of a
// dataset, bound to a point in project history.
type TagManager struct {
	meta     storage.Store
	repo     source.Repository
	registry *Registry
	l        *zap.Logger
}

// TagOption is a functor to build a tag manager with some options
type TagOption func(*TagManager)

// TagLogger injects a logging facility into tag operations
func TagLogger(l *zap.Logger) TagOption {
	return func(tm *TagManager) {
		tm.l = l
	}
}

// NewTagManager builds a tag manager over a metadata store
func NewTagManager(meta storage.Store, repo source.Repository, registry *Registry, opts ...TagOption) *TagManager {
	tm := &TagManager{
		meta:     meta,
		repo:     repo,
		registry: registry,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(tm)
	}
	return tm
}

// Tag snapshots the current state of a dataset under an immutable name.
// An existing tag name fails unless force is set, in which case the
// binding is overwritten.
func (tm *TagManager) Tag(ctx context.Context, datasetName, tagName, description string, force bool) (*model.TagDescriptor, error) {
	dataset, err := tm.registry.Get(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	archivePath := model.GetArchivePathToTag(datasetName, tagName)
	has, err := tm.meta.Has(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	if has && !force {
		return nil, status.ErrDuplicateTag.WrapMessage("dataset %q, tag %q", datasetName, tagName)
	}

	commit, err := tm.repo.CurrentCommit(ctx)
	if err != nil {
		return nil, err
	}

	tag := &model.TagDescriptor{
		Name:        tagName,
		DatasetName: datasetName,
		DatasetID:   dataset.ID,
		Description: description,
		CreatedAt:   model.GetDatasetTimeStamp(),
		CommitID:    commit,
		Files:       append([]model.DatasetFile(nil), dataset.Files...),
	}
	buffer, err := yaml.Marshal(tag)
	if err != nil {
		return nil, err
	}
	if err := tm.meta.Put(ctx, archivePath, bytes.NewReader(buffer), storage.OverWrite); err != nil {
		return nil, err
	}
	tm.l.Info("created tag",
		zap.String("dataset", datasetName),
		zap.String("tag", tagName),
		zap.String("commit", commit),
	)
	return tag, nil
}

// GetTag retrieves one tag of a dataset
func (tm *TagManager) GetTag(ctx context.Context, datasetName, tagName string) (*model.TagDescriptor, error) {
	archivePath := model.GetArchivePathToTag(datasetName, tagName)
	has, err := tm.meta.Has(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotFound.WrapMessage("dataset %q, tag %q", datasetName, tagName)
	}
	rdr, err := tm.meta.Get(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	buffer, err := ioutil.ReadAll(rdr)
	if err != nil {
		return nil, err
	}
	var tag model.TagDescriptor
	if err := yaml.Unmarshal(buffer, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns the tags of a dataset, ordered by creation time
// ascending. Callers may re-sort.
func (tm *TagManager) ListTags(ctx context.Context, datasetName string) (model.TagDescriptors, error) {
	if _, err := tm.registry.Get(ctx, datasetName); err != nil {
		return nil, err
	}
	keys, _, err := tm.meta.KeysPrefix(ctx, "", model.GetArchivePathPrefixToTags(datasetName), "", 0)
	if err != nil {
		return nil, err
	}
	tags := make(model.TagDescriptors, 0, len(keys))
	for _, k := range keys {
		apc, err := model.GetArchivePathComponents(k)
		if err != nil {
			return nil, err
		}
		tag, err := tm.GetTag(ctx, datasetName, apc.TagName)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	sort.Sort(tags)
	return tags, nil
}

// RemoveTags deletes matching tags. Unknown names are reported in missing,
// not fatal. Removal deletes the record only, never rewrites history.
func (tm *TagManager) RemoveTags(ctx context.Context, datasetName string, names []string) (removed, missing []string, err error) {
	if _, err = tm.registry.Get(ctx, datasetName); err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		archivePath := model.GetArchivePathToTag(datasetName, name)
		has, herr := tm.meta.Has(ctx, archivePath)
		if herr != nil {
			return removed, missing, herr
		}
		if !has {
			missing = append(missing, name)
			continue
		}
		if derr := tm.meta.Delete(ctx, archivePath); derr != nil {
			return removed, missing, derr
		}
		removed = append(removed, name)
	}
	return removed, missing, nil
}
