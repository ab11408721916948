package core

import (
	"bytes"
	"context"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/dataprov/dataprov/pkg/storage"
	storagestatus "github.com/dataprov/dataprov/pkg/storage/status"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"
)

const (
	typicalDatasetsNum = 100 // default number of allocated slots for datasets

	defaultConcurrentList = 4
	defaultListBatchSize  = 64
)

// Registry owns the representation of all datasets in a project:
// creation, metadata edit, removal, listing.
//
// Dataset descriptors are serialized as yaml metadata on the project's
// metadata store. The registry assumes external serialization of writes
// to a given dataset: it does not implement its own locking.
type Registry struct {
	meta           storage.Store
	l              *zap.Logger
	concurrentList int
	listBatchSize  int
}

// RegistryOption is a functor to build a registry with some options
type RegistryOption func(*Registry)

// RegistryLogger injects a logging facility into registry operations
func RegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.l = l
	}
}

// ConcurrentList tunes the level of concurrency when fetching dataset descriptors
func ConcurrentList(concurrency int) RegistryOption {
	return func(r *Registry) {
		if concurrency > 0 {
			r.concurrentList = concurrency
		}
	}
}

// NewRegistry builds a registry over a metadata store
func NewRegistry(meta storage.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		meta:           meta,
		l:              zap.NewNop(),
		concurrentList: defaultConcurrentList,
		listBatchSize:  defaultListBatchSize,
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Create an empty dataset with a unique name in the project
func (r *Registry) Create(ctx context.Context, name string, opts ...model.DatasetDescriptorOption) (*model.DatasetDescriptor, error) {
	dataset := model.NewDatasetDescriptor(name, opts...)
	if err := model.Validate(*dataset); err != nil {
		return nil, err
	}
	buffer, err := yaml.Marshal(dataset)
	if err != nil {
		return nil, err
	}
	path := model.GetArchivePathToDataset(name)
	err = r.meta.Put(ctx, path, bytes.NewReader(buffer), storage.NoOverWrite)
	if err != nil {
		if errors.Is(err, storagestatus.ErrExists) {
			return nil, status.ErrDatasetExists.WrapMessage("dataset %q", name)
		}
		return nil, err
	}
	r.l.Info("created dataset", zap.String("name", name), zap.String("id", dataset.ID))
	return dataset, nil
}

// Get retrieves the descriptor of a named dataset
func (r *Registry) Get(ctx context.Context, name string) (*model.DatasetDescriptor, error) {
	path := model.GetArchivePathToDataset(name)
	has, err := r.meta.Has(ctx, path)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrDatasetNotFound.WrapMessage("dataset %q", name)
	}
	rdr, err := r.meta.Get(ctx, path)
	if err != nil {
		return nil, err
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
	if dataset.Name != name {
		return nil, status.ErrUnexpectedUpdate.WrapMessage(
			"names in descriptor %q and archive path %q don't match", dataset.Name, name)
	}
	return &dataset, nil
}

// Exists tells whether a named dataset is registered in the project
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	return r.meta.Has(ctx, model.GetArchivePathToDataset(name))
}

// Save persists an updated descriptor.
//
// Validation runs before anything is written: a descriptor breaking
// invariants (e.g. duplicate file paths) is never persisted.
func (r *Registry) Save(ctx context.Context, dataset *model.DatasetDescriptor) error {
	if err := model.Validate(*dataset); err != nil {
		return err
	}
	dataset.SortFiles()
	buffer, err := yaml.Marshal(dataset)
	if err != nil {
		return err
	}
	return r.meta.Put(ctx, model.GetArchivePathToDataset(dataset.Name), bytes.NewReader(buffer), storage.OverWrite)
}

// EditFields selects the metadata fields an edit applies to.
// Nil fields are left untouched.
type EditFields struct {
	Title       *string
	Description *string
	Creators    []model.Creator
	Keywords    []string
}

// Edit updates the metadata of a dataset. It reports the names of the
// updated fields and the creators missing an email, for user-facing warnings.
func (r *Registry) Edit(ctx context.Context, name string, fields EditFields) (updated []string, warnings []string, err error) {
	dataset, err := r.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if fields.Title != nil {
		dataset.Title = *fields.Title
		updated = append(updated, "title")
	}
	if fields.Description != nil {
		dataset.Description = *fields.Description
		updated = append(updated, "description")
	}
	if fields.Creators != nil {
		dataset.Creators = fields.Creators
		updated = append(updated, "creators")
		warnings = model.CreatorsWithoutEmail(fields.Creators)
	}
	if fields.Keywords != nil {
		dataset.Keywords = fields.Keywords
		updated = append(updated, "keywords")
	}
	if len(updated) == 0 {
		return nil, nil, nil
	}
	if err = r.Save(ctx, dataset); err != nil {
		return nil, nil, err
	}
	return updated, warnings, nil
}

// Remove deletes a dataset record and its tag records.
// Content already copied into the project data area is left in place.
func (r *Registry) Remove(ctx context.Context, name string) error {
	path := model.GetArchivePathToDataset(name)
	has, err := r.meta.Has(ctx, path)
	if err != nil {
		return err
	}
	if !has {
		return status.ErrDatasetNotFound.WrapMessage("dataset %q", name)
	}
	tagKeys, _, err := r.meta.KeysPrefix(ctx, "", model.GetArchivePathPrefixToTags(name), "", 0)
	if err != nil {
		return err
	}
	for _, k := range tagKeys {
		if err := r.meta.Delete(ctx, k); err != nil {
			return err
		}
	}
	return r.meta.Delete(ctx, path)
}

// List returns all datasets in the project, ordered by name
func (r *Registry) List(ctx context.Context) (model.DatasetDescriptors, error) {
	datasets := make(model.DatasetDescriptors, 0, typicalDatasetsNum)

	keys, _, err := r.meta.KeysPrefix(ctx, "", model.GetArchivePathPrefixToDatasets(), "", 0)
	if err != nil {
		return nil, err
	}

	batch, err := r.fetchDatasetBatch(ctx, keys)
	if err != nil {
		return nil, err
	}
	datasets = append(datasets, batch...)

	sort.Sort(datasets)
	return datasets, nil
}

// datasetEvent catches a single dataset with possible retrieval error
type datasetEvent struct {
	dataset model.DatasetDescriptor
	err     error
}

// fetchDatasetBatch performs a parallel fetch for a batch of datasets
// identified by their keys, then reorders the result by name
func (r *Registry) fetchDatasetBatch(ctx context.Context, keys []string) (model.DatasetDescriptors, error) {
	var (
		workers, wg sync.WaitGroup
		werr        error
	)

	datasetChan := make(chan datasetEvent)
	keyChan := make(chan string)
	doneChan := make(chan struct{}, 1)
	defer close(doneChan)

	// spin up workers pool
	for i := 0; i < minInt(r.concurrentList, len(keys)); i++ {
		workers.Add(1)
		go r.getDatasetAsync(ctx, keyChan, datasetChan, &workers)
	}

	datasets := make(model.DatasetDescriptors, 0, len(keys))

	// distribute work. Stop immediately on first error reported by a worker
	wg.Add(1)
	go distributeKeys(keys, keyChan, doneChan, &wg)

	// wait for workers to complete
	wg.Add(1)
	go func(wg *sync.WaitGroup) {
		defer wg.Done()
		workers.Wait()
		close(datasetChan)
	}(&wg)

	// watch for results and coalesce
	for ev := range datasetChan {
		if ev.err != nil && werr == nil {
			werr = ev.err
			doneChan <- struct{}{} // interrupts key distribution (non-blocking)
			for range datasetChan {
			} // wait for close
			break
		}
		datasets = append(datasets, ev.dataset)
	}

	wg.Wait()

	if werr != nil {
		return nil, werr
	}
	return datasets, nil
}

// getDatasetAsync fetches and unmarshalls a dataset descriptor for each key submitted as input
func (r *Registry) getDatasetAsync(ctx context.Context, input <-chan string, output chan<- datasetEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	for k := range input {
		apc, err := model.GetArchivePathComponents(k)
		if err != nil {
			output <- datasetEvent{err: err}
			continue
		}
		dataset, err := r.Get(ctx, apc.DatasetName)
		if err != nil {
			if errors.Is(err, storagestatus.ErrNotExists) {
				continue
			}
			output <- datasetEvent{err: err}
			continue
		}
		output <- datasetEvent{dataset: *dataset}
	}
}

// distributeKeys feeds a key channel until done is signaled
func distributeKeys(keys []string, keyChan chan<- string, doneChan <-chan struct{}, wg *sync.WaitGroup) {
	defer func() {
		close(keyChan)
		wg.Done()
	}()
	for _, k := range keys {
		select {
		case keyChan <- k:
		case <-doneChan:
			return
		}
	}
}

// Unlink removes the dataset file records matching include/exclude glob
// filters (all records when no include filter is given). Only the records
// are removed, never the file content. The confirm callback receives the
// records about to be removed and may veto the operation.
func (r *Registry) Unlink(ctx context.Context, name string, include, exclude []string, confirm func([]model.DatasetFile) bool) ([]model.DatasetFile, error) {
	dataset, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	matched := make([]model.DatasetFile, 0, len(dataset.Files))
	kept := make([]model.DatasetFile, 0, len(dataset.Files))
	for _, f := range dataset.Files {
		ok, ferr := matchesFilters(f.Path, include, exclude)
		if ferr != nil {
			return nil, ferr
		}
		if ok {
			matched = append(matched, f)
		} else {
			kept = append(kept, f)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	if confirm != nil && !confirm(matched) {
		return nil, status.ErrInterrupted.WrapMessage("unlink from dataset %q not confirmed", name)
	}
	dataset.Files = kept
	if err := r.Save(ctx, dataset); err != nil {
		return nil, err
	}
	return matched, nil
}

// FileRecord is a dataset file along with the dataset it belongs to
type FileRecord struct {
	DatasetName string
	model.DatasetFile
}

// ListFiles returns the tracked files across datasets, restricted to the
// given dataset names (empty means all) and filtered by creators and
// include/exclude glob patterns. Results are ordered by dataset then path.
func (r *Registry) ListFiles(ctx context.Context, names []string, creators []string, include, exclude []string) ([]FileRecord, error) {
	datasets, err := r.datasetsByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	var res []FileRecord
	for _, dataset := range datasets {
		for _, f := range dataset.Files {
			if len(creators) > 0 && !model.CreatorsIntersect(f.Creators, creators) {
				continue
			}
			ok, ferr := matchesFilters(f.Path, include, exclude)
			if ferr != nil {
				return nil, ferr
			}
			if ok {
				res = append(res, FileRecord{DatasetName: dataset.Name, DatasetFile: f})
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DatasetName == res[j].DatasetName {
			return res[i].Path < res[j].Path
		}
		return res[i].DatasetName < res[j].DatasetName
	})
	return res, nil
}

func (r *Registry) datasetsByNames(ctx context.Context, names []string) (model.DatasetDescriptors, error) {
	if len(names) == 0 {
		return r.List(ctx)
	}
	datasets := make(model.DatasetDescriptors, 0, len(names))
	for _, name := range names {
		dataset, err := r.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, *dataset)
	}
	return datasets, nil
}

// matchesFilters applies include then exclude glob patterns to a path.
// An empty include list selects everything.
func matchesFilters(path string, include, exclude []string) (bool, error) {
	selected := len(include) == 0
	for _, pattern := range include {
		ok, err := source.MatchPattern(path, pattern)
		if err != nil {
			return false, err
		}
		if ok {
			selected = true
			break
		}
	}
	if !selected {
		return false, nil
	}
	for _, pattern := range exclude {
		ok, err := source.MatchPattern(path, pattern)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
