package core

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/fingerprint"
	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const defaultConcurrentFileTransfers = 4

// Importer copies resolved source files into a dataset's storage area.
//
// Transfers run concurrently across files within one import call to overlap
// network latency; the resulting file list is deterministic (sorted by path)
// once all transfers complete.
type Importer struct {
	project     afero.Fs // project working tree
	local       afero.Fs // local filesystem, for local and mounted sources
	repo        source.Repository
	l           *zap.Logger
	concurrency int
	progress    ProgressSink
	hasher      *fingerprint.Maker
}

// ImporterOption is a functor to build an importer with some options
type ImporterOption func(*Importer)

// ImporterLogger injects a logging facility into import operations
func ImporterLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) {
		im.l = l
	}
}

// ConcurrentFileTransfers tunes the level of concurrency when transferring files
func ConcurrentFileTransfers(concurrency int) ImporterOption {
	return func(im *Importer) {
		if concurrency > 0 {
			im.concurrency = concurrency
		}
	}
}

// Progress injects a sink for per-file transfer progress events
func Progress(sink ProgressSink) ImporterOption {
	return func(im *Importer) {
		if sink != nil {
			im.progress = sink
		}
	}
}

// LocalFs overrides the filesystem local sources are read from
func LocalFs(fs afero.Fs) ImporterOption {
	return func(im *Importer) {
		im.local = fs
	}
}

// Hasher overrides the fingerprint maker computing file checksums
func Hasher(m *fingerprint.Maker) ImporterOption {
	return func(im *Importer) {
		im.hasher = m
	}
}

// NewImporter builds an importer writing into a project working tree
func NewImporter(project afero.Fs, repo source.Repository, opts ...ImporterOption) *Importer {
	im := &Importer{
		project:     project,
		local:       afero.NewOsFs(),
		repo:        repo,
		l:           zap.NewNop(),
		concurrency: defaultConcurrentFileTransfers,
		progress:    NoopProgress{},
		hasher:      fingerprint.New(),
	}
	for _, apply := range opts {
		apply(im)
	}
	return im
}

// ImportResult reports the outcome of one import call
type ImportResult struct {
	// Added holds the file records created or replaced, sorted by path
	Added []model.DatasetFile

	// Skipped holds the dataset-relative paths left untouched because a
	// file already existed at the target and overwrite was not requested
	Skipped []string
}

// transferTask is one file to bring into the dataset storage area
type transferTask struct {
	ref       source.Ref
	relTarget string
}

// fileEvent catches a single transfer outcome with possible error
type fileEvent struct {
	file    model.DatasetFile
	skipped string
	err     error
}

// Import copies each resolved source file into the dataset storage root
// under destination, preserving relative sub-structure when multiple files
// match a wildcard.
//
// If destination does not exist it is created. If it exists and is a file
// while multiple sources are being added, the import fails. With
// overwrite=false, files already present at the target path are skipped and
// reported as such (non-fatal); with overwrite=true they are replaced.
// Every successful transfer merges one file record into the dataset
// descriptor; persisting the descriptor is left to the caller.
func (im *Importer) Import(ctx context.Context, dataset *model.DatasetDescriptor, refs []source.Ref, destination string, overwrite bool) (ImportResult, error) {
	if len(refs) == 0 {
		return ImportResult{}, nil
	}

	dataRoot := model.GetDataPathToDataset(dataset.Name)

	destOverride, err := im.checkDestination(dataRoot, destination, len(refs))
	if err != nil {
		return ImportResult{}, err
	}

	tasks := planTransfers(refs, destination, destOverride)

	result, err := im.runTransfers(ctx, dataset, dataRoot, tasks, overwrite)
	if err != nil {
		return ImportResult{}, err
	}

	mergeFiles(dataset, result.Added)
	return result, nil
}

// checkDestination verifies the destination rules and reports whether the
// destination names an existing file to overwrite in place
func (im *Importer) checkDestination(dataRoot, destination string, sources int) (bool, error) {
	if destination == "" {
		return false, nil
	}
	full := path.Join(dataRoot, destination)
	fi, err := im.project.Stat(full)
	if err != nil {
		return false, nil // destination does not exist yet: it will be created
	}
	if fi.IsDir() {
		return false, nil
	}
	if sources > 1 {
		return false, status.ErrDestinationConflict.WrapMessage(
			"destination %q is an existing file while %d sources are being added", destination, sources)
	}
	return true, nil
}

// planTransfers computes the dataset-relative target of every source,
// preserving sub-structure relative to the common directory of the sources
func planTransfers(refs []source.Ref, destination string, destOverride bool) []transferTask {
	tasks := make([]transferTask, 0, len(refs))
	if len(refs) == 1 {
		target := path.Join(destination, path.Base(refs[0].SourcePath))
		if destOverride {
			target = destination
		}
		return append(tasks, transferTask{ref: refs[0], relTarget: target})
	}
	common := commonDir(refs)
	for _, ref := range refs {
		rel := strings.TrimPrefix(ref.SourcePath, common)
		tasks = append(tasks, transferTask{ref: ref, relTarget: path.Join(destination, rel)})
	}
	return tasks
}

func commonDir(refs []source.Ref) string {
	common := path.Dir(refs[0].SourcePath)
	for _, ref := range refs[1:] {
		dir := path.Dir(ref.SourcePath)
		for common != "." && common != "/" && !strings.HasPrefix(dir+"/", common+"/") {
			common = path.Dir(common)
		}
	}
	if common == "." || common == "/" {
		return ""
	}
	return common + "/"
}

// runTransfers distributes transfer tasks over a pool of workers.
// The first error interrupts the distribution of the remaining tasks;
// transfers already completed keep their records.
func (im *Importer) runTransfers(ctx context.Context, dataset *model.DatasetDescriptor, dataRoot string, tasks []transferTask, overwrite bool) (ImportResult, error) {
	var (
		workers, wg sync.WaitGroup
		werr        error
	)

	taskChan := make(chan transferTask)
	eventChan := make(chan fileEvent)
	doneChan := make(chan struct{}, 1)
	defer close(doneChan)

	for i := 0; i < minInt(im.concurrency, len(tasks)); i++ {
		workers.Add(1)
		go im.transferAsync(ctx, dataset, dataRoot, overwrite, taskChan, eventChan, &workers)
	}

	wg.Add(1)
	go func(wg *sync.WaitGroup) {
		defer func() {
			close(taskChan)
			wg.Done()
		}()
		for _, task := range tasks {
			select {
			case taskChan <- task:
			case <-doneChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}(&wg)

	wg.Add(1)
	go func(wg *sync.WaitGroup) {
		defer wg.Done()
		workers.Wait()
		close(eventChan)
	}(&wg)

	var result ImportResult
	for ev := range eventChan {
		if ev.err != nil && werr == nil {
			werr = ev.err
			doneChan <- struct{}{}
			for range eventChan {
			} // wait for close
			break
		}
		if ev.skipped != "" {
			result.Skipped = append(result.Skipped, ev.skipped)
			continue
		}
		result.Added = append(result.Added, ev.file)
	}

	wg.Wait()

	if werr != nil {
		return ImportResult{}, werr
	}
	if err := ctx.Err(); err != nil {
		// transfers already merged stay; the dataset remains re-resolvable
		return result, status.ErrInterrupted.Wrap(err)
	}
	sortTransferred(&result)
	return result, nil
}

func sortTransferred(result *ImportResult) {
	sort.Slice(result.Added, func(i, j int) bool {
		return result.Added[i].Path < result.Added[j].Path
	})
	sort.Strings(result.Skipped)
}

// transferAsync copies a single source into the project tree and emits
// the resulting file record
func (im *Importer) transferAsync(ctx context.Context, dataset *model.DatasetDescriptor, dataRoot string, overwrite bool, input <-chan transferTask, output chan<- fileEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	for task := range input {
		fullPath := path.Join(dataRoot, task.relTarget)

		if !overwrite {
			if _, err := im.project.Stat(fullPath); err == nil {
				output <- fileEvent{skipped: task.relTarget}
				continue
			}
		}

		file, err := im.transferOne(ctx, dataset, task, fullPath)
		if err != nil {
			output <- fileEvent{err: err}
			continue
		}
		output <- fileEvent{file: file}
	}
}

func (im *Importer) transferOne(ctx context.Context, dataset *model.DatasetDescriptor, task transferTask, fullPath string) (model.DatasetFile, error) {
	rdr, size, err := im.openSource(ctx, task.ref)
	if err != nil {
		return model.DatasetFile{}, err
	}
	defer rdr.Close()

	im.progress.OnStart(task.ref.SourcePath, size)
	defer im.progress.OnFinish()

	written, err := im.writeFile(fullPath, &progressReader{r: rdr, sink: im.progress})
	if err != nil {
		return model.DatasetFile{}, err
	}

	checksum, err := im.hasher.Process(im.project, fullPath)
	if err != nil {
		return model.DatasetFile{}, err
	}

	im.l.Debug("transferred file",
		zap.String("dataset", dataset.Name),
		zap.String("source", task.ref.SourcePath),
		zap.String("target", fullPath),
		zap.Int64("bytes", written),
	)

	return model.DatasetFile{
		Path:         task.relTarget,
		FullPath:     fullPath,
		SourceURI:    task.ref.URI,
		SourcePath:   task.ref.SourcePath,
		AddedAt:      model.GetDatasetTimeStamp(),
		Checksum:     checksum,
		OriginCommit: task.ref.Commit,
		OriginRef:    task.ref.GitRef,
		Size:         uint64(written),
		Creators:     dataset.Creators,
	}, nil
}

func (im *Importer) openSource(ctx context.Context, ref source.Ref) (io.ReadCloser, int64, error) {
	switch ref.Kind {
	case source.KindGit:
		rdr, err := im.repo.ReadBlob(ctx, ref.URI, ref.Commit, ref.SourcePath)
		return rdr, -1, err
	default:
		fi, err := im.local.Stat(ref.SourcePath)
		if err != nil {
			return nil, 0, status.ErrNotFound.WrapMessage("local source %q: %v", ref.SourcePath, err)
		}
		rdr, err := im.local.Open(ref.SourcePath)
		if err != nil {
			return nil, 0, err
		}
		return rdr, fi.Size(), nil
	}
}

func (im *Importer) writeFile(fullPath string, rdr io.Reader) (int64, error) {
	if dir := path.Dir(fullPath); dir != "" && dir != "." {
		if err := im.project.MkdirAll(dir, 0755); err != nil {
			return 0, err
		}
	}
	target, err := im.project.Create(fullPath)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(target, rdr)
	if err != nil {
		_ = target.Close()
		return 0, err
	}
	return written, target.Close()
}

// mergeFiles replaces same-path records and appends new ones: file records
// are never mutated in place, an update replaces the record
func mergeFiles(dataset *model.DatasetDescriptor, added []model.DatasetFile) {
	byPath := make(map[string]int, len(dataset.Files))
	for i, f := range dataset.Files {
		byPath[f.Path] = i
	}
	for _, f := range added {
		if i, ok := byPath[f.Path]; ok {
			dataset.Files[i] = f
			continue
		}
		dataset.Files = append(dataset.Files, f)
	}
	dataset.SortFiles()
}
