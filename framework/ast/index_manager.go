package ast

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSourceDirs are the workspace subtrees scanned for module definitions.
var DefaultSourceDirs = []string{"lib", "deps"}

// IndexConfig configures the IndexManager.
type IndexConfig struct {
	WorkspacePath   string
	SourceDirs      []string
	Extensions      []string
	IgnorePatterns  []string
	ParallelWorkers int
}

type indexSnapshot struct {
	index *ModuleIndex
	meta  CacheMetadata
}

// IndexManager owns the process-wide ModuleIndex. The index is replaced
// atomically after each completed rebuild; readers never see a partial scan.
type IndexManager struct {
	config           IndexConfig
	scanner          *HeaderScanner
	languageDetector *LanguageDetector
	store            IndexStore
	logger           *log.Logger
	current          atomic.Pointer[indexSnapshot]

	mu  sync.Mutex
	now func() time.Time
}

// NewIndexManager builds a manager holding an empty index. store may be nil.
func NewIndexManager(config IndexConfig, store IndexStore, logger *log.Logger) *IndexManager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if len(config.SourceDirs) == 0 {
		config.SourceDirs = DefaultSourceDirs
	}
	im := &IndexManager{
		config:           config,
		scanner:          NewHeaderScanner(),
		languageDetector: NewLanguageDetector(config.Extensions...),
		store:            store,
		logger:           logger,
		now:              time.Now,
	}
	im.current.Store(&indexSnapshot{index: NewModuleIndex()})
	return im
}

// Roots resolves the configured source directories against the workspace.
func (im *IndexManager) Roots() []string {
	root := im.config.WorkspacePath
	if root == "" {
		root = "."
	}
	roots := make([]string, 0, len(im.config.SourceDirs))
	for _, dir := range im.config.SourceDirs {
		if filepath.IsAbs(dir) {
			roots = append(roots, dir)
			continue
		}
		roots = append(roots, filepath.Join(root, dir))
	}
	return roots
}

// Rebuild rescans the configured source directories.
func (im *IndexManager) Rebuild(ctx context.Context) (CacheMetadata, error) {
	return im.RebuildRoots(ctx, im.Roots())
}

// RebuildRoots scans roots and swaps in the resulting index. Unreadable files
// and directories are logged and skipped; missing roots are ignored. Only a
// cancelled context aborts the rebuild, in which case the previous index stays.
func (im *IndexManager) RebuildRoots(ctx context.Context, roots []string) (CacheMetadata, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.logger.Info("Building module cache", "roots", roots)
	builder := NewModuleIndexBuilder()
	for _, root := range roots {
		if err := im.scanRoot(ctx, root, builder); err != nil {
			return im.Info(), err
		}
	}
	index := builder.Build()
	meta := CacheMetadata{
		ModuleCount:    index.ModuleCount(),
		ShortNameCount: index.Len(),
		LastBuilt:      im.now().UTC(),
	}
	im.current.Store(&indexSnapshot{index: index, meta: meta})
	im.logger.Info("Cache built", "modules", meta.ModuleCount, "short_names", meta.ShortNameCount)

	if im.store != nil {
		if err := im.store.SaveIndex(index, meta); err != nil {
			im.logger.Warn("Saving index snapshot failed", "err", err)
		}
	}
	return meta, nil
}

// LoadSnapshot restores the last persisted index, if a store is configured.
func (im *IndexManager) LoadSnapshot() (CacheMetadata, error) {
	if im.store == nil {
		return CacheMetadata{}, ErrNoSnapshot
	}
	index, meta, err := im.store.LoadIndex()
	if err != nil {
		return CacheMetadata{}, err
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	im.current.Store(&indexSnapshot{index: index, meta: meta})
	im.logger.Debug("Loaded index snapshot", "modules", meta.ModuleCount, "built", meta.LastBuilt)
	return meta, nil
}

// Current returns the index from the last completed rebuild.
func (im *IndexManager) Current() *ModuleIndex {
	return im.current.Load().index
}

// Info returns the metadata of the current index.
func (im *IndexManager) Info() CacheMetadata {
	return im.current.Load().meta
}

// Lookup resolves a short name against the current index.
func (im *IndexManager) Lookup(shortName string) []string {
	return im.Current().Lookup(shortName)
}

func (im *IndexManager) scanRoot(ctx context.Context, root string, builder *ModuleIndexBuilder) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			im.logger.Debug("Skipping missing source directory", "path", root)
			return nil
		}
		im.logger.Warn("Error scanning directory", "path", root, "err", err)
		return nil
	}
	if !info.IsDir() {
		im.logger.Debug("Skipping non-directory source root", "path", root)
		return nil
	}
	return im.scanDirectory(ctx, root, builder)
}

// scanDirectory merges names in directory-entry order, recursing into
// subdirectories where they appear, so parallel file reads produce the same
// candidate ordering as a sequential walk.
func (im *IndexManager) scanDirectory(ctx context.Context, dir string, builder *ModuleIndexBuilder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		im.logger.Warn("Error scanning directory", "path", dir, "err", err)
		return nil
	}
	var files []string
	fileSlot := make(map[int]int)
	for i, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if im.shouldIgnore(entry.Name()) {
			continue
		}
		if entry.Type().IsRegular() && im.languageDetector.IsSource(path) {
			fileSlot[i] = len(files)
			files = append(files, path)
		}
	}
	names := im.readModuleNames(ctx, files)

	for i, entry := range entries {
		if slot, ok := fileSlot[i]; ok {
			for _, name := range names[slot] {
				builder.Add(name)
			}
			continue
		}
		if !entry.IsDir() || im.shouldIgnore(entry.Name()) {
			continue
		}
		if err := im.scanDirectory(ctx, filepath.Join(dir, entry.Name()), builder); err != nil {
			return err
		}
	}
	return nil
}

func (im *IndexManager) readModuleNames(ctx context.Context, files []string) [][]string {
	results := make([][]string, len(files))
	workers := im.config.ParallelWorkers
	if workers <= 1 || len(files) < 2 {
		for i, file := range files {
			results[i] = im.scanFile(file)
		}
		return results
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			results[i] = im.scanFile(file)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (im *IndexManager) scanFile(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		im.logger.Warn("Error scanning file", "path", path, "err", err)
		return nil
	}
	return im.scanner.ScanNames(string(content))
}

func (im *IndexManager) shouldIgnore(name string) bool {
	for _, pattern := range im.config.IgnorePatterns {
		if pattern == name {
			return true
		}
		if match, err := filepath.Match(pattern, name); err == nil && match {
			return true
		}
	}
	return false
}
