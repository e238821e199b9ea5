// FileCache provides read access to source files through memory-mapped regions.
//
// The runner parses every file it rewrites; mapping avoids copying each source
// into the Go heap before tree-sitter reads it. A file that is about to be
// rewritten MUST be invalidated first: truncating a mapped file and then
// touching the mapping faults the process.
//
// **Lifecycle:**
//   - Lazy loading: files are mapped on first access
//   - Kept mapped until Invalidate() or Close()
//   - Falls back to os.ReadFile when mmap fails (e.g. special files)
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// FileCache is safe for concurrent use.
type FileCache interface {
	// Get returns the contents of filePath, mapping it on first access.
	//
	// The returned slice is only valid until Invalidate(filePath) or Close().
	Get(filePath string) ([]byte, error)

	// Invalidate unmaps filePath. The next Get re-reads it from disk.
	Invalidate(filePath string) error

	// Size returns the number of cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() FileCacheStats

	// Close unmaps all files.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles is the maximum number of files kept mapped. When reached, Get
	// returns an error. 0 means unlimited.
	MaxFiles int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns defaults suitable for a project-sized run.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles: 10000,
	}
}

// FileCacheStats tracks cache metrics.
type FileCacheStats struct {
	// FilesLoaded is the cumulative number of files loaded.
	FilesLoaded int64

	// FilesCached is the current number of cached files.
	FilesCached int

	// CacheHits and CacheMisses count Get lookups.
	CacheHits   int64
	CacheMisses int64

	// MmapFailures counts files read through the os.ReadFile fallback.
	MmapFailures int64

	// Invalidations counts Invalidate calls that dropped an entry.
	Invalidations int64
}

type mappedFile struct {
	data mmap.MMap // nil for empty files
	file *os.File
}

type fileCacheImpl struct {
	config *FileCacheConfig
	logger *slog.Logger

	mu       sync.RWMutex
	mapped   map[string]*mappedFile
	fallback map[string][]byte

	statsMu sync.Mutex
	stats   FileCacheStats
}

// NewFileCache creates a FileCache. A nil config uses DefaultFileCacheConfig().
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &fileCacheImpl{
		config:   config,
		logger:   logger,
		mapped:   make(map[string]*mappedFile),
		fallback: make(map[string][]byte),
	}
}

func (fc *fileCacheImpl) Get(filePath string) ([]byte, error) {
	fc.mu.RLock()
	data, ok := fc.lookupLocked(filePath)
	fc.mu.RUnlock()
	if ok {
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return data, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Double-check: another goroutine may have loaded it.
	if data, ok := fc.lookupLocked(filePath); ok {
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return data, nil
	}

	fc.record(func(s *FileCacheStats) { s.CacheMisses++ })

	if fc.config.MaxFiles > 0 && len(fc.mapped)+len(fc.fallback) >= fc.config.MaxFiles {
		return nil, fmt.Errorf("FileCache limit reached: %d files (limit: %d files)",
			len(fc.mapped)+len(fc.fallback), fc.config.MaxFiles)
	}

	return fc.loadLocked(filePath)
}

// lookupLocked must be called while holding mu.
func (fc *fileCacheImpl) lookupLocked(filePath string) ([]byte, bool) {
	if mf, ok := fc.mapped[filePath]; ok {
		return mf.data, true
	}
	if data, ok := fc.fallback[filePath]; ok {
		return data, true
	}
	return nil, false
}

// loadLocked maps filePath, falling back to os.ReadFile. Must be called
// while holding mu.Lock.
func (fc *fileCacheImpl) loadLocked(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}

	fc.record(func(s *FileCacheStats) { s.FilesLoaded++ })

	// Zero-length files cannot be mapped.
	if stat.Size() == 0 {
		file.Close()
		fc.fallback[filePath] = []byte{}
		return fc.fallback[filePath], nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback",
			"file", filePath,
			"size", stat.Size(),
			"error", err)
		file.Close()

		content, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		fc.fallback[filePath] = content
		fc.record(func(s *FileCacheStats) { s.MmapFailures++ })
		return content, nil
	}

	fc.mapped[filePath] = &mappedFile{data: data, file: file}
	return data, nil
}

func (fc *fileCacheImpl) Invalidate(filePath string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, ok := fc.fallback[filePath]; ok {
		delete(fc.fallback, filePath)
		fc.record(func(s *FileCacheStats) { s.Invalidations++ })
		return nil
	}

	mf, ok := fc.mapped[filePath]
	if !ok {
		return nil
	}
	delete(fc.mapped, filePath)
	fc.record(func(s *FileCacheStats) { s.Invalidations++ })

	return unmap(filePath, mf)
}

func (fc *fileCacheImpl) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.mapped) + len(fc.fallback)
}

func (fc *fileCacheImpl) Stats() FileCacheStats {
	cached := fc.Size()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()

	stats := fc.stats
	stats.FilesCached = cached
	return stats
}

func (fc *fileCacheImpl) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.mapped {
		if err := unmap(path, mf); err != nil {
			fc.logger.Warn("failed to release mapped file", "path", path, "error", err)
			errs = append(errs, err)
		}
	}

	fc.mapped = make(map[string]*mappedFile)
	fc.fallback = make(map[string][]byte)

	fc.statsMu.Lock()
	stats := fc.stats
	fc.statsMu.Unlock()

	fc.logger.Debug("FileCache closed",
		"files_loaded", stats.FilesLoaded,
		"cache_hits", stats.CacheHits,
		"mmap_failures", stats.MmapFailures)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func unmap(path string, mf *mappedFile) error {
	if mf.data != nil {
		if err := mf.data.Unmap(); err != nil {
			mf.file.Close()
			return fmt.Errorf("unmap %q: %w", path, err)
		}
	}
	if err := mf.file.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}

func (fc *fileCacheImpl) record(update func(*FileCacheStats)) {
	fc.statsMu.Lock()
	update(&fc.stats)
	fc.statsMu.Unlock()
}
