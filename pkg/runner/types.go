package runner

import (
	"time"

	"github.com/gnana997/treeshake/pkg/treeshake"
)

// ScanConfig selects files below a directory.
type ScanConfig struct {
	// Include glob patterns for file matching, relative to the scanned root.
	Include []string
	// Exclude glob patterns; a matching directory is skipped entirely.
	Exclude []string
}

// DefaultScanConfig matches every supported source file outside dependency
// and build output directories.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Include: []string{
			"**/*.js",
			"**/*.jsx",
			"**/*.mjs",
			"**/*.cjs",
			"**/*.ts",
			"**/*.tsx",
			"**/*.mts",
			"**/*.cts",
		},
		Exclude: []string{
			"**/node_modules",
			"**/.git",
			"dist",
			"build",
			".next",
			"coverage",
		},
	}
}

// Config configures a Runner.
type Config struct {
	Scan ScanConfig

	// Workers is the worker pool size (0 = auto-detect).
	Workers int

	// Write rewrites changed files in place. Otherwise files are only
	// analyzed.
	Write bool

	// MaxCachedFiles bounds how many files are mapped at once (0 = default).
	// Each file is released once processed, so only in-flight files count.
	MaxCachedFiles int

	// Progress is called after each file; optional.
	Progress ProgressCallback
}

// DefaultConfig returns a report-only configuration.
func DefaultConfig() Config {
	return Config{Scan: DefaultScanConfig()}
}

// ProgressCallback reports progress: files done so far, total and the file
// just finished.
type ProgressCallback func(done, total int, file string)

// FileJob represents a file to be processed by the worker pool.
type FileJob struct {
	FilePath string
	JobID    int
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	FilePath string
	JobID    int

	// Changed is true when the pass removed at least one property.
	Changed bool
	// Written is true when the rewritten source was saved.
	Written bool

	Removed         []treeshake.Removal
	HasSyntaxErrors bool
}

// FileError represents an error that occurred while processing a file.
type FileError struct {
	FilePath string
	Error    error
}

// Summary aggregates a run.
type Summary struct {
	// Files is sorted by path.
	Files []FileResult
	// Failures is sorted by path.
	Failures []FileError

	FilesChanged      int
	PropertiesRemoved int
	Duration          time.Duration
}

// HasChanges reports whether any file was (or would be) changed.
func (s *Summary) HasChanges() bool {
	return s.FilesChanged > 0
}

func (s *Summary) add(res FileResult) {
	s.Files = append(s.Files, res)
	if res.Changed {
		s.FilesChanged++
	}
	s.PropertiesRemoved += len(res.Removed)
}

// WorkerPoolStats contains statistics about the worker pool.
type WorkerPoolStats struct {
	NumWorkers    int
	JobsSubmitted int64
	JobsProcessed int64
	JobsFailed    int64
	QueueLength   int // Current jobs in queue
}

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// DebounceMs groups rapid events for one file. Default: 200.
	DebounceMs int

	// OnResult is called after each re-run; optional.
	OnResult func(FileResult, error)
}

// DefaultWatchOptions returns the default watch options.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{DebounceMs: 200}
}

// WatcherStats contains file watcher statistics.
type WatcherStats struct {
	PendingRuns int
	IsRunning   bool
}
