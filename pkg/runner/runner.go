// Package runner applies the treeshake pass to files on disk: discovery,
// parallel processing, in-place rewriting and watching.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/treeshake"
	"github.com/gnana997/treeshake/pkg/util"
)

// ErrUnsupportedFile is returned for explicitly named files the parser
// cannot handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Runner owns the parser pools and file cache shared by all workers.
type Runner struct {
	cfg         Config
	transformer *treeshake.Transformer
	parsers     *parser.ParserManager
	cache       util.FileCache
	logger      *slog.Logger
}

// New creates a Runner. The Runner must be closed via Close().
func New(cfg Config, transformer *treeshake.Transformer, logger *slog.Logger) (*Runner, error) {
	if err := validatePatterns(cfg.Scan); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.DiscardLogger()
	}
	if transformer == nil {
		transformer = treeshake.NewTransformer(nil, logger)
	}

	cacheCfg := util.DefaultFileCacheConfig()
	cacheCfg.Logger = logger
	if cfg.MaxCachedFiles > 0 {
		cacheCfg.MaxFiles = cfg.MaxCachedFiles
	}

	return &Runner{
		cfg:         cfg,
		transformer: transformer,
		parsers:     parser.NewParserManager(logger),
		cache:       util.NewFileCache(cacheCfg),
		logger:      logger,
	}, nil
}

// Close releases the parser pools and unmaps cached files.
func (r *Runner) Close() error {
	cacheErr := r.cache.Close()
	parserErr := r.parsers.Close()
	return errors.Join(cacheErr, parserErr)
}

// ProcessFile runs the pass over one file and, in write mode, saves the
// result when it changed.
func (r *Runner) ProcessFile(path string) (FileResult, error) {
	if !parser.IsSupportedFile(path) {
		return FileResult{FilePath: path}, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	content, err := r.cache.Get(path)
	if err != nil {
		return FileResult{FilePath: path}, fmt.Errorf("failed to read file: %w", err)
	}
	// The result owns its output; the mapping is only needed while parsing.
	defer r.Invalidate(path)

	result, err := r.transformer.TransformFile(r.parsers, path, content)
	if err != nil {
		return FileResult{FilePath: path}, err
	}

	res := FileResult{
		FilePath:        path,
		Changed:         result.Changed,
		Removed:         result.Removed,
		HasSyntaxErrors: result.HasSyntaxErrors,
	}

	if result.HasSyntaxErrors {
		r.logger.Warn("File has syntax errors; only well-formed calls were rewritten", "file", path)
	}

	if result.Changed && r.cfg.Write {
		if err := r.writeFile(path, result.Output); err != nil {
			return res, err
		}
		res.Written = true
	}

	return res, nil
}

// writeFile replaces path's content, keeping its permissions. The cached
// mapping is dropped first so the file is not written while mapped.
func (r *Runner) writeFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := r.cache.Invalidate(path); err != nil {
		r.logger.Warn("Failed to invalidate cached file", "file", path, "error", err)
	}

	if err := os.WriteFile(path, content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Debug("File rewritten", "file", path, "size", len(content))
	return nil
}

// Invalidate drops any cached content for path.
func (r *Runner) Invalidate(path string) {
	if err := r.cache.Invalidate(path); err != nil {
		r.logger.Warn("Failed to invalidate cached file", "file", path, "error", err)
	}
}

// ResolveFiles expands paths into the sorted, de-duplicated list of files to
// process. Directories are walked with the scan configuration; files are
// taken as given.
func (r *Runner) ResolveFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			add(abs)
			continue
		}

		found, err := DiscoverFiles(abs, r.cfg.Scan)
		if err != nil {
			return nil, fmt.Errorf("file discovery failed: %w", err)
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Run processes every file under paths in parallel. When ctx is cancelled no
// further files are submitted; files already in flight finish and the
// partial summary is returned along with ctx's error.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	start := time.Now()

	files, err := r.ResolveFiles(paths)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	patterns := r.transformer.Patterns()
	r.logger.Info("Starting run",
		"files", len(files),
		"write", r.cfg.Write,
		"jsxs", patterns.Factories(),
		"matches", patterns.Matches())

	if len(files) == 0 {
		r.logger.Warn("No files found matching criteria")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	pool := NewWorkerPool(r.cfg.Workers, r, r.logger)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, file := range files {
			if ctx.Err() != nil {
				return
			}
			if err := pool.Submit(FileJob{FilePath: file, JobID: i}); err != nil {
				r.logger.Warn("Failed to submit job", "file", file, "error", err)
				return
			}
		}
		pool.FinishSubmitting()
	}()

	results, errs := pool.Results(), pool.Errors()
	done := 0
	for results != nil || errs != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			summary.add(res)
			done++
			r.progress(done, len(files), res.FilePath)

		case fe, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("Failed to process file", "file", fe.FilePath, "error", fe.Error)
			summary.Failures = append(summary.Failures, fe)
			done++
			r.progress(done, len(files), fe.FilePath)
		}
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].FilePath < summary.Files[j].FilePath
	})
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].FilePath < summary.Failures[j].FilePath
	})
	summary.Duration = time.Since(start)

	r.logger.Info("Run complete",
		"files", len(summary.Files),
		"changed", summary.FilesChanged,
		"removed", summary.PropertiesRemoved,
		"failed", len(summary.Failures),
		"duration_ms", summary.Duration.Milliseconds())

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) progress(done, total int, file string) {
	if r.cfg.Progress != nil {
		r.cfg.Progress(done, total, file)
	}
}
