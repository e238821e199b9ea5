package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/treeshake/pkg/util"
)

const buttonSource = `import { jsx as _jsx } from "react/jsx-runtime";
export const Button = () => _jsx("button", { type: "button", onClick: () => save() });
`

const buttonOutput = `import { jsx as _jsx } from "react/jsx-runtime";
export const Button = () => _jsx("button", { type: "button" });
`

const plainSource = `export const answer = 42;
`

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	r, err := New(cfg, nil, util.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunner_ReportMode(t *testing.T) {
	tmp := t.TempDir()
	button := writeFile(t, tmp, "src/button.jsx", buttonSource)
	writeFile(t, tmp, "src/answer.js", plainSource)

	r := newTestRunner(t, DefaultConfig())
	summary, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)

	require.Len(t, summary.Files, 2)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 1, summary.FilesChanged)
	assert.Equal(t, 1, summary.PropertiesRemoved)
	assert.True(t, summary.HasChanges())

	// Sorted by path: answer.js before button.jsx.
	assert.False(t, summary.Files[0].Changed)
	assert.Equal(t, button, summary.Files[1].FilePath)
	assert.True(t, summary.Files[1].Changed)
	assert.False(t, summary.Files[1].Written)
	require.Len(t, summary.Files[1].Removed, 1)
	assert.Equal(t, "onClick", summary.Files[1].Removed[0].Key)
	assert.Equal(t, "button", summary.Files[1].Removed[0].Tag)

	content, err := os.ReadFile(button)
	require.NoError(t, err)
	assert.Equal(t, buttonSource, string(content), "report mode must not write")
}

func TestRunner_WriteMode(t *testing.T) {
	tmp := t.TempDir()
	button := writeFile(t, tmp, "button.jsx", buttonSource)
	require.NoError(t, os.Chmod(button, 0o600))

	cfg := DefaultConfig()
	cfg.Write = true
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.True(t, summary.Files[0].Written)

	content, err := os.ReadFile(button)
	require.NoError(t, err)
	assert.Equal(t, buttonOutput, string(content))

	info, err := os.Stat(button)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second run over the rewritten file changes nothing.
	summary, err = r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.False(t, summary.HasChanges())
}

func TestRunner_ExplicitFilesDeduplicated(t *testing.T) {
	tmp := t.TempDir()
	button := writeFile(t, tmp, "button.jsx", buttonSource)

	r := newTestRunner(t, DefaultConfig())
	summary, err := r.Run(context.Background(), []string{button, tmp, button})
	require.NoError(t, err)
	assert.Len(t, summary.Files, 1)
}

func TestRunner_UnsupportedExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	css := writeFile(t, tmp, "styles.css", "a {}")

	r := newTestRunner(t, DefaultConfig())
	summary, err := r.Run(context.Background(), []string{css})
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.True(t, errors.Is(summary.Failures[0].Error, ErrUnsupportedFile))
	assert.Empty(t, summary.Files)
}

func TestRunner_MissingPath(t *testing.T) {
	r := newTestRunner(t, DefaultConfig())
	_, err := r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestRunner_EmptyDirectory(t *testing.T) {
	r := newTestRunner(t, DefaultConfig())
	summary, err := r.Run(context.Background(), []string{t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, summary.Files)
	assert.False(t, summary.HasChanges())
}

func TestRunner_InvalidScanConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Include = []string{"[bad"}
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestRunner_Progress(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"a.js", "b.js", "c.js"} {
		writeFile(t, tmp, name, plainSource)
	}

	var mu sync.Mutex
	var calls []int

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Progress = func(done, total int, file string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	}

	r := newTestRunner(t, cfg)
	_, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestRunner_CancelledContext(t *testing.T) {
	tmp := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, tmp, filepath.Join("src", string(rune('a'+i))+".jsx"), buttonSource)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, DefaultConfig())
	summary, err := r.Run(ctx, []string{tmp})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Less(t, len(summary.Files), 20)
}

func TestRunner_ManyFilesInParallel(t *testing.T) {
	tmp := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, tmp, filepath.Join("pkg", string(rune('a'+i%26)), string(rune('a'+i/26))+".jsx"), buttonSource)
	}

	cfg := DefaultConfig()
	cfg.Workers = 4
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)

	assert.Len(t, summary.Files, 50)
	assert.Equal(t, 50, summary.FilesChanged)
	assert.Equal(t, 50, summary.PropertiesRemoved)
}

func TestRunner_MoreFilesThanCacheLimit(t *testing.T) {
	tmp := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, tmp, fmt.Sprintf("src/file%d.js", i), buttonSource)
	}

	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.MaxCachedFiles = 2
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Len(t, summary.Files, 5)
	assert.Equal(t, 5, summary.FilesChanged)
	assert.Equal(t, 0, r.cache.Size())

	// A second report pass over the same files still fits.
	summary, err = r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 0, r.cache.Size())
}

func TestRunner_ProcessFileReleasesMapping(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "button.jsx", buttonSource)

	r := newTestRunner(t, DefaultConfig())
	res, err := r.ProcessFile(path)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 0, r.cache.Size())
	assert.Equal(t, int64(1), r.cache.Stats().Invalidations)
}
