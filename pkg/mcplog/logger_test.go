package mcplog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestSanitizeParams(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		wantKeys map[string]bool // keys expected in output
		wantSkip map[string]bool // keys that should NOT appear
	}{
		{
			name:     "nil map returns empty",
			input:    nil,
			wantKeys: map[string]bool{},
		},
		{
			name:     "short string passes through",
			input:    map[string]any{"language": "tsx"},
			wantKeys: map[string]bool{"language": true},
		},
		{
			name:     "code always replaced with _len key",
			input:    map[string]any{"code": `jsx("a", {})`},
			wantKeys: map[string]bool{"code_len": true},
			wantSkip: map[string]bool{"code": true},
		},
		{
			name: "long string replaced with _len key",
			input: map[string]any{
				"note": string(make([]byte, 200)), // 200 bytes > 64
			},
			wantKeys: map[string]bool{"note_len": true},
			wantSkip: map[string]bool{"note": true},
		},
		{
			name: "option lists and nil pass through",
			input: map[string]any{
				"jsxs":    []any{"h"},
				"matches": nil,
			},
			wantKeys: map[string]bool{"jsxs": true, "matches": true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := SanitizeParams(tc.input)
			for k := range tc.wantKeys {
				if _, ok := out[k]; !ok {
					t.Errorf("expected key %q in output", k)
				}
			}
			for k := range tc.wantSkip {
				if _, ok := out[k]; ok {
					t.Errorf("unexpected key %q in output", k)
				}
			}
		})
	}
}

func TestResponseBytes(t *testing.T) {
	t.Run("nil returns zero", func(t *testing.T) {
		if got := ResponseBytes(nil); got != 0 {
			t.Errorf("got %d, want 0", got)
		}
	})

	t.Run("counts serialized content", func(t *testing.T) {
		small := ResponseBytes(mcp.NewToolResultText(`{"code":""}`))
		large := ResponseBytes(mcp.NewToolResultText(`{"code":"jsx(\"div\", {})"}`))
		if small == 0 || large <= small {
			t.Errorf("got small=%d large=%d", small, large)
		}
	})
}

func TestLoggerWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	entries := []LogEntry{
		{Time: time.Now().UTC(), Tool: "treeshake_events", Params: map[string]any{"code_len": 1200}, DurationMs: 5, ResponseBytes: 1300, TokensEst: 325},
		{Time: time.Now().UTC(), Tool: "analyze_factories", Params: map[string]any{"code_len": 80, "language": "tsx"}, DurationMs: 2, ResponseBytes: 120, TokensEst: 30},
		{Time: time.Now().UTC(), Tool: "treeshake_events", Params: map[string]any{"code_len": 40, "matches": []any{"^on"}}, DurationMs: 1, ResponseBytes: 50, TokensEst: 12},
	}

	for _, e := range entries {
		if err := logger.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Re-open and read back.
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("unmarshal line %q: %v", line, err)
		}
		got = append(got, e)
	}

	if len(got) != len(entries) {
		t.Fatalf("got %d lines, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Tool != e.Tool {
			t.Errorf("line %d: tool=%q, want %q", i, got[i].Tool, e.Tool)
		}
		if got[i].DurationMs != e.DurationMs {
			t.Errorf("line %d: duration_ms=%d, want %d", i, got[i].DurationMs, e.DurationMs)
		}
	}
}

func TestLoggerConcurrency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concurrent.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	const goroutines = 50
	const writesEach = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < writesEach; j++ {
				_ = logger.Write(LogEntry{
					Time: time.Now().UTC(),
					Tool: "treeshake_events",
				})
			}
		}(i)
	}
	wg.Wait()

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("torn write detected at line %d: %v", count+1, err)
		}
		count++
	}

	if count != goroutines*writesEach {
		t.Errorf("got %d lines, want %d", count, goroutines*writesEach)
	}
}

func TestNewLoggerCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "mcp.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestNewLoggerEmptyPath(t *testing.T) {
	logger, err := NewLogger("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger != nil {
		t.Errorf("expected nil logger for empty path")
	}
}

func TestNewEntry(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	defer func(orig func() time.Time) { Now = orig }(Now)
	Now = func() time.Time { return start.Add(25 * time.Millisecond) }

	args := map[string]any{"code": `jsx("a", { onClick: f })`, "language": "js"}
	result := mcp.NewToolResultText(`{"changed":true}`)

	entry := NewEntry("treeshake_events", args, start, result, nil)
	if entry.Tool != "treeshake_events" || !entry.Time.Equal(start) {
		t.Errorf("got tool=%q ts=%v", entry.Tool, entry.Time)
	}
	if entry.DurationMs != 25 {
		t.Errorf("duration_ms=%d, want 25", entry.DurationMs)
	}
	if entry.ResponseBytes != ResponseBytes(result) || entry.TokensEst != entry.ResponseBytes/4 {
		t.Errorf("response_bytes=%d tokens_est=%d", entry.ResponseBytes, entry.TokensEst)
	}
	if _, ok := entry.Params["code"]; ok {
		t.Error("code must not be logged")
	}
	if entry.Error != "" {
		t.Errorf("unexpected error %q", entry.Error)
	}

	failed := NewEntry("treeshake_events", nil, start, mcp.NewToolResultError("bad"), nil)
	if failed.Error != "tool error" {
		t.Errorf("error=%q, want tool error", failed.Error)
	}

	broken := NewEntry("treeshake_events", nil, start, nil, errors.New("boom"))
	if broken.Error != "boom" || broken.ResponseBytes != 0 {
		t.Errorf("got error=%q response_bytes=%d", broken.Error, broken.ResponseBytes)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var logger *Logger
	if err := logger.Write(LogEntry{Tool: "treeshake_events"}); err != nil {
		t.Errorf("Write: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
