// Package mcplog keeps a JSONL record of MCP tool calls, one line per call.
// Module source sent to the tools is never written; only its length is.
package mcplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// LogEntry is one line of the call log.
type LogEntry struct {
	Time          time.Time      `json:"ts"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	TokensEst     int            `json:"tokens_est"`
	Error         string         `json:"error,omitempty"`
}

// Now is the clock used to time calls. Tests replace it.
var Now = time.Now

// NewEntry describes a finished call that began at start. A tool error
// result is recorded as an error even when callErr is nil.
func NewEntry(tool string, args map[string]any, start time.Time, result *mcp.CallToolResult, callErr error) LogEntry {
	size := ResponseBytes(result)
	entry := LogEntry{
		Time:          start.UTC(),
		Tool:          tool,
		Params:        SanitizeParams(args),
		DurationMs:    Now().Sub(start).Milliseconds(),
		ResponseBytes: size,
		TokensEst:     size / 4,
	}
	switch {
	case callErr != nil:
		entry.Error = callErr.Error()
	case result != nil && result.IsError:
		entry.Error = "tool error"
	}
	return entry
}

// Logger appends entries to a file. A nil *Logger discards everything.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens path for appending, creating it and its directory as
// needed. An empty path disables the log and yields a nil Logger.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mcplog: create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mcplog: open log file: %w", err)
	}
	return &Logger{file: file}, nil
}

// Write appends entry as a single line.
func (l *Logger) Write(entry LogEntry) error {
	if l == nil {
		return nil
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("mcplog: encode entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(line)
	return err
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// maxLoggedString is the longest string argument logged verbatim.
const maxLoggedString = 64

// SanitizeParams copies args for logging. The "code" argument, and any
// string longer than maxLoggedString, is replaced by a "<key>_len" entry
// holding its length. Option lists such as jsxs and matches are kept.
func SanitizeParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		if s, ok := value.(string); ok && (key == "code" || len(s) > maxLoggedString) {
			out[key+"_len"] = len(s)
			continue
		}
		out[key] = value
	}
	return out
}

// ResponseBytes is the JSON size of a result's content, or 0 if there is
// none.
func ResponseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}
