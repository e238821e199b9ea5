package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/mcplog"
	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/util"
)

// --- helpers ---

const buttonCode = `import { jsx as _jsx } from "react/jsx-runtime";
_jsx("button", { type: "button", onClick: () => save() });`

func testServer(t *testing.T, defaults config.Options, callLog *mcplog.Logger) *Server {
	t.Helper()
	pm := parser.NewParserManager(util.DiscardLogger())
	t.Cleanup(func() { pm.Close() })

	s, err := NewServer(pm, defaults, callLog, nil)
	require.NoError(t, err)
	return s
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	switch req.Params.Name {
	case toolTreeshakeEvents:
		handler = s.handleTreeshakeEvents
	case toolAnalyzeFactories:
		handler = s.handleAnalyzeFactories
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	if s.callLog != nil {
		handler = s.loggingMiddleware()(handler)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

// --- treeshake_events ---

func TestHandleTreeshakeEvents_Defaults(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{"code": buttonCode}))
	assert.False(t, result.IsError)

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, `import { jsx as _jsx } from "react/jsx-runtime";
_jsx("button", { type: "button" });`, resp.Code)
	require.Len(t, resp.Removed, 1)
	assert.Equal(t, "onClick", resp.Removed[0].Key)
	assert.Equal(t, "button", resp.Removed[0].Tag)
	assert.Equal(t, 2, resp.Removed[0].Line)
}

func TestHandleTreeshakeEvents_Unchanged(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	code := `export const x = 1;`
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{"code": code}))

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, code, resp["code"])
	assert.Equal(t, false, resp["changed"])
	assert.Equal(t, []any{}, resp["removed"])
}

func TestHandleTreeshakeEvents_CustomOptions(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	code := `import { h } from "preact";
h("div", { onClick: f, trackId: 1 });`

	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":    code,
		"jsxs":    []any{"h"},
		"matches": []any{"^track"},
	}))
	assert.False(t, result.IsError)

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, `import { h } from "preact";
h("div", { onClick: f });`, resp.Code)
}

func TestHandleTreeshakeEvents_NullOptionsUseDefaults(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":    buttonCode,
		"jsxs":    nil,
		"matches": nil,
	}))

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.True(t, resp.Changed)
}

func TestHandleTreeshakeEvents_EmptyMatchesRemovesNothing(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":    buttonCode,
		"matches": []any{},
	}))

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.False(t, resp.Changed)
	assert.Equal(t, buttonCode, resp.Code)
}

func TestHandleTreeshakeEvents_ServerDefaults(t *testing.T) {
	s := testServer(t, config.Options{Matches: []string{"^type$"}}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{"code": buttonCode}))

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	require.Len(t, resp.Removed, 1)
	assert.Equal(t, "type", resp.Removed[0].Key)
}

func TestHandleTreeshakeEvents_InvalidPattern(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":    buttonCode,
		"matches": []any{"("},
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "invalid match pattern")
}

func TestHandleTreeshakeEvents_MissingCode(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, nil))
	assert.True(t, result.IsError)
}

func TestHandleTreeshakeEvents_UnsupportedLanguage(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":     buttonCode,
		"language": "python",
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "unsupported language")
}

func TestHandleTreeshakeEvents_TSX(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	code := `import { jsx as _jsx } from "react/jsx-runtime";
const a = <b onClick={f} />;
_jsx("i", { onClick: (e: Event) => f(e) });`

	result := callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{
		"code":     code,
		"language": "tsx",
	}))

	var resp treeshakeResponse
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.True(t, strings.HasSuffix(resp.Code, `_jsx("i", {});`))
}

// --- analyze_factories ---

func TestHandleAnalyzeFactories(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolAnalyzeFactories, map[string]any{"code": buttonCode}))
	assert.False(t, result.IsError)

	text := resultJSON(t, result)
	assert.NotContains(t, text, `"code"`)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.Len(t, resp.Aliases, 1)
	assert.Equal(t, "jsx", resp.Aliases[0].Imported)
	assert.Equal(t, "_jsx", resp.Aliases[0].Local)
	require.Len(t, resp.Removable, 1)
	assert.Equal(t, "onClick", resp.Removable[0].Key)
}

func TestHandleAnalyzeFactories_NoFactories(t *testing.T) {
	s := testServer(t, config.Options{}, nil)
	result := callTool(t, s, makeRequest(toolAnalyzeFactories, map[string]any{"code": `import React from "react";`}))

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, []any{}, resp["aliases"])
	assert.Equal(t, []any{}, resp["removable"])
}

// --- call log ---

func TestLoggingMiddleware_NeverLogsCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	callLog, err := mcplog.NewLogger(path)
	require.NoError(t, err)

	s := testServer(t, config.Options{}, callLog)
	callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{"code": buttonCode, "language": "js"}))
	callTool(t, s, makeRequest(toolTreeshakeEvents, map[string]any{"code": buttonCode, "matches": []any{"("}}))
	require.NoError(t, callLog.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []mcplog.LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		assert.NotContains(t, line, "onClick")

		var e mcplog.LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, toolTreeshakeEvents, entries[0].Tool)
	assert.Equal(t, float64(len(buttonCode)), entries[0].Params["code_len"])
	assert.Empty(t, entries[0].Error)
	assert.NotEmpty(t, entries[1].Error)
}

func TestNewServer_InProcessClient(t *testing.T) {
	s := testServer(t, config.Options{}, nil)

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "treeshake-test", Version: "1.0.0"}
	info, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "treeshake", info.ServerInfo.Name)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolTreeshakeEvents, toolAnalyzeFactories}, names)

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = toolTreeshakeEvents
	callReq.Params.Arguments = map[string]any{"code": buttonCode}
	result, err := c.CallTool(ctx, callReq)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), `"changed":true`)
}
