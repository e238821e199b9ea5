package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/treeshake"
)

type treeshakeResponse struct {
	Code    string              `json:"code"`
	Changed bool                `json:"changed"`
	Removed []treeshake.Removal `json:"removed"`
}

type analyzeResponse struct {
	Aliases   []treeshake.Alias   `json:"aliases"`
	Removable []treeshake.Removal `json:"removable"`
}

func (s *Server) handleTreeshakeEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, errResult := s.transform(req)
	if errResult != nil {
		return errResult, nil
	}

	return jsonResult(treeshakeResponse{
		Code:    string(result.Output),
		Changed: result.Changed,
		Removed: nonNil(result.Removed),
	})
}

func (s *Server) handleAnalyzeFactories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, errResult := s.transform(req)
	if errResult != nil {
		return errResult, nil
	}

	return jsonResult(analyzeResponse{
		Aliases:   nonNil(result.Aliases),
		Removable: nonNil(result.Removed),
	})
}

// transform runs the pass for a tool call. Bad input is reported as a tool
// error result rather than a protocol error.
func (s *Server) transform(req mcp.CallToolRequest) (*treeshake.Result, *mcp.CallToolResult) {
	code, err := req.RequireString("code")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	langName := req.GetString("language", "javascript")
	lang, isTSX := parser.ParseLanguageString(langName)
	if lang == parser.LanguageUnknown {
		return nil, mcp.NewToolResultError(fmt.Sprintf("unsupported language: %s", langName))
	}

	patterns, err := s.patterns.Get(s.requestOptions(req))
	if err != nil {
		if errors.Is(err, config.ErrInvalidPattern) {
			return nil, mcp.NewToolResultError(err.Error())
		}
		return nil, mcp.NewToolResultErrorFromErr("failed to compile options", err)
	}

	tr := treeshake.NewTransformer(patterns, s.logger)
	result, err := tr.TransformSource(s.parsers, []byte(code), lang, isTSX)
	if err != nil {
		return nil, mcp.NewToolResultErrorFromErr("failed to parse code", err)
	}
	return result, nil
}

// requestOptions overlays the jsxs and matches arguments on the server
// defaults. An omitted or null argument keeps the default; an empty array
// is an empty list.
func (s *Server) requestOptions(req mcp.CallToolRequest) config.Options {
	args := req.GetArguments()

	var override config.Options
	if v, ok := args["jsxs"]; ok && v != nil {
		override.Jsxs = req.GetStringSlice("jsxs", []string{})
	}
	if v, ok := args["matches"]; ok && v != nil {
		override.Matches = req.GetStringSlice("matches", []string{})
	}
	return s.defaults.Merge(override)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to encode result", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
