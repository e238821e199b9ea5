// Package mcp exposes the treeshake pass as Model Context Protocol tools.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/mcplog"
	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/util"
)

const serverVersion = "0.1.0-dev"

// Server implements the MCP server for treeshake.
type Server struct {
	mcpServer *server.MCPServer
	parsers   *parser.ParserManager
	patterns  *config.Cache
	defaults  config.Options
	callLog   *mcplog.Logger // may be nil
	logger    *slog.Logger
}

// NewServer creates a new MCP server. defaults apply to tool calls that omit
// jsxs or matches. callLog may be nil to disable the JSONL call log.
func NewServer(parsers *parser.ParserManager, defaults config.Options, callLog *mcplog.Logger, logger *slog.Logger) (*Server, error) {
	cache, err := config.NewCache(config.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.DiscardLogger()
	}

	s := &Server{
		parsers:  parsers,
		patterns: cache,
		defaults: config.DefaultOptions().Merge(defaults),
		callLog:  callLog,
		logger:   logger,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if callLog != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}

	s.mcpServer = server.NewMCPServer("treeshake", serverVersion, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: treeshakeEventsTool(), Handler: s.handleTreeshakeEvents},
		server.ServerTool{Tool: analyzeFactoriesTool(), Handler: s.handleAnalyzeFactories},
	)

	return s, nil
}

// MCPServer returns the underlying mcp-go server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
