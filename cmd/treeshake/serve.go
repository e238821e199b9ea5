package main

import (
	"github.com/spf13/cobra"

	"github.com/gnana997/treeshake/pkg/mcp"
	"github.com/gnana997/treeshake/pkg/mcplog"
	"github.com/gnana997/treeshake/pkg/parser"
)

func newServeCmd(a *app) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start an MCP server on stdin/stdout exposing the treeshake_events and
analyze_factories tools. The resolved --jsxs/--matches options become the
defaults for calls that omit them.

With --log-file, every tool call is appended as a JSON line (source code is
recorded by length only).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var callLog *mcplog.Logger
			if logFile != "" {
				l, err := mcplog.NewLogger(logFile)
				if err != nil {
					return err
				}
				defer l.Close()
				callLog = l
			}

			pm := parser.NewParserManager(a.logger)
			defer pm.Close()

			srv, err := mcp.NewServer(pm, a.settings.options, callLog, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("Serving MCP over stdio",
				"jsxs", a.patterns.Factories(),
				"matches", a.patterns.Matches())
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "append tool calls as JSONL to this file")
	return cmd
}
