// Command treeshake strips event-handler properties from compiled JSX.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/util"
)

// Version information (set by ldflags during build).
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

// errChangesFound makes `run --check` exit non-zero.
var errChangesFound = errors.New("files would change")

// globalFlags are shared by every command.
type globalFlags struct {
	configPath  string
	jsxs        []string
	matches     []string
	optionsJSON string
	include     []string
	exclude     []string
	workers     int
	logLevel    string
	logFormat   string
}

// app carries the state resolved before a command runs.
type app struct {
	flags    globalFlags
	settings *settings
	patterns *config.Patterns
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "treeshake",
		Short: "Strip event handlers from compiled JSX",
		Long: `treeshake removes event-handler properties (onClick, onInput, ...) from
intrinsic-element JSX factory calls such as _jsx("div", { onClick }), so that
server-rendered output does not ship handler code.

Commands:
  run        Rewrite or check files
  watch      Rewrite files as they change
  serve      Start the MCP server over stdio
  setup      Register the MCP server with editor clients
  version    Print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", defaultConfigPath, "project config file")
	pf.StringSliceVar(&a.flags.jsxs, "jsxs", nil, "factory function names (default jsx,jsxs,jsxDEV)")
	pf.StringArrayVar(&a.flags.matches, "matches", nil, "regular expression selecting keys to remove; repeatable (default ^on[A-Z])")
	pf.StringVar(&a.flags.optionsJSON, "options", "", `JSON options payload, e.g. {"jsxs":["h"],"matches":["^on"]}`)
	pf.StringSliceVar(&a.flags.include, "include", nil, "glob patterns of files to process")
	pf.StringSliceVar(&a.flags.exclude, "exclude", nil, "glob patterns to skip")
	pf.IntVar(&a.flags.workers, "workers", 0, "worker count (0 = auto)")
	pf.StringVar(&a.flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "text", "log format: text, json")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSetupCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// setup resolves settings, builds the logger and compiles the patterns.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := resolveSettings(&a.flags, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	a.settings = s

	a.logger = util.NewLogger(util.LoggerConfig{
		Level:  util.ParseLogLevel(s.logLevel),
		Format: util.ParseLogFormat(s.logFormat),
		Output: cmd.ErrOrStderr(),
	})
	for _, w := range s.warnings {
		a.logger.Warn(w)
	}

	patterns, err := config.Compile(s.options)
	if err != nil {
		return err
	}
	a.patterns = patterns
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
