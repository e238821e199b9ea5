package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/runner"
	"github.com/gnana997/treeshake/pkg/treeshake"
)

type runFlags struct {
	write bool
	check bool
	lang  string
	quiet bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Strip event handlers from files",
		Long: `Strip event-handler properties from JSX factory calls in the given files
and directories (default: current directory).

Without --write, files are left untouched and every property that would be
removed is reported. With "-" as the only path, source is read from stdin and
the result written to stdout.`,
		Example: `  treeshake run dist/
  treeshake run --write dist/
  treeshake run --check src/ --matches '^on[A-Z]' --matches '^data-track'
  cat app.js | treeshake run - --lang jsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				return a.runStdin(cmd, f)
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			return a.runPaths(cmd, args, f)
		},
	}

	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "rewrite changed files in place")
	cmd.Flags().BoolVar(&f.check, "check", false, "exit non-zero if any file would change")
	cmd.Flags().StringVar(&f.lang, "lang", "javascript", "language of stdin source: javascript, jsx, typescript, tsx")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "print only the summary")
	cmd.MarkFlagsMutuallyExclusive("write", "check")

	return cmd
}

func (a *app) newRunner(write bool) (*runner.Runner, error) {
	cfg := runner.DefaultConfig()
	cfg.Scan = a.settings.scan
	cfg.Workers = a.settings.workers
	cfg.Write = write
	return runner.New(cfg, treeshake.NewTransformer(a.patterns, a.logger), a.logger)
}

func (a *app) runPaths(cmd *cobra.Command, paths []string, f runFlags) error {
	r, err := a.newRunner(f.write)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	summary, err := r.Run(ctx, paths)
	if summary == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !f.quiet {
		printReport(out, summary, f.write)
	}
	printSummary(out, summary, f.write)

	if err != nil {
		return err
	}
	if len(summary.Failures) > 0 {
		return fmt.Errorf("%d file(s) failed", len(summary.Failures))
	}
	if f.check && summary.HasChanges() {
		return errChangesFound
	}
	return nil
}

func (a *app) runStdin(cmd *cobra.Command, f runFlags) error {
	if f.write {
		return fmt.Errorf("--write cannot be used with stdin")
	}
	lang, isTSX := parser.ParseLanguageString(f.lang)
	if lang == parser.LanguageUnknown {
		return fmt.Errorf("unsupported language: %s", f.lang)
	}

	source, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	pm := parser.NewParserManager(a.logger)
	defer pm.Close()

	result, err := treeshake.NewTransformer(a.patterns, a.logger).TransformSource(pm, source, lang, isTSX)
	if err != nil {
		return err
	}
	if result.HasSyntaxErrors {
		a.logger.Warn("Source has syntax errors", "file", "<stdin>")
	}

	if _, err := cmd.OutOrStdout().Write(result.Output); err != nil {
		return err
	}
	if f.check && result.Changed {
		return errChangesFound
	}
	return nil
}

// printReport writes one line per removed property:
//
//	dist/app.js:12:34: onClick (key-value) on <button>
func printReport(w io.Writer, summary *runner.Summary, write bool) {
	for _, file := range summary.Files {
		if !file.Changed {
			continue
		}
		path := displayPath(file.FilePath)
		for _, r := range file.Removed {
			fmt.Fprintf(w, "%s:%d:%d: %s (%s) on <%s>\n", path, r.Line, r.Column, r.Key, r.Kind, r.Tag)
		}
		if write && file.Written {
			fmt.Fprintf(w, "wrote %s\n", path)
		}
	}
	for _, fe := range summary.Failures {
		fmt.Fprintf(w, "%s: error: %v\n", displayPath(fe.FilePath), fe.Error)
	}
}

func printSummary(w io.Writer, summary *runner.Summary, write bool) {
	verb := "would change"
	if write {
		verb = "changed"
	}
	fmt.Fprintf(w, "%d file(s) processed, %d %s, %d propert(ies) removed",
		len(summary.Files), summary.FilesChanged, verb, summary.PropertiesRemoved)
	if n := len(summary.Failures); n > 0 {
		fmt.Fprintf(w, ", %d failed", n)
	}
	fmt.Fprintln(w)
}

// displayPath shortens path relative to the working directory when it lies
// below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// withSignals is shared by long-running commands.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
