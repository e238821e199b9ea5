package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/treeshake/pkg/runner"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rewrite files as they change",
		Long: `Run the pass once over dir (default: current directory) in write mode, then
watch it and rewrite every matching file that is created or modified. Stops on
interrupt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			r, err := a.newRunner(true)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, stop := withSignals(cmd.Context())
			defer stop()

			summary, err := r.Run(ctx, []string{abs})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReport(out, summary, true)
			printSummary(out, summary, true)

			opts := runner.DefaultWatchOptions()
			if debounceMs > 0 {
				opts.DebounceMs = debounceMs
			}
			opts.OnResult = func(res runner.FileResult, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s: error: %v\n", displayPath(res.FilePath), err)
					return
				}
				if res.Written {
					fmt.Fprintf(out, "wrote %s (%d removed)\n", displayPath(res.FilePath), len(res.Removed))
				}
			}

			w, err := runner.NewWatcher(r, opts, a.logger)
			if err != nil {
				return err
			}
			if err := w.Start(abs); err != nil {
				return err
			}
			fmt.Fprintf(out, "watching %s\n", displayPath(abs))

			<-ctx.Done()
			return w.Stop()
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 0, "debounce delay in milliseconds (default 200)")
	return cmd
}
