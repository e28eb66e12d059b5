package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/rebuttal/internal/check"
	"github.com/joescharf/rebuttal/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check for missing responses whenever either directory changes",
	Long: `Watch the reviews and responses directories and print the reconciliation
report each time a file is added, removed, or renamed. Judging never runs
in watch mode. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := checkOptionsFromConfig(cmd.Flags())
		if err != nil {
			return err
		}

		if err := reconcileOnce(opts.Options); err != nil {
			return err
		}
		ui.Info("Watching %s and %s", opts.Reviews, opts.Responses)

		return watch.Dirs(cmd.Context(), []string{opts.Reviews, opts.Responses}, watch.DefaultDebounce, func() {
			fmt.Fprintln(ui.Out)
			if err := reconcileOnce(opts.Options); err != nil {
				ui.Error("%v", err)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func reconcileOnce(opts check.Options) error {
	rep, err := check.Reconcile(opts)
	if err != nil {
		return err
	}
	return rep.WriteText(ui)
}
