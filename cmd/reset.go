// =============================================================================
// Stock Scan - Reset Command
// =============================================================================
//
// COMMAND USAGE:
//   stockscan reset [--all] [--force]
//
// Without --all only the scans and the last scan are cleared; the table and
// the category filter stay. --all removes the stored snapshot entirely, so
// the next command starts with no table.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// forceReset skips the confirmation prompt.
	forceReset bool

	// resetAll drops the whole snapshot instead of just the scans.
	resetAll bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all scans, keeping the table and the filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()

		if resetAll {
			if env.session.HasTable() && !forceReset {
				if !confirm(cmd.InOrStdin(), out, "Remove the loaded table and all scans?") {
					fmt.Fprintln(out, "Reset cancelled.")
					return nil
				}
			}
			if err := env.store.Clear(ctx); err != nil {
				return fmt.Errorf("clear snapshot: %w", err)
			}
			env.logger.Info("snapshot removed",
				zap.String("path", env.store.Path()),
				zap.String("namespace", env.cfg.Storage.Namespace))
			fmt.Fprintf(out, "Session removed from %s.\n", env.store.Path())
			return nil
		}

		scanned := env.session.Progress().Scanned
		if scanned > 0 && !forceReset {
			if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Clear %d scanned item(s)?", scanned)) {
				fmt.Fprintln(out, "Reset cancelled.")
				return nil
			}
		}

		if err := env.session.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Scans cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(
		&forceReset,
		"force",
		"f",
		false,
		"Clear without asking",
	)

	resetCmd.Flags().BoolVar(
		&resetAll,
		"all",
		false,
		"Also forget the loaded table and filter",
	)
}
