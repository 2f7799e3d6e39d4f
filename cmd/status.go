package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listRemaining prints the identifiers still to be scanned.
var listRemaining bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		if !env.session.HasTable() {
			fmt.Fprintln(out, "No table loaded.")
			return nil
		}

		p := env.session.Progress()
		category := p.Category
		if category == "" {
			category = env.cfg.Table.AllCategoriesLabel
		}
		fmt.Fprintf(out, "Session:   %s\n", env.session.ID())
		fmt.Fprintf(out, "Category:  %s\n", category)
		fmt.Fprintf(out, "Expected:  %d\n", p.Expected)
		fmt.Fprintf(out, "Scanned:   %d\n", p.Scanned)
		fmt.Fprintf(out, "Remaining: %d\n", p.Remaining)
		if p.LastScan != "" {
			fmt.Fprintf(out, "Last scan: %s\n", p.LastScan)
		}

		if listRemaining {
			for _, id := range env.session.RemainingIdentifiers() {
				fmt.Fprintf(out, "  %s\n", id)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(
		&listRemaining,
		"remaining",
		false,
		"List the identifiers that have not been scanned yet",
	)
}
