package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter [category]",
	Short: "Show or set the category filter",
	Long: `Without an argument, lists the categories of the loaded table and marks
the active one. With an argument, makes it the active filter. The category
must match exactly; "All" (or the configured label) removes the filter.
Scans are kept when the filter changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.session.HasTable() {
			return fmt.Errorf("no table loaded; run `stockscan load <file>` first")
		}

		if len(args) == 1 {
			if err := env.session.SetCategory(ctx, args[0]); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		active := env.session.Category()
		mark := func(value string) string {
			if value == active {
				return "*"
			}
			return " "
		}
		fmt.Fprintf(out, "%s %s\n", mark(""), env.cfg.Table.AllCategoriesLabel)
		for _, c := range env.session.Categories() {
			fmt.Fprintf(out, "%s %s\n", mark(c), c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
}
