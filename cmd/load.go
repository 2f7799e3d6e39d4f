// =============================================================================
// Stock Scan - Load Command
// =============================================================================
//
// COMMAND USAGE:
//   stockscan load <file|directory|-> [--force]
//
// Loading a table replaces the working set: scans and the category filter
// are cleared and a new session ID is issued. When a table is already
// loaded the command asks for confirmation unless --force is given.
//
// A directory loads its most recently modified table file. The table is
// parsed completely before anything is replaced, so a broken file leaves
// the previous session untouched. "-" reads delimited text from standard
// input.
//
// =============================================================================

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/stock-scan/internal/tableparser"
	"github.com/ginjaninja78/stock-scan/pkg/utils"
)

// forceLoad skips the confirmation prompt.
var forceLoad bool

var loadCmd = &cobra.Command{
	Use:   "load <file|directory|->",
	Short: "Load a stock export as the new working table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVarP(
		&forceLoad,
		"force",
		"f",
		false,
		"Replace the current table without asking",
	)
}

func runLoad(cmd *cobra.Command, target string) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if target == "-" {
		return loadStdin(cmd, env)
	}

	path, err := utils.ResolveTablePath(target)
	if err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}

	out := cmd.OutOrStdout()
	if env.session.HasTable() && !forceLoad {
		prompt := fmt.Sprintf("Loading %s replaces the current table and clears the filter", path)
		if scanned := env.session.Progress().Scanned; scanned > 0 {
			prompt += fmt.Sprintf(" and %d scanned item(s)", scanned)
		}
		prompt += ". Continue?"
		if !confirm(cmd.InOrStdin(), out, prompt) {
			fmt.Fprintln(out, "Load cancelled.")
			return nil
		}
	}

	if err := env.session.LoadFile(ctx, path, env.labels); err != nil {
		return err
	}

	fm := utils.NewFileManager(env.cfg.Export.OutputDir, env.cfg.Export.ArchiveDir)
	if archived, err := fm.ArchiveTable(path); err != nil {
		env.logger.Warn("failed to archive table", zap.String("file", path), zap.Error(err))
	} else if archived != "" {
		env.logger.Info("table archived", zap.String("archive", archived))
		if retention := env.cfg.Export.ArchiveRetention; retention > 0 {
			if removed, err := utils.CleanOldArchives(fm.ArchiveDir, retention); err != nil {
				env.logger.Warn("failed to clean archives", zap.Error(err))
			} else if removed > 0 {
				env.logger.Info("old archives removed", zap.Int("count", removed))
			}
		}
	}

	printLoaded(out, env, path)
	return nil
}

// loadStdin parses delimited text from standard input. Standard input
// carries the table, so there is nobody to confirm with: replacing a
// loaded table needs --force. Nothing is archived.
func loadStdin(cmd *cobra.Command, env *appEnv) error {
	if env.session.HasTable() && !forceLoad {
		return errors.New("a table is already loaded; use --force to replace it from standard input")
	}

	table, err := tableparser.ParseReader(cmd.InOrStdin(), env.labels)
	if err != nil {
		return err
	}
	if err := env.session.LoadTable(cmd.Context(), table); err != nil {
		return err
	}
	env.logger.Info("table loaded from standard input", zap.Int("records", table.Len()))

	printLoaded(cmd.OutOrStdout(), env, "standard input")
	return nil
}

func printLoaded(out io.Writer, env *appEnv, source string) {
	fmt.Fprintf(out, "Loaded %s\n", source)
	fmt.Fprintf(out, "Categories: %s\n", strings.Join(env.session.Categories(), ", "))
	fmt.Fprintf(out, "Expected:   %d\n", env.session.Progress().Expected)
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
