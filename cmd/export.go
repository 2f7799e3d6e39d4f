// =============================================================================
// Stock Scan - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   stockscan export [--format csv|xlsx] [--output path]
//
// Writes one row per scanned code, in scan order, with the identifier and
// category labels of the loaded table and an in-expected-set column that
// reflects the filter active right now.
//
// Without --output the file goes to export.output_dir, named after
// export.file_format (placeholders {session}, {uuid}, {timestamp}, {date},
// {time}). "--output -" writes to standard output.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/export"
	"github.com/ginjaninja78/stock-scan/pkg/utils"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the scanned list to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		format := env.cfg.Export.Format
		if cmd.Flags().Changed("format") {
			format = strings.ToLower(exportFormat)
		}
		if format != config.FormatCSV && format != config.FormatXLSX {
			return fmt.Errorf("unknown export format %q", format)
		}

		opts := export.DefaultOptions()
		opts.Delimiter = env.labels.Delimiter
		opts.Quote = env.labels.Quote

		sheet := env.session.ExportSheet()
		write := func(w io.Writer) error {
			if format == config.FormatXLSX {
				return export.WriteXLSX(w, sheet, opts)
			}
			return export.WriteCSV(w, sheet, opts)
		}

		if exportOutput == "-" {
			return write(cmd.OutOrStdout())
		}

		path := exportOutput
		if path == "" {
			fm := utils.NewFileManager(env.cfg.Export.OutputDir, "")
			if err := fm.EnsureDirectories(); err != nil {
				return err
			}
			name := utils.GenerateOutputFileName(env.cfg.Export.FileFormat, "."+format, map[string]string{
				"session": sessionLabel(env.session.ID()),
			})
			path = filepath.Join(fm.OutputDir, name)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := write(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close export file: %w", err)
		}

		env.logger.Info("export written",
			zap.String("file", path),
			zap.Int("rows", len(sheet.Rows)),
			zap.String("format", format))
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d scan(s) to %s\n", len(sheet.Rows), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(
		&exportFormat,
		"format",
		config.FormatCSV,
		"Export format: csv or xlsx (overrides export.format)",
	)

	exportCmd.Flags().StringVarP(
		&exportOutput,
		"output",
		"o",
		"",
		`Output file path, or "-" for standard output`,
	)
}

// sessionLabel shortens a session ID for file names.
func sessionLabel(id string) string {
	if id == "" {
		return "stockscan"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
