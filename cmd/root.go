// =============================================================================
// Stock Scan - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (stockscan)
//   ├── loadCmd    (stockscan load <file|dir>)
//   ├── filterCmd  (stockscan filter [category])
//   ├── scanCmd    (stockscan scan)
//   ├── submitCmd  (stockscan submit [code...])
//   ├── statusCmd  (stockscan status)
//   ├── exportCmd  (stockscan export)
//   ├── resetCmd   (stockscan reset)
//   └── versionCmd (stockscan version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration file
//   3. Setting up logging
//   4. Opening the snapshot store and restoring the session
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/logging"
	"github.com/ginjaninja78/stock-scan/internal/session"
	"github.com/ginjaninja78/stock-scan/internal/store"
	"github.com/ginjaninja78/stock-scan/internal/tableparser"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stockscan",
	Short: "Stock Scan - verify physical inventory against a stock export",
	Long: `Stock Scan loads a stock export, narrows it to the items that must be on
the lot, and confirms each one as it is scanned with a keyboard-wedge barcode
scanner, a camera decoder or manual entry.

Key Features:
  - Header row found anywhere in the export (report banners are skipped)
  - Category filter with an "All" entry
  - Duplicate and not-expected scans reported immediately
  - Progress survives restarts (JSON file or SQLite snapshot)
  - Export of every scan with its in-expected-set flag

Example Usage:
  stockscan load ./exports/inventory.csv   # Load a new table
  stockscan filter Ford                    # Only count Ford stock
  stockscan scan                           # Open the scan screen
  stockscan export --format xlsx           # Write the scanned list`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (defaults apply when it is missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// APPLICATION ENVIRONMENT
// =============================================================================

// appEnv is everything a command needs once the configuration is loaded.
type appEnv struct {
	cfg     *config.MainConfig
	logger  *zap.Logger
	labels  tableparser.Options
	store   store.Durable
	session *session.Session
}

// openEnv loads the configuration, builds the logger and restores the
// session. Interactive commands log only to the configured file so the
// terminal stays clean.
func openEnv(ctx context.Context, interactive bool) (*appEnv, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: verbose,
		Quiet:   interactive,
	})
	if err != nil {
		return nil, err
	}

	labels, err := tableparser.OptionsFromConfig(cfg.Table)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		zap.String("config", cfgFile),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))

	sess := session.Open(ctx, st, session.Options{
		Labels:         labels,
		AcceptedStatus: cfg.Table.AcceptedStatus,
		AllLabel:       cfg.Table.AllCategoriesLabel,
		MinCodeLength:  cfg.Scan.MinCodeLength,
		Logger:         logger,
	})

	return &appEnv{cfg: cfg, logger: logger, labels: labels, store: st, session: sess}, nil
}

// Close flushes the logger and closes the store.
func (e *appEnv) Close() {
	if c, ok := e.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			e.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}
