// =============================================================================
// Stock Scan - Configuration Module
// =============================================================================
//
// This module loads and validates the application configuration. A single
// YAML file drives every component:
//   - storage : where the session snapshot lives (file or sqlite)
//   - table   : how inventory exports are parsed (delimiter, column labels)
//   - scan    : burst detection timings and the minimum code length
//   - camera  : the external decoder process
//   - export  : where export artifacts are written
//
// A missing configuration file is not an error: defaults are used so the tool
// works out of the box on a fresh machine.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultNamespace keys the persisted snapshot.
	DefaultNamespace = "stockscan_state_v1"

	BackendFile   = "file"
	BackendSQLite = "sqlite"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	Storage StorageSettings `yaml:"storage"`
	Table   TableSettings   `yaml:"table"`
	Scan    ScanSettings    `yaml:"scan"`
	Camera  CameraSettings  `yaml:"camera"`
	Export  ExportSettings  `yaml:"export"`

	// LogFile is the path to the application log file.
	// Empty means stderr for one-shot commands and no logging for the
	// interactive scan screen.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// StorageSettings selects the snapshot backend.
type StorageSettings struct {
	// Backend is "file" (JSON document) or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the JSON file or the SQLite database file.
	// Default: "./stockscan.json" or "./stockscan.db" depending on backend.
	Path string `yaml:"path"`

	// Namespace is the fixed key the snapshot is stored under.
	Namespace string `yaml:"namespace"`
}

// TableSettings contains settings for parsing inventory exports.
type TableSettings struct {
	// Delimiter separates fields. Aliases: "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// QuoteChar wraps fields containing the delimiter. A doubled quote
	// inside a quoted field is a literal quote.
	// Default: '"'
	QuoteChar string `yaml:"quote_char"`

	// IdentifierLabel is the header label of the scanned identifier column.
	// The first line containing this label (case-insensitive) is the header.
	IdentifierLabel string `yaml:"identifier_label"`

	// CategoryLabel is the header label of the filterable grouping column.
	CategoryLabel string `yaml:"category_label"`

	// StatusLabel is the header label of the status column.
	StatusLabel string `yaml:"status_label"`

	// AcceptedStatus is the status value (case-insensitive) that puts a
	// record in the expected set.
	AcceptedStatus string `yaml:"accepted_status"`

	// AllCategoriesLabel is the sentinel filter value meaning "no filter".
	AllCategoriesLabel string `yaml:"all_categories_label"`
}

// ScanSettings controls burst detection and reconciliation.
type ScanSettings struct {
	// MinCodeLength rejects shorter candidate codes without a state change.
	MinCodeLength int `yaml:"min_code_length"`

	// GapThreshold is the maximum pause between characters of one burst.
	GapThreshold time.Duration `yaml:"gap_threshold"`

	// CommitDelay is the inactivity period after which a burst is emitted.
	CommitDelay time.Duration `yaml:"commit_delay"`

	// TerminatorKey is the key name that ends a burst immediately.
	TerminatorKey string `yaml:"terminator_key"`
}

// CameraSettings configures the external decoder process.
type CameraSettings struct {
	Enabled bool `yaml:"enabled"`

	// Command is the argv of a process printing one decoded code per line,
	// for example ["zbarcam", "--raw", "--nodisplay"].
	Command []string `yaml:"command"`

	// FrameInterval bounds how long one decode attempt waits for a code.
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// ExportSettings controls export artifacts and table archival.
type ExportSettings struct {
	// OutputDir is where export files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// FileFormat names export files.
	// Placeholders:
	//   {session}   - The session ID
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	// Default: "{session}_{timestamp}"
	FileFormat string `yaml:"file_format"`

	// Format is "csv" or "xlsx".
	Format string `yaml:"format"`

	// ArchiveDir receives a copy of each loaded inventory export.
	// Empty disables archival.
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveRetention removes archived tables older than this on load.
	// Zero keeps archives forever.
	ArchiveRetention time.Duration `yaml:"archive_retention"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct. A missing file yields defaults.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var cfg MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Fall through with an empty config; defaults fill it in.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *MainConfig) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.Path == "" {
		if cfg.Storage.Backend == BackendSQLite {
			cfg.Storage.Path = "./stockscan.db"
		} else {
			cfg.Storage.Path = "./stockscan.json"
		}
	}
	if cfg.Storage.Namespace == "" {
		cfg.Storage.Namespace = DefaultNamespace
	}

	if cfg.Table.Delimiter == "" {
		cfg.Table.Delimiter = ","
	}
	if cfg.Table.QuoteChar == "" {
		cfg.Table.QuoteChar = "\""
	}
	if cfg.Table.IdentifierLabel == "" {
		cfg.Table.IdentifierLabel = "Stock #"
	}
	if cfg.Table.CategoryLabel == "" {
		cfg.Table.CategoryLabel = "Make"
	}
	if cfg.Table.StatusLabel == "" {
		cfg.Table.StatusLabel = "Condition"
	}
	if cfg.Table.AcceptedStatus == "" {
		cfg.Table.AcceptedStatus = "new"
	}
	if cfg.Table.AllCategoriesLabel == "" {
		cfg.Table.AllCategoriesLabel = "All"
	}

	if cfg.Scan.MinCodeLength == 0 {
		cfg.Scan.MinCodeLength = 3
	}
	if cfg.Scan.GapThreshold == 0 {
		cfg.Scan.GapThreshold = 100 * time.Millisecond
	}
	if cfg.Scan.CommitDelay == 0 {
		cfg.Scan.CommitDelay = 120 * time.Millisecond
	}
	if cfg.Scan.TerminatorKey == "" {
		cfg.Scan.TerminatorKey = "enter"
	}

	if cfg.Camera.FrameInterval == 0 {
		cfg.Camera.FrameInterval = 250 * time.Millisecond
	}
	if len(cfg.Camera.Command) == 0 {
		cfg.Camera.Command = []string{"zbarcam", "--raw", "--nodisplay"}
	}

	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "./output"
	}
	if cfg.Export.FileFormat == "" {
		cfg.Export.FileFormat = "{session}_{timestamp}"
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = FormatCSV
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration for values no component can work with.
func (c *MainConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend)
	}

	if _, err := c.Table.DelimiterRune(); err != nil {
		return err
	}
	if _, err := c.Table.QuoteRune(); err != nil {
		return err
	}

	labels := map[string]string{
		"table.identifier_label": c.Table.IdentifierLabel,
		"table.category_label":   c.Table.CategoryLabel,
		"table.status_label":     c.Table.StatusLabel,
	}
	for key, value := range labels {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be blank", key)
		}
	}

	if c.Scan.MinCodeLength < 1 {
		return fmt.Errorf("scan.min_code_length must be at least 1")
	}
	if c.Scan.GapThreshold < 0 || c.Scan.CommitDelay < 0 || c.Camera.FrameInterval < 0 || c.Export.ArchiveRetention < 0 {
		return fmt.Errorf("durations must be positive")
	}

	switch c.Export.Format {
	case FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("export.format must be %q or %q, got %q", FormatCSV, FormatXLSX, c.Export.Format)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// =============================================================================
// TABLE SETTINGS HELPERS
// =============================================================================

// DelimiterRune resolves the delimiter setting, honoring the common aliases.
func (t TableSettings) DelimiterRune() (rune, error) {
	switch t.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}
	r := []rune(t.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("table.delimiter must be a single character, got %q", t.Delimiter)
	}
	return r[0], nil
}

// QuoteRune resolves the quote character.
func (t TableSettings) QuoteRune() (rune, error) {
	r := []rune(t.QuoteChar)
	if len(r) != 1 {
		return 0, fmt.Errorf("table.quote_char must be a single character, got %q", t.QuoteChar)
	}
	return r[0], nil
}
