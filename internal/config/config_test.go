package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, DefaultNamespace, cfg.Storage.Namespace)
	assert.Equal(t, "Stock #", cfg.Table.IdentifierLabel)
	assert.Equal(t, 3, cfg.Scan.MinCodeLength)
	assert.Equal(t, 100*time.Millisecond, cfg.Scan.GapThreshold)
	assert.Equal(t, 120*time.Millisecond, cfg.Scan.CommitDelay)
	assert.Equal(t, "enter", cfg.Scan.TerminatorKey)
}

func TestLoadMainConfigReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `storage:
  backend: sqlite
table:
  delimiter: pipe
  identifier_label: ID
  category_label: Category
  status_label: Status
scan:
  min_code_length: 2
  gap_threshold: 50ms
  commit_delay: 80ms
export:
  format: xlsx
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "./stockscan.db", cfg.Storage.Path)
	assert.Equal(t, "ID", cfg.Table.IdentifierLabel)
	assert.Equal(t, 2, cfg.Scan.MinCodeLength)
	assert.Equal(t, 50*time.Millisecond, cfg.Scan.GapThreshold)
	assert.Equal(t, 80*time.Millisecond, cfg.Scan.CommitDelay)
	assert.Equal(t, FormatXLSX, cfg.Export.Format)

	delim, err := cfg.Table.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, '|', delim)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MainConfig)
	}{
		{"unknown backend", func(c *MainConfig) { c.Storage.Backend = "mongo" }},
		{"long delimiter", func(c *MainConfig) { c.Table.Delimiter = "::" }},
		{"blank label", func(c *MainConfig) { c.Table.StatusLabel = "  " }},
		{"zero min length", func(c *MainConfig) { c.Scan.MinCodeLength = 0 }},
		{"negative delay", func(c *MainConfig) { c.Scan.CommitDelay = -time.Second }},
		{"unknown export format", func(c *MainConfig) { c.Export.Format = "pdf" }},
		{"unknown log level", func(c *MainConfig) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
