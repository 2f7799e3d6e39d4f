// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how verbosely the logger writes.
type Options struct {
	Level   string
	File    string
	Verbose bool

	// Quiet drops output entirely when no file is configured. The
	// interactive scan screen owns the terminal, so it sets this.
	Quiet bool
}

// New builds a production zap logger from the options.
func New(opts Options) (*zap.Logger, error) {
	if opts.File == "" && opts.Quiet {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}
