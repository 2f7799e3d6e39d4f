// =============================================================================
// Stock Scan - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the CLI, including:
//   - Table discovery (picking the newest export in a directory)
//   - Table archival (keeping a copy of every loaded export)
//   - Export file naming
//   - Directory management
//
// ARCHIVAL STRATEGY:
//   - Loaded tables are copied, never moved, so the operator's file stays put
//   - Archived copies can be placed in date-based subdirectories
//   - Old archives are removed by age when a retention is configured
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TableExtensions are the file types the table parser reads.
var TableExtensions = []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around loading and exporting tables.
type FileManager struct {
	// OutputDir is the directory where export files are placed.
	OutputDir string

	// ArchiveDir receives copies of loaded tables. Empty disables archival.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/inventory.csv
	UseTimestampSubdirs bool

	// now is the clock used for archive subdirectories.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:           outputDir,
		ArchiveDir:          archiveDir,
		UseTimestampSubdirs: true,
		now:                 time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// TABLE DISCOVERY
// =============================================================================

// DiscoverTables lists the table files directly inside dir, newest first.
//
// PARAMETERS:
//   - dir: The directory to scan. Subdirectories are not entered.
//
// RETURNS:
//   - A slice of file paths with a known table extension.
//   - An error if the directory cannot be read.
func DiscoverTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate
	for _, entry := range entries {
		if entry.IsDir() || !IsTableFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})

	result := make([]string, 0, len(found))
	for _, c := range found {
		result = append(result, c.path)
	}
	return result, nil
}

// IsTableFile reports whether name has a table extension.
func IsTableFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range TableExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// ResolveTablePath returns path itself for a file, or the newest table file
// when path is a directory.
func ResolveTablePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	tables, err := DiscoverTables(path)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("no table files in %s", path)
	}
	return tables[0], nil
}

// =============================================================================
// TABLE ARCHIVAL
// =============================================================================

// ArchiveTable copies a loaded table into the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the table that was loaded.
//
// RETURNS:
//   - The path to the archived copy, or "" when archival is disabled.
//   - An error if archival fails.
func (fm *FileManager) ArchiveTable(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return "", nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// getArchivePath constructs the archive path for a file. A file of the same
// name archived earlier the same day is not overwritten.
func (fm *FileManager) getArchivePath(filePath string) string {
	now := fm.now()
	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	fileName := filepath.Base(filePath)
	archivePath := filepath.Join(dir, fileName)
	if FileExists(archivePath) {
		ext := filepath.Ext(fileName)
		stem := strings.TrimSuffix(fileName, ext)
		archivePath = filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("150405.000"), ext))
	}
	return archivePath
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique export file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               plus one placeholder per params key, e.g. {session}
//   - ext: The extension to ensure, e.g. ".csv".
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "{session}_{timestamp}"
//   params: {"session": "0b7f3c1e"}
//   output: "0b7f3c1e_20240115_143022.csv"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Path separators in a placeholder value must not escape the output dir.
	result = strings.NewReplacer("/", "_", "\\", "_").Replace(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldArchives removes archive files older than the specified duration.
//
// PARAMETERS:
//   - archiveDir: The archive directory to clean.
//   - maxAge: The maximum age of files to keep.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}
	return removed, nil
}
