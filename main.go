// =============================================================================
// Stock Scan - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Stock Scan CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   stockscan load <file>   - Load a stock export as the working table
//   stockscan filter [cat]  - Show or set the category filter
//   stockscan scan          - Open the interactive scan screen
//   stockscan submit        - Reconcile codes from arguments or stdin
//   stockscan status        - Show progress
//   stockscan export        - Write the scanned list
//   stockscan reset         - Clear scans
//   stockscan version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, filtering, reconciliation, storage, screens
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/stock-scan/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
