// Package main is the entry point for the tablepulse CLI.
//
// TablePulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	tablepulse serve -c config.yaml    # Start the live table view
//	tablepulse validate -c config.yaml # Validate configuration
//	tablepulse version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "tablepulse",
	Short: "A live viewer for one hosted database table",
	Long: `TablePulse is a lightweight live viewer for a single hosted database table.

It polls the table over the service's REST interface at a configurable
interval and renders the current rows as an HTML list, with explicit
loading, error, and background-refresh states. A failed poll keeps the
previously loaded rows on screen under a warning banner.

Quick start:
  1. Create a config file (tablepulse.yaml)
  2. Export TABLEPULSE_SERVICE_URL and TABLEPULSE_SERVICE_KEY
     (or put them in a .env file)
  3. Run: tablepulse serve -c tablepulse.yaml
  4. Open http://localhost:8080 in your browser

Example config:
  title: Support tickets
  port: 8080
  table: tickets
  poll_interval: 5s
  order_by: created_at.desc`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this tablepulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tablepulse %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
