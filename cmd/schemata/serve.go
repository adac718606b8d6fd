package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the schemata HTTP API.

The server will:
  - Load configuration from schemata.yaml (or --config)
  - Or load configuration from SCHEMATA_* environment variables
  - Open the configured document store
  - Serve the described types and document validation

The configuration file is watched, schema behavior, logging and dry run
changes apply without a restart. SIGHUP forces a reload.

Environment variables:
  SCHEMATA_FILES_BACKEND    - Document store: os, sqlite or memory
  SCHEMATA_FILES_ROOT       - Root directory of the os store
  SCHEMATA_SQLITE           - Database path (default: schemata.db)
  SCHEMATA_SERVER_PORT      - Server port (default: 8080)
  SCHEMATA_STRICT           - Reject mismatching attribute values
  SCHEMATA_EXTRAS           - Undeclared keys: warn, ignore or raise
  SCHEMATA_LOG_LEVEL        - Log level: debug, info, warn, error
  SCHEMATA_METRICS_ENABLED  - Serve Prometheus metrics

Examples:
  schemata serve
  schemata serve --config /etc/schemata/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return a.Run()
}
