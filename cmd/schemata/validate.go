package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/schemata/adapters/sqlite"
	"github.com/artpar/schemata/bootstrap"
	"github.com/artpar/schemata/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the schemata configuration file.

Checks:
  - YAML syntax is valid
  - Values are in range
  - Database is writable (optional, sqlite backend)

Examples:
  schemata validate
  schemata validate --config /etc/schemata/config.yaml`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	behavior, err := bootstrap.BehaviorFromConfig(cfg.Schema)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Show config summary
	fmt.Printf("  %s Behavior: %s\n", checkMark, behavior)
	fmt.Printf("  %s Files: %s\n", checkMark, describeFiles(cfg.Files))
	fmt.Printf("  %s Server: %s\n", checkMark, cfg.Server.Addr())

	// Optional: check database
	if validateCheckDatabase && cfg.Files.Backend == "sqlite" {
		if err := checkDatabaseWritable(cfg.Files.SQLite); err != nil {
			fmt.Printf("  %s Database writable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Database writable\n", checkMark)
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func describeFiles(f config.FilesConfig) string {
	switch f.Backend {
	case "sqlite":
		return fmt.Sprintf("sqlite (%s)", f.SQLite)
	case "memory":
		return "memory"
	}
	root := f.Root
	if root == "" {
		root = "."
	}
	if f.DryRun {
		return fmt.Sprintf("os (%s, dry run)", root)
	}
	return fmt.Sprintf("os (%s)", root)
}

func checkDatabaseWritable(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
