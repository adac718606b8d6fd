package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/artpar/schemata/bootstrap"
	"github.com/artpar/schemata/core/channel/cli"
	"github.com/artpar/schemata/core/example"
)

var (
	// Global flags
	cfgFile string

	appOnce sync.Once
	app     *bootstrap.App
	appErr  error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemata",
	Short: "Describe, validate and normalize JSON and YAML documents",
	Long: `schemata loads JSON and YAML documents into described types.

Every attribute is checked against its declared type, mismatching values
are reported or rejected, and documents are written back normalized.

Quick start:
  schemata types                     # List described types
  schemata describe Person           # Show a type's attributes
  schemata check Person people/*.json
  schemata serve                     # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// serve shuts the application down itself
		if app != nil && cmd != serveCmd {
			app.Shutdown()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "schemata.yaml", "config file path")

	cli.New(rootCmd, loadDeps).Register()
}

// loadApp creates the application once per process.
func loadApp() (*bootstrap.App, error) {
	appOnce.Do(func() {
		app, appErr = bootstrap.NewFromFile(cfgFile, bootstrap.Options{
			Register: example.Register,
		})
	})
	return app, appErr
}

func loadDeps() (cli.Deps, error) {
	a, err := loadApp()
	if err != nil {
		return cli.Deps{}, fmt.Errorf("error initializing: %w", err)
	}
	return cli.Deps{
		Registry: a.Registry,
		Store:    a.Store,
		Save:     a.SaveOptions(),
	}, nil
}
