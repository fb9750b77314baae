// Command quell inspects tables and rows through the quell record layer.
//
// Usage:
//
//	quell describe <table>                 # Print the parsed table schema
//	quell get <table> <key>                # Load one row by primary key
//	quell find <table> --where col=value   # List matching rows
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/likearthian/quell"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFile string
	driver     string
	dsn        string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "quell",
		Short:         "Inspect tables and rows through quell models",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver (mysql, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVarP(&dsn, "dsn", "d", "", "Database connection string")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every query")

	rootCmd.AddCommand(
		describeCmd(),
		getCmd(),
		findCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig merges the config file, environment and flags. Flags win.
func loadConfig() (*quell.Config, error) {
	cfg, err := quell.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	if driver != "" {
		cfg.Driver = driver
	}
	if dsn != "" {
		cfg.DSN = dsn
	}

	return cfg, nil
}

func connect() (*sqlx.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := cfg.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	return db, nil
}

func newModel(db *sqlx.DB, table string) (*quell.Model, error) {
	return quell.NewModel(table, quell.WithConnection(db), quell.WithLogger(slog.Default()))
}
