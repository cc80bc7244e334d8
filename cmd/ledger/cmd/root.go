// Package cmd provides the commands of the ledger CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"duoledger/internal/cli"
	"duoledger/internal/config"
	applog "duoledger/internal/log"
	"duoledger/internal/services"
)

var (
	debug bool

	cfg    *config.Config
	logger *applog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Household ledger from the terminal",
	Long: `ledger reads and writes the shared household ledger directly
against the configured store. Writes are announced over the AMQP relay
when AMQP_URL is set, so a running ledgerd picks them up.

Example:
  ledger unlock 1430
  ledger import statement.csv
  ledger summary --year 2025 --month 0
  ledger budget set --year 2025 --month 0 --alloc Ali=30000 --alloc Fajar=20000
  ledger pin set 2468`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		cfg = config.Load()
		if debug {
			cfg.LogLevel = "debug"
		}
		logger = cli.SetupLogger(cfg, applog.ComponentCLI)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if needsUnlock(cmd) {
			return requireUnlocked(cfg.PrefsFile)
		}
		return nil
	},
}

// annotationUnlock marks commands that only run on an unlocked device.
const annotationUnlock = "unlock"

// needsUnlock reports whether cmd or one of its parents is marked with
// annotationUnlock.
func needsUnlock(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationUnlock] != "" {
			return true
		}
	}
	return false
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)
}

// withApp bootstraps the store for the duration of fn.
func withApp(ctx context.Context, fn func(*cli.App) error) error {
	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()
	return fn(app)
}

// openViews subscribes to the ledger and waits for the first snapshot of
// every collection.
func openViews(ctx context.Context, app *cli.App) (*services.ViewService, error) {
	views, err := services.OpenViews(ctx, app.Backend.Store, app.Cols, cfg.Ledger(), nil, logger.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for !views.Ready() {
		select {
		case <-ctx.Done():
			views.Close()
			return nil, fmt.Errorf("waiting for ledger snapshot: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	slog.Debug("Ledger snapshot ready", applog.FieldCount, views.Transactions().Len())
	return views, nil
}
