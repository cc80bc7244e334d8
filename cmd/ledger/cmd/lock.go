package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"duoledger/internal/auth"
	applog "duoledger/internal/log"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <pin>",
	Short: "Unlock this device with the shared PIN",
	Long: `Unlock checks the shared PIN and remembers in PREFS_FILE that this
device may use the ledger. import, summary, budget and pin set are
refused until the device is unlocked.

Example:
  ledger unlock 1430`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := openPrefs()
		if err != nil {
			return err
		}
		if err := prefs.Unlock(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Device unlocked.")
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := openPrefs()
		if err != nil {
			return err
		}
		if err := prefs.Lock(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Device locked.")
		return nil
	},
}

func openPrefs() (*auth.Prefs, error) {
	return auth.Open(cfg.PrefsFile, authLogger())
}

func authLogger() *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.WithComponent(applog.ComponentAuth).Logger
}

// requireUnlocked refuses to continue on a locked device.
func requireUnlocked(prefsFile string) error {
	prefs, err := auth.Open(prefsFile, authLogger())
	if err != nil {
		return err
	}
	if err := prefs.RequireUnlocked(); err != nil {
		if errors.Is(err, auth.ErrLocked) {
			return fmt.Errorf("%w: run 'ledger unlock <pin>' first", err)
		}
		return err
	}
	return nil
}
