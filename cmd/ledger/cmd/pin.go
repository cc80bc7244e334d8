package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pinCmd = &cobra.Command{
	Use:         "pin",
	Short:       "Manage the shared household PIN",
	Annotations: map[string]string{annotationUnlock: "required"},
}

var pinSetCmd = &cobra.Command{
	Use:   "set <pin>",
	Short: "Replace the shared PIN",
	Long: `Set stores a new 4-digit PIN in PREFS_FILE. ledgerd loads the PIN at
startup, so restart it to apply the change.

Example:
  ledger pin set 2468`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := openPrefs()
		if err != nil {
			return err
		}
		if err := prefs.SetPIN(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PIN updated.")
		return nil
	},
}

func init() {
	pinCmd.AddCommand(pinSetCmd)
}
