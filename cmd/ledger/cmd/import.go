package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"duoledger/internal/cli"
	"duoledger/internal/services"
)

var assumeYes bool

var importCmd = &cobra.Command{
	Use:   "import <statement.csv>",
	Short: "Import a bank statement CSV",
	Long: `Import reads a bank statement export, classifies every row and adds
the resulting transactions under the statement owner in one atomic batch.

Example:
  ledger import statement.csv
  ledger import --yes statement.csv`,
	Args:        cobra.ExactArgs(1),
	RunE:        runImport,
	Annotations: map[string]string{annotationUnlock: "required"},
}

func init() {
	importCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "import without asking for confirmation")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var confirm services.Confirmer = services.Always(true)
	if !assumeYes {
		confirm = prompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	return withApp(cmd.Context(), func(app *cli.App) error {
		res, err := app.Ledger.WithConfirmer(confirm).ImportCSV(cmd.Context(), f)
		switch {
		case errors.Is(err, services.ErrNotConfirmed):
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled.")
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d rows.\n", res.Accepted, res.Rows)
		return nil
	})
}

// prompter asks a yes/no question on out and reads the answer from in.
func prompter(in io.Reader, out io.Writer) services.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(_ context.Context, prompt string, _ int) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
