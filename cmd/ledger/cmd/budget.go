package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"duoledger/internal/cli"
	"duoledger/internal/core"
	"duoledger/internal/ledger"
)

var (
	budgetYear   int
	budgetMonth  string
	budgetAllocs map[string]int64
)

var budgetCmd = &cobra.Command{
	Use:         "budget",
	Short:       "Manage cycle budgets",
	Annotations: map[string]string{annotationUnlock: "required"},
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the per-person budget of one cycle",
	Long: `Set writes the allocations of one cycle. People not named keep a zero
allocation. ALL budgets are derived from the monthly ones and cannot be set.

Example:
  ledger budget set --year 2025 --month 0 --alloc Ali=30000 --alloc Fajar=20000`,
	Args: cobra.NoArgs,
	RunE: runBudgetSet,
}

func init() {
	budgetSetCmd.Flags().IntVar(&budgetYear, "year", 0, "cycle year")
	budgetSetCmd.Flags().StringVar(&budgetMonth, "month", "", "cycle month, 0-11")
	budgetSetCmd.Flags().StringToInt64Var(&budgetAllocs, "alloc", nil, "allocation per person, e.g. Ali=30000")
	_ = budgetSetCmd.MarkFlagRequired("year")
	_ = budgetSetCmd.MarkFlagRequired("month")
	_ = budgetSetCmd.MarkFlagRequired("alloc")

	budgetCmd.AddCommand(budgetSetCmd)
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	month, err := ledger.ParseMonth(budgetMonth)
	if err != nil {
		return err
	}
	key := ledger.CycleKey{Year: budgetYear, Month: month}

	allocations := make(map[core.Person]int64, len(budgetAllocs))
	for who, amount := range budgetAllocs {
		allocations[core.Person(who)] = amount
	}

	return withApp(cmd.Context(), func(app *cli.App) error {
		b, err := app.Ledger.UpsertBudget(cmd.Context(), key, allocations)
		if err != nil {
			return err
		}
		people := make([]string, 0, len(b.Allocations))
		for p := range b.Allocations {
			people = append(people, string(p))
		}
		slices.Sort(people)
		fmt.Fprintf(cmd.OutOrStdout(), "Budget %s saved:", key)
		for _, p := range people {
			fmt.Fprintf(cmd.OutOrStdout(), " %s=%d", p, b.Allocations[core.Person(p)])
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	})
}
