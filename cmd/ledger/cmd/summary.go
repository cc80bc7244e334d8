package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"duoledger/internal/cli"
	"duoledger/internal/core"
	"duoledger/internal/ledger"
	"duoledger/internal/services"
)

var (
	summaryYear  int
	summaryMonth string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show spend against budget for a cycle",
	Long: `Summary prints what each person spent, their budget and what is left
for one cycle, followed by the category breakdown. Without flags it shows
the cycle containing today.

Months are 0-based (0 = January); ALL covers the whole year.

Example:
  ledger summary
  ledger summary --year 2025 --month ALL`,
	Args:        cobra.NoArgs,
	RunE:        runSummary,
	Annotations: map[string]string{annotationUnlock: "required"},
}

func init() {
	summaryCmd.Flags().IntVar(&summaryYear, "year", 0, "cycle year (default: current cycle)")
	summaryCmd.Flags().StringVar(&summaryMonth, "month", "", "cycle month, 0-11 or ALL (default: current cycle)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *cli.App) error {
		views, err := openViews(cmd.Context(), app)
		if err != nil {
			return err
		}
		defer views.Close()

		key, err := cycleFromFlags(views.CurrentCycle(), summaryYear, summaryMonth)
		if err != nil {
			return err
		}
		view, err := views.Cycle(key)
		if err != nil {
			return err
		}
		renderSummary(cmd.OutOrStdout(), cfg.Ledger().Household, view)
		return nil
	})
}

// cycleFromFlags overrides the parts of current given on the command line.
func cycleFromFlags(current ledger.CycleKey, year int, month string) (ledger.CycleKey, error) {
	key := current
	if year != 0 {
		key.Year = year
	}
	if month != "" {
		m, err := ledger.ParseMonth(month)
		if err != nil {
			return ledger.CycleKey{}, err
		}
		key.Month = m
	}
	if !key.Valid() {
		return ledger.CycleKey{}, fmt.Errorf("%w: %s", ledger.ErrInvalidCycle, key)
	}
	return key, nil
}

func renderSummary(w io.Writer, h core.Household, view services.CycleView) {
	fmt.Fprintf(w, "Cycle %s (%s to %s), %d transactions\n\n",
		view.Key, view.Start.Format(core.DateLayout), view.End.AddDate(0, 0, -1).Format(core.DateLayout), view.Summary.Count)

	people := h.Members()
	for p := range view.Summary.Spent {
		if !h.Contains(p) {
			people = append(people, p)
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Who", "Budget", "Spent", "Remaining", "Used %", "Income"})
	for _, p := range people {
		table.Append([]string{
			string(p),
			core.FormatRupees(decimal.NewFromInt(view.Budget.Allocation(p))),
			core.FormatRupees(view.Summary.Spent[p]),
			core.FormatRupees(view.Summary.Remaining[p]),
			strconv.FormatFloat(view.Summary.PercentUsed[p], 'f', 1, 64),
			core.FormatRupees(view.Summary.Income[p]),
		})
	}
	table.SetFooter([]string{"Total", "", core.FormatRupees(view.Summary.TotalSpent), "", "", core.FormatRupees(view.Summary.TotalIncome)})
	table.Render()

	if len(view.Breakdown) == 0 {
		return
	}
	fmt.Fprintln(w)
	breakdown := tablewriter.NewWriter(w)
	breakdown.SetHeader([]string{"Category", "Spent", "Share %"})
	for _, row := range view.Breakdown {
		breakdown.Append([]string{row.Label, core.FormatRupees(row.Amount), strconv.FormatFloat(row.Share, 'f', 1, 64)})
	}
	breakdown.Render()
}
