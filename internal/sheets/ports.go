// Package sheets exports the ledger to a spreadsheet.
package sheets

import (
	"context"

	"duoledger/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter replaces the exported sheet with txs and returns
	// the number of data rows written.
	TransactionExporter interface {
		ReplaceTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	}
)

// Header is the first row of every export.
var Header = []any{"ID", "Date", "Who", "Type", "Category", "Amount", "Note", "Imported", "Created At"}

// Row renders one transaction in Header's column order. Amounts are written
// as exact decimal strings.
func Row(tx core.Transaction) []any {
	category := tx.Category.Label()
	if tx.Type == core.Credit {
		category = ""
	}
	created := ""
	if !tx.CreatedAt.IsZero() {
		created = tx.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []any{
		tx.ID,
		tx.Date.String(),
		string(tx.Who),
		string(tx.Type),
		category,
		core.FormatAmount(tx.Amount),
		tx.DisplayNote(),
		tx.Imported,
		created,
	}
}

// Values builds the full value matrix, header first.
func Values(txs []core.Transaction) [][]any {
	out := make([][]any, 0, len(txs)+1)
	out = append(out, Header)
	for _, tx := range txs {
		out = append(out, Row(tx))
	}
	return out
}
