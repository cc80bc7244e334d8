package http

import (
	"slices"
	"time"

	"duoledger/internal/core"
	"duoledger/internal/ledger"
	"duoledger/internal/services"
)

type transactionJSON struct {
	ID            string `json:"id"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	Category      string `json:"category"`
	CategoryLabel string `json:"categoryLabel"`
	Note          string `json:"note"`
	Date          string `json:"date"`
	Who           string `json:"who"`
	CreatedAt     string `json:"createdAt"`
	Imported      bool   `json:"imported"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		Amount:        core.FormatAmount(tx.Amount),
		Type:          string(tx.Type),
		Category:      string(tx.Category),
		CategoryLabel: tx.Category.Label(),
		Note:          tx.DisplayNote(),
		Date:          tx.Date.String(),
		Who:           string(tx.Who),
		CreatedAt:     tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		Imported:      tx.Imported,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionJSON(tx)
	}
	return out
}

type addTransactionRequest struct {
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Note     string `json:"note"`
	Date     string `json:"date"`
	Who      string `json:"who"`
}

// toTransaction parses the request. An empty date means today and an empty
// type means debit.
func (req addTransactionRequest) toTransaction(now time.Time) (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	typ := core.Debit
	if t := sanitizeInput(req.Type); t != "" {
		typ = core.TxType(t)
		if !typ.Valid() {
			return core.Transaction{}, core.ErrInvalidType
		}
	}

	date := core.DateOf(now)
	if d := sanitizeInput(req.Date); d != "" {
		if date, err = core.ParseDate(d); err != nil {
			return core.Transaction{}, err
		}
	}

	return core.Transaction{
		Amount:   amount,
		Type:     typ,
		Category: core.ParseCategory(req.Category),
		Note:     sanitizeInput(req.Note),
		Date:     date,
		Who:      core.Person(sanitizeInput(req.Who)),
	}, nil
}

type personSummaryJSON struct {
	Who         string  `json:"who"`
	Budget      int64   `json:"budget"`
	Spent       string  `json:"spent"`
	Remaining   string  `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
	Income      string  `json:"income"`
}

type categoryJSON struct {
	Category string  `json:"category"`
	Label    string  `json:"label"`
	Amount   string  `json:"amount"`
	Share    float64 `json:"share"`
}

type summaryJSON struct {
	Cycle       string              `json:"cycle"`
	Year        int                 `json:"year"`
	Month       int                 `json:"month"`
	Start       string              `json:"start"`
	End         string              `json:"end"`
	People      []personSummaryJSON `json:"people"`
	TotalSpent  string              `json:"totalSpent"`
	TotalIncome string              `json:"totalIncome"`
	Count       int                 `json:"count"`
	Breakdown   []categoryJSON      `json:"breakdown"`
	Version     uint64              `json:"version"`
}

// cycleJSON holds the fields shared by summary and list responses.
type cycleJSON struct {
	Cycle string `json:"cycle"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toCycleJSON(view services.CycleView) cycleJSON {
	return cycleJSON{
		Cycle: view.Key.String(),
		Start: core.DateOf(view.Start).String(),
		End:   core.DateOf(view.End).String(),
	}
}

// people lists the household first, then anyone else seen in the cycle in
// name order.
func people(h core.Household, s ledger.Summary) []core.Person {
	out := h.Members()
	var extra []core.Person
	for p := range s.Spent {
		if !h.Contains(p) {
			extra = append(extra, p)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func toSummaryJSON(view services.CycleView, h core.Household) summaryJSON {
	c := toCycleJSON(view)
	out := summaryJSON{
		Cycle:       c.Cycle,
		Year:        view.Key.Year,
		Month:       view.Key.Month,
		Start:       c.Start,
		End:         c.End,
		TotalSpent:  view.Summary.TotalSpent.String(),
		TotalIncome: view.Summary.TotalIncome.String(),
		Count:       view.Summary.Count,
		Breakdown:   make([]categoryJSON, 0, len(view.Breakdown)),
		Version:     view.TransactionsVersion,
	}
	for _, p := range people(h, view.Summary) {
		out.People = append(out.People, personSummaryJSON{
			Who:         string(p),
			Budget:      view.Budget.Allocation(p),
			Spent:       view.Summary.Spent[p].String(),
			Remaining:   view.Summary.Remaining[p].String(),
			PercentUsed: view.Summary.PercentUsed[p],
			Income:      view.Summary.Income[p].String(),
		})
	}
	for _, c := range view.Breakdown {
		out.Breakdown = append(out.Breakdown, categoryJSON{
			Category: string(c.Category),
			Label:    c.Label,
			Amount:   c.Amount.String(),
			Share:    c.Share,
		})
	}
	return out
}

type budgetJSON struct {
	Cycle       string           `json:"cycle"`
	Year        int              `json:"year"`
	Month       int              `json:"month"`
	Allocations map[string]int64 `json:"allocations"`
}

func toBudgetJSON(key ledger.CycleKey, b core.Budget) budgetJSON {
	out := budgetJSON{Cycle: key.String(), Year: key.Year, Month: key.Month, Allocations: make(map[string]int64, len(b.Allocations))}
	for p, v := range b.Allocations {
		out.Allocations[string(p)] = v
	}
	return out
}

type noteJSON struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
}

func toNoteJSON(n core.Note) noteJSON {
	return noteJSON{ID: n.ID, Text: n.Text, Author: n.Author, CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano)}
}
