package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"duoledger/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Summary holds the derived figures for one (subset, budget) pair.
type Summary struct {
	Spent             map[core.Person]decimal.Decimal
	Remaining         map[core.Person]decimal.Decimal
	PercentUsed       map[core.Person]float64
	Income            map[core.Person]decimal.Decimal
	CategoryBreakdown map[core.Category]decimal.Decimal
	TotalSpent        decimal.Decimal
	TotalIncome       decimal.Decimal
	Count             int
}

// Aggregate derives spend, remaining balance and percent used for every
// person in people, plus anyone else appearing in subset. Credits are only
// reported as income; they never offset spend.
func Aggregate(subset []core.Transaction, budget core.Budget, people []core.Person) Summary {
	s := Summary{
		Spent:             make(map[core.Person]decimal.Decimal),
		Remaining:         make(map[core.Person]decimal.Decimal),
		PercentUsed:       make(map[core.Person]float64),
		Income:            make(map[core.Person]decimal.Decimal),
		CategoryBreakdown: make(map[core.Category]decimal.Decimal),
		TotalSpent:        decimal.Zero,
		TotalIncome:       decimal.Zero,
		Count:             len(subset),
	}
	for _, p := range people {
		s.Spent[p] = decimal.Zero
		s.Income[p] = decimal.Zero
	}

	for _, tx := range subset {
		if tx.Who != "" {
			if _, ok := s.Spent[tx.Who]; !ok {
				s.Spent[tx.Who] = decimal.Zero
				s.Income[tx.Who] = decimal.Zero
			}
		}
		switch tx.Type {
		case core.Debit:
			s.TotalSpent = s.TotalSpent.Add(tx.Amount)
			if tx.Who != "" {
				s.Spent[tx.Who] = s.Spent[tx.Who].Add(tx.Amount)
			}
			cat := tx.Category
			if !cat.Valid() {
				cat = core.Other
			}
			s.CategoryBreakdown[cat] = s.CategoryBreakdown[cat].Add(tx.Amount)
		case core.Credit:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			if tx.Who != "" {
				s.Income[tx.Who] = s.Income[tx.Who].Add(tx.Amount)
			}
		}
	}

	for p, spent := range s.Spent {
		alloc := decimal.NewFromInt(budget.Allocation(p))
		s.Remaining[p] = alloc.Sub(spent)
		s.PercentUsed[p] = percentUsed(spent, alloc)
	}
	for c, v := range s.CategoryBreakdown {
		if v.IsZero() {
			delete(s.CategoryBreakdown, c)
		}
	}
	return s
}

// percentUsed is spent/max(budget,1)*100, capped at 100.
func percentUsed(spent, budget decimal.Decimal) float64 {
	denom := budget
	if denom.LessThan(decimal.NewFromInt(1)) {
		denom = decimal.NewFromInt(1)
	}
	pct := spent.Div(denom).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2).InexactFloat64()
}

// SortedBreakdown orders the category breakdown by amount, largest first.
// Ties follow the fixed category order.
func SortedBreakdown(breakdown map[core.Category]decimal.Decimal) []core.CategoryAmount {
	total := decimal.Zero
	for _, v := range breakdown {
		total = total.Add(v)
	}

	out := make([]core.CategoryAmount, 0, len(breakdown))
	for _, c := range core.Categories {
		v, ok := breakdown[c]
		if !ok {
			continue
		}
		share := 0.0
		if total.IsPositive() {
			share = v.Div(total).Mul(hundred).Round(1).InexactFloat64()
		}
		out = append(out, core.CategoryAmount{Category: c, Label: c.Label(), Amount: v, Share: share})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
