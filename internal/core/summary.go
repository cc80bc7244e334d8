package core

import "github.com/shopspring/decimal"

// CategoryAmount is one row of a category breakdown.
type CategoryAmount struct {
	Category Category
	Label    string
	Amount   decimal.Decimal
	Share    float64 // percent of the breakdown total
}
