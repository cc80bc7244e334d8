package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Debit  TxType = "debit"
	Credit TxType = "credit"
)

const (
	Groceries Category = "groceries"
	Dining    Category = "dining"
	Utilities Category = "utilities"
	Transport Category = "transport"
	Home      Category = "home"
	Dates     Category = "dates"
	Gifts     Category = "gifts"
	Other     Category = "other"
)

// DateLayout is the wire form of a calendar date.
const DateLayout = "2006-01-02"

type (
	TxType   string
	Category string
	Person   string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID        string
		Amount    decimal.Decimal
		Type      TxType
		Category  Category // only meaningful for debits
		Note      string
		Date      Date
		Who       Person
		CreatedAt time.Time
		Imported  bool
	}

	// Budget holds the two household allocations for one cycle.
	// Month is the 0-based cycle index.
	Budget struct {
		Year        int
		Month       int
		Allocations map[Person]int64
	}

	Note struct {
		ID        string
		Text      string
		Author    string
		CreatedAt time.Time
	}

	// Household names the two members sharing the ledger.
	Household struct {
		A Person
		B Person
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidDate         = errors.New("invalid date")
	ErrUnknownPerson       = errors.New("unknown household member")
	ErrEmptyNote           = errors.New("empty note")
	ErrNegativeAllocation  = errors.New("negative budget allocation")
	ErrInvalidBudgetPeriod = errors.New("invalid budget period")
)

var categoryLabels = map[Category]string{
	Groceries: "Groceries",
	Dining:    "Dining Out",
	Utilities: "Bills",
	Transport: "Transport",
	Home:      "Home",
	Dates:     "Date Night",
	Gifts:     "Gifts",
	Other:     "Other",
}

// Categories lists the fixed tag set in display order.
var Categories = []Category{Groceries, Dining, Utilities, Transport, Home, Dates, Gifts, Other}

// Label returns the human label of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[Other]
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory maps free text to a known category, falling back to Other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return Other
}

func (t TxType) Valid() bool {
	return t == Debit || t == Credit
}

// ParseTxType defaults to Debit for anything that is not "credit".
func ParseTxType(s string) TxType {
	if strings.EqualFold(strings.TrimSpace(s), string(Credit)) {
		return Credit
	}
	return Debit
}

// Members returns both household members in a stable order.
func (h Household) Members() []Person {
	return []Person{h.A, h.B}
}

func (h Household) Contains(p Person) bool {
	return p != "" && (p == h.A || p == h.B)
}

// NewDate creates a new Date from year, month (1-12) and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Anything else yields a zero Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// DisplayNote returns the note, or the category label when none was given.
func (t Transaction) DisplayNote() string {
	if n := strings.TrimSpace(t.Note); n != "" {
		return n
	}
	return t.Category.Label()
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(t.Who)) == "" {
		return ErrUnknownPerson
	}
	return nil
}

// Allocation returns the budget for p, zero when unset.
func (b Budget) Allocation(p Person) int64 {
	if b.Allocations == nil {
		return 0
	}
	return b.Allocations[p]
}

func (b Budget) Validate() error {
	if b.Month < 0 || b.Month > 11 || b.Year < 1 {
		return ErrInvalidBudgetPeriod
	}
	for _, v := range b.Allocations {
		if v < 0 {
			return ErrNegativeAllocation
		}
	}
	return nil
}

func (n Note) Validate() error {
	if strings.TrimSpace(n.Text) == "" {
		return ErrEmptyNote
	}
	return nil
}
