package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-02-14 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-02-14" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("14/02/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount: decimal.RequireFromString("1200"),
		Type:   Debit,
		Date:   NewDate(2025, 1, 1),
		Who:    "Ali",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		mutate func(*Transaction)
		want   error
	}{
		{func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Amount = decimal.RequireFromString("-3") }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Type = "refund" }, ErrInvalidType},
		{func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{func(tx *Transaction) { tx.Who = " " }, ErrUnknownPerson},
	}
	for i, b := range bads {
		tx := good
		b.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, b.want) {
			t.Fatalf("case %d: expected %v, got %v", i, b.want, err)
		}
	}
}

func TestCategoryParsingAndLabels(t *testing.T) {
	if ParseCategory(" Dining ") != Dining {
		t.Fatalf("expected dining")
	}
	if ParseCategory("crypto") != Other {
		t.Fatalf("unknown categories fall back to other")
	}
	if len(Categories) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(Categories))
	}
	if Utilities.Label() != "Bills" || Category("nope").Label() != "Other" {
		t.Fatalf("unexpected labels")
	}
	tx := Transaction{Category: Dates}
	if tx.DisplayNote() != "Date Night" {
		t.Fatalf("note should default to label, got %q", tx.DisplayNote())
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Year: 2025, Month: 0, Allocations: map[Person]int64{"Ali": 50000, "Fajar": 0}}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if b.Allocation("nobody") != 0 {
		t.Fatalf("missing allocation should be zero")
	}
	b.Allocations["Ali"] = -1
	if err := b.Validate(); !errors.Is(err, ErrNegativeAllocation) {
		t.Fatalf("expected ErrNegativeAllocation, got %v", err)
	}
	if err := (Budget{Year: 2025, Month: 12}).Validate(); !errors.Is(err, ErrInvalidBudgetPeriod) {
		t.Fatalf("expected ErrInvalidBudgetPeriod, got %v", err)
	}
}

func TestHousehold(t *testing.T) {
	h := Household{A: "Ali", B: "Fajar"}
	if !h.Contains("Fajar") || h.Contains("Me") || h.Contains("") {
		t.Fatalf("unexpected membership")
	}
}
