package importer

import (
	"fmt"
	"testing"
	"time"

	"duoledger/internal/core"
)

var importTime = time.Date(2025, 3, 14, 18, 45, 0, 0, time.UTC)

func testClassifier() Classifier {
	return Classifier{Rules: DefaultRules(), Owner: "Fajar", Now: func() time.Time { return importTime }}
}

func TestClassifyStatementScenario(t *testing.T) {
	c := testClassifier()
	rows := []map[string]string{
		{"Debit": "1,200", "Comment": "Lunch at Cafe"},
		{" DEBIT ": "0", "credit": "5,000", "comment ": "Salary"},
	}

	var got []core.Transaction
	for _, r := range rows {
		if tx, ok := c.Classify(r); ok {
			got = append(got, tx)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Amount.String() != "1200" || got[0].Type != core.Debit || got[0].Category != core.Dining {
		t.Fatalf("first candidate: %+v", got[0])
	}
	if got[1].Amount.String() != "5000" || got[1].Type != core.Credit || got[1].Category != core.Other {
		t.Fatalf("second candidate: %+v", got[1])
	}
	for _, tx := range got {
		if tx.Who != "Fajar" || !tx.Imported || !tx.CreatedAt.Equal(importTime) {
			t.Fatalf("missing import stamps: %+v", tx)
		}
		if tx.Date.String() != "2025-03-14" {
			t.Fatalf("missing date should default to import day, got %s", tx.Date)
		}
	}
}

func TestClassifyNeverYieldsNonPositiveAmounts(t *testing.T) {
	c := testClassifier()
	values := []string{"", "0", "0.00", "-5", "-1,000", "abc", " ", "1,2,3", "7", "0.01", "Rs 450"}
	for _, d := range values {
		for _, cr := range values {
			row := map[string]string{"debit": d, "credit": cr}
			tx, ok := c.Classify(row)
			if !ok {
				continue
			}
			if !tx.Amount.IsPositive() {
				t.Fatalf("row %v produced amount %s", row, tx.Amount)
			}
		}
	}
	if _, ok := c.Classify(map[string]string{"debit": "", "credit": "0"}); ok {
		t.Fatalf("rows without a signal must be dropped")
	}
	if _, ok := c.Classify(nil); ok {
		t.Fatalf("nil row must be dropped")
	}
}

func TestClassifyCurrencyPrefixedAmounts(t *testing.T) {
	c := testClassifier()
	tests := []struct {
		debit string
		want  string
	}{
		{"Rs. 1,200", "1200"},
		{"Rs.1,200", "1200"},
		{"rs 1,200", "1200"},
		{"PKR 2,500.50", "2500.50"},
		{"1,200", "1200"},
	}
	for _, tt := range tests {
		t.Run(tt.debit, func(t *testing.T) {
			tx, ok := c.Classify(map[string]string{"Debit": tt.debit, "Comment": "Lunch"})
			if !ok {
				t.Fatalf("row dropped")
			}
			if core.FormatAmount(tx.Amount) != tt.want {
				t.Fatalf("Classify(%q) amount = %s, want %s", tt.debit, core.FormatAmount(tx.Amount), tt.want)
			}
		})
	}

	if _, ok := c.Classify(map[string]string{"Debit": "Rs..5"}); ok {
		t.Fatalf("malformed currency amount must be dropped")
	}
}

func TestClassifyCollidingHeaders(t *testing.T) {
	c := testClassifier()
	rows := []map[string]string{
		{"Debit": "", " debit": "300", "Comment": "Coffee"},
		{"Debit": "300", " debit": "", "comment ": "Coffee"},
		{" DEBIT": "300", "debit": "900", "Comment": "Coffee"},
	}
	for i, row := range rows {
		for run := 0; run < 20; run++ {
			tx, ok := c.Classify(row)
			if !ok || tx.Amount.String() != "300" {
				t.Fatalf("row %d run %d: amount = %v ok=%v", i, run, tx.Amount, ok)
			}
		}
	}
}

func TestClassifyCategories(t *testing.T) {
	c := testClassifier()
	tests := []struct {
		comment string
		want    core.Category
	}{
		{"Coffee with friends", core.Dining},
		{"CAREEM ride home", core.Transport},
		{"Mobile load", core.Utilities},
		{"Electricity BILL", core.Utilities},
		{"Gym membership", core.Home},
		{"Pocket Money for Ali", core.Gifts},
		{"Dinner then uber", core.Dining},
		{"Groceries at Imtiaz", core.Other},
		{"", core.Other},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			tx, ok := c.Classify(map[string]string{"debit": "100", "comment": tt.comment})
			if !ok {
				t.Fatalf("row dropped")
			}
			if tx.Category != tt.want {
				t.Fatalf("Classify(%q) category = %s, want %s", tt.comment, tx.Category, tt.want)
			}
		})
	}

	tx, _ := c.Classify(map[string]string{"debit": "100"})
	if tx.Note != DefaultNote {
		t.Fatalf("note = %q", tx.Note)
	}
}

func TestParseStatementDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-05", "2025-01-05"},
		{"2025-01-05 23:10:00", "2025-01-05"},
		{"01/05/2025 10:30", "2025-01-05"},
		{"1/5/2025 9:15 PM", "2025-01-05"},
		{"05 Jan 2025  10:30", "2025-01-05"},
		{"05-Jan-2025", "2025-01-05"},
		{"Jan 5, 2025", "2025-01-05"},
		{"not a date", "2025-03-14"},
		{"", "2025-03-14"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			if got := ParseStatementDate(tt.in, importTime).String(); got != tt.want {
				t.Fatalf("ParseStatementDate(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
