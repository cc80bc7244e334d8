package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"duoledger/internal/auth"
	"duoledger/internal/core"
	"duoledger/internal/ledger"
	"duoledger/internal/services"
)

func TestCycleFromFlags(t *testing.T) {
	current := ledger.CycleKey{Year: 2025, Month: 3}
	tests := []struct {
		name    string
		year    int
		month   string
		want    ledger.CycleKey
		wantErr bool
	}{
		{name: "no flags", want: current},
		{name: "year only", year: 2024, want: ledger.CycleKey{Year: 2024, Month: 3}},
		{name: "month only", month: "0", want: ledger.CycleKey{Year: 2025, Month: 0}},
		{name: "all months", year: 2024, month: "all", want: ledger.CycleKey{Year: 2024, Month: ledger.AllMonths}},
		{name: "month out of range", month: "12", wantErr: true},
		{name: "garbage month", month: "march", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cycleFromFlags(current, tt.year, tt.month)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cycleFromFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		confirm := prompter(strings.NewReader(tt.input), &out)
		if got := confirm(context.Background(), "Import 2 rows?", 2); got != tt.want {
			t.Errorf("prompter(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Import 2 rows? [y/N]") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestRenderSummary(t *testing.T) {
	h := core.Household{A: "Ali", B: "Fajar"}
	view := services.CycleView{
		Key:    ledger.CycleKey{Year: 2025, Month: 0},
		Start:  time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		Budget: core.Budget{Year: 2025, Month: 0, Allocations: map[core.Person]int64{"Ali": 30000}},
		Summary: ledger.Summary{
			Spent:       map[core.Person]decimal.Decimal{"Ali": decimal.NewFromInt(1200), "Guest": decimal.NewFromInt(50)},
			Remaining:   map[core.Person]decimal.Decimal{"Ali": decimal.NewFromInt(28800)},
			PercentUsed: map[core.Person]float64{"Ali": 4},
			Income:      map[core.Person]decimal.Decimal{},
			TotalSpent:  decimal.NewFromInt(1250),
			Count:       2,
		},
		Breakdown: []core.CategoryAmount{{Category: core.Dining, Label: core.Dining.Label(), Amount: decimal.NewFromInt(1250), Share: 100}},
	}

	var out bytes.Buffer
	renderSummary(&out, h, view)
	got := out.String()
	for _, want := range []string{"Cycle 2025-01", "2024-12-20 to 2025-01-19", "30,000", "1,200", "28,800", "Guest", "1,250", core.Dining.Label()} {
		if !strings.Contains(got, want) {
			t.Errorf("summary output missing %q:\n%s", want, got)
		}
	}
}

func TestUnlockGate(t *testing.T) {
	for _, c := range []*cobra.Command{importCmd, summaryCmd, budgetSetCmd, pinSetCmd} {
		if !needsUnlock(c) {
			t.Errorf("%s should require an unlocked device", c.CommandPath())
		}
	}
	for _, c := range []*cobra.Command{unlockCmd, lockCmd, rootCmd} {
		if needsUnlock(c) {
			t.Errorf("%s must run on a locked device", c.CommandPath())
		}
	}

	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := requireUnlocked(path); !errors.Is(err, auth.ErrLocked) {
		t.Fatalf("fresh device: expected ErrLocked, got %v", err)
	}
	prefs, err := auth.Open(path, nil)
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}
	if err := prefs.Unlock(auth.DefaultPIN); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := requireUnlocked(path); err != nil {
		t.Fatalf("unlocked device refused: %v", err)
	}
}

func TestImportFlagsRegistered(t *testing.T) {
	if importCmd.Flags().Lookup("yes") == nil {
		t.Fatal("import --yes flag missing")
	}
	if err := importCmd.Args(importCmd, nil); err == nil {
		t.Fatal("import without a file should be rejected")
	}
}
