package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"duoledger/internal/core"
)

func TestDefaultRulesOrder(t *testing.T) {
	rules := DefaultRules()
	want := []core.Category{core.Dining, core.Transport, core.Utilities, core.Home, core.Gifts}
	if len(rules) != len(want) {
		t.Fatalf("got %d rules", len(rules))
	}
	for i, r := range rules {
		if r.Category != want[i] {
			t.Fatalf("rule %d = %s, want %s", i, r.Category, want[i])
		}
	}
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte("rules:\n  - category: groceries\n    keywords: [' Imtiaz ', CARREFOUR]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rules[0].Keywords[0] != "imtiaz" || rules[0].Keywords[1] != "carrefour" {
		t.Fatalf("keywords not normalized: %v", rules[0].Keywords)
	}
	if Categorize(rules, "IMTIAZ super market") != core.Groceries {
		t.Fatalf("custom rule did not match")
	}

	bad := []string{
		"rules:\n  - category: crypto\n    keywords: [btc]\n",
		"rules:\n  - category: home\n    keywords: []\n",
		"rules:\n  - category: home\n    keywords: ['  ']\n",
		"rules: []\n",
		"rules: [",
	}
	for _, b := range bad {
		if _, err := ParseRules([]byte(b)); !errors.Is(err, ErrInvalidRules) {
			t.Fatalf("ParseRules(%q) expected ErrInvalidRules, got %v", b, err)
		}
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil || len(rules) != 5 {
		t.Fatalf("default rules: %d %v", len(rules), err)
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - category: dates\n    keywords: [cinema]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err = LoadRules(path)
	if err != nil || len(rules) != 1 || rules[0].Category != core.Dates {
		t.Fatalf("file rules: %+v %v", rules, err)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
}
