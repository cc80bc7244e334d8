// Package importer turns rows of a bank statement export into transaction
// candidates.
package importer

import (
	"slices"
	"strings"
	"time"

	"duoledger/internal/core"
)

// Recognized statement columns, after normalization.
const (
	ColDebit    = "debit"
	ColCredit   = "credit"
	ColComment  = "comment"
	ColDateTime = "date & time"
)

const DefaultNote = "Imported"

// Slash dates are month first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 03:04 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006 15:04",
	"02 Jan 2006 03:04 PM",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-2006 15:04",
	"Jan 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006",
}

// Classifier maps raw statement rows to transactions. It holds no state
// besides its configuration.
type Classifier struct {
	Rules []Rule
	// Owner is stamped on every imported row.
	Owner core.Person
	Now   func() time.Time
}

func NewClassifier(rules []Rule, owner core.Person) Classifier {
	return Classifier{Rules: rules, Owner: owner, Now: time.Now}
}

func (c Classifier) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// Classify converts one row. It reports false when the row carries neither a
// positive debit nor a positive credit; it never returns an amount <= 0.
func (c Classifier) Classify(row map[string]string) (core.Transaction, bool) {
	clean := normalize(row)

	tx := core.Transaction{Imported: true, Who: c.Owner}
	if d, err := core.ParseAmount(clean[ColDebit]); err == nil {
		tx.Amount, tx.Type = d, core.Debit
	} else if cr, err := core.ParseAmount(clean[ColCredit]); err == nil {
		tx.Amount, tx.Type = cr, core.Credit
	} else {
		return core.Transaction{}, false
	}

	tx.Note = strings.TrimSpace(clean[ColComment])
	if tx.Note == "" {
		tx.Note = DefaultNote
	}
	tx.Category = Categorize(c.Rules, tx.Note)

	now := c.now()
	tx.CreatedAt = now
	tx.Date = ParseStatementDate(clean[ColDateTime], now)
	return tx, true
}

// ParseStatementDate reduces a statement timestamp to its date, falling back
// to the date of now.
func ParseStatementDate(s string, now time.Time) core.Date {
	s = strings.Join(strings.Fields(s), " ")
	if s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return core.DateOf(t)
			}
		}
	}
	return core.DateOf(now)
}

// normalize folds column names. When two columns fold to the same name the
// first non-empty value in sorted raw-name order wins, so the result never
// depends on map iteration.
func normalize(row map[string]string) map[string]string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make(map[string]string, len(row))
	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		if prev, ok := out[name]; ok && strings.TrimSpace(prev) != "" {
			continue
		}
		out[name] = row[k]
	}
	return out
}
