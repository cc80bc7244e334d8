package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"duoledger/internal/core"
	"duoledger/internal/store"
)

// Document field names.
const (
	FieldAmount      = "amount"
	FieldType        = "type"
	FieldCategory    = "category"
	FieldNote        = "note"
	FieldDate        = "date"
	FieldWho         = "who"
	FieldCreatedAt   = "createdAt"
	FieldImported    = "imported"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldAllocations = "allocations"
	FieldText        = "text"
	FieldAuthor      = "author"
)

// TimestampLayout is fixed width so stored timestamps sort correctly as text.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

var ErrMalformedRecord = errors.New("malformed record")

// Collections names the three collections the ledger uses.
type Collections struct {
	Transactions string
	Budgets      string
	Notes        string
}

func CollectionNames(prefix string) Collections {
	return Collections{
		Transactions: prefix + "transactions",
		Budgets:      prefix + "budgets",
		Notes:        prefix + "notes",
	}
}

func EncodeTransaction(tx core.Transaction) store.Fields {
	return store.Fields{
		FieldAmount:    core.FormatAmount(tx.Amount),
		FieldType:      string(tx.Type),
		FieldCategory:  string(tx.Category),
		FieldNote:      tx.Note,
		FieldDate:      tx.Date.String(),
		FieldWho:       string(tx.Who),
		FieldCreatedAt: tx.CreatedAt.UTC().Format(TimestampLayout),
		FieldImported:  tx.Imported,
	}
}

// DecodeTransaction accepts amounts stored as strings or numbers. A record
// without a positive amount is rejected; a bad date decodes as zero so the
// record stays visible but never lands in a cycle.
func DecodeTransaction(d store.Document) (core.Transaction, error) {
	amount, err := toDecimal(d.Fields[FieldAmount])
	if err != nil || !amount.IsPositive() {
		return core.Transaction{}, fmt.Errorf("%w: %s amount %v", ErrMalformedRecord, d.ID, d.Fields[FieldAmount])
	}

	tx := core.Transaction{
		ID:       d.ID,
		Amount:   amount,
		Type:     core.ParseTxType(str(d.Fields[FieldType])),
		Category: core.ParseCategory(str(d.Fields[FieldCategory])),
		Note:     str(d.Fields[FieldNote]),
		Who:      core.Person(str(d.Fields[FieldWho])),
		Imported: d.Fields[FieldImported] == true,
	}
	tx.Date, _ = core.ParseDate(str(d.Fields[FieldDate]))
	tx.CreatedAt = parseTime(str(d.Fields[FieldCreatedAt]))
	return tx, nil
}

// BudgetID is the document id of a cycle's budget: "2025-01" for month 0.
func BudgetID(key CycleKey) string {
	return fmt.Sprintf("%04d-%02d", key.Year, key.Month+1)
}

func ParseBudgetID(id string) (CycleKey, error) {
	y, m, ok := strings.Cut(id, "-")
	if !ok {
		return CycleKey{}, fmt.Errorf("%w: budget id %q", ErrInvalidCycle, id)
	}
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	key := CycleKey{Year: year, Month: month - 1}
	if err1 != nil || err2 != nil || !key.Valid() || key.IsAll() {
		return CycleKey{}, fmt.Errorf("%w: budget id %q", ErrInvalidCycle, id)
	}
	return key, nil
}

func EncodeBudget(b core.Budget) store.Fields {
	alloc := make(map[string]any, len(b.Allocations))
	for p, v := range b.Allocations {
		alloc[string(p)] = v
	}
	return store.Fields{
		FieldYear:        b.Year,
		FieldMonth:       b.Month,
		FieldAllocations: alloc,
	}
}

func DecodeBudget(d store.Document) (core.Budget, error) {
	key, err := ParseBudgetID(d.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{Year: key.Year, Month: key.Month, Allocations: map[core.Person]int64{}}
	raw, _ := d.Fields[FieldAllocations].(map[string]any)
	if raw == nil {
		if f, ok := d.Fields[FieldAllocations].(store.Fields); ok {
			raw = f
		}
	}
	for p, v := range raw {
		n, err := toInt64(v)
		if err != nil {
			return core.Budget{}, fmt.Errorf("%w: budget %s allocation for %s", ErrMalformedRecord, d.ID, p)
		}
		b.Allocations[core.Person(p)] = n
	}
	return b, nil
}

// BudgetFor picks the budget of key out of a budget snapshot. A missing
// budget means zero allocations. For an ALL key the year's cycle budgets are
// summed per person.
func BudgetFor(budgets []core.Budget, key CycleKey) core.Budget {
	out := core.Budget{Year: key.Year, Month: key.Month, Allocations: map[core.Person]int64{}}
	for _, b := range budgets {
		if b.Year != key.Year {
			continue
		}
		if key.IsAll() {
			for p, v := range b.Allocations {
				out.Allocations[p] += v
			}
			continue
		}
		if b.Month == key.Month {
			return b
		}
	}
	return out
}

func EncodeNote(n core.Note) store.Fields {
	return store.Fields{
		FieldText:      n.Text,
		FieldAuthor:    n.Author,
		FieldCreatedAt: n.CreatedAt.UTC().Format(TimestampLayout),
	}
}

func DecodeNote(d store.Document) (core.Note, error) {
	text := str(d.Fields[FieldText])
	if strings.TrimSpace(text) == "" {
		return core.Note{}, fmt.Errorf("%w: note %s has no text", ErrMalformedRecord, d.ID)
	}
	return core.Note{
		ID:        d.ID,
		Text:      text,
		Author:    str(d.Fields[FieldAuthor]),
		CreatedAt: parseTime(str(d.Fields[FieldCreatedAt])),
	}, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
}

func toInt64(v any) (int64, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %s", d)
	}
	return d.IntPart(), nil
}
