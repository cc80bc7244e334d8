package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"duoledger/internal/config"
	"duoledger/internal/core"
	"duoledger/internal/ledger"
	"duoledger/internal/store"
	"duoledger/internal/store/memory"
)

var (
	testCols   = ledger.CollectionNames("")
	testLedger = config.Ledger{
		CycleStartDay:  20,
		Household:      core.Household{A: "Ali", B: "Fajar"},
		StatementOwner: "Fajar",
	}
	fixedNow = time.Date(2025, 3, 14, 18, 45, 0, 0, time.UTC)
)

// countingStore records remote calls and can be told to fail batch commits.
type countingStore struct {
	store.Store
	calls      atomic.Int32
	failCommit bool
}

func (c *countingStore) Insert(ctx context.Context, col string, f store.Fields) (string, error) {
	c.calls.Add(1)
	return c.Store.Insert(ctx, col, f)
}

func (c *countingStore) SetDoc(ctx context.Context, col, id string, f store.Fields) error {
	c.calls.Add(1)
	return c.Store.SetDoc(ctx, col, id, f)
}

func (c *countingStore) Delete(ctx context.Context, col, id string) error {
	c.calls.Add(1)
	return c.Store.Delete(ctx, col, id)
}

func (c *countingStore) Commit(ctx context.Context, ops []store.Op) error {
	c.calls.Add(1)
	if c.failCommit {
		return errors.New("connection reset")
	}
	return c.Store.Commit(ctx, ops)
}

func newTestService(t *testing.T, confirm Confirmer) (*LedgerService, *memory.Store, *countingStore) {
	t.Helper()
	mem := memory.New(nil)
	t.Cleanup(func() { mem.Close() })
	cs := &countingStore{Store: mem}
	svc := NewLedgerService(cs, testCols, testLedger, nil, confirm, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, mem, cs
}

func debit(amount, who string) core.Transaction {
	return core.Transaction{
		Amount:   decimal.RequireFromString(amount),
		Type:     core.Debit,
		Category: core.Groceries,
		Date:     core.NewDate(2025, 3, 1),
		Who:      core.Person(who),
	}
}

func TestAddTransactionValidation(t *testing.T) {
	svc, _, cs := newTestService(t, Always(true))
	ctx := context.Background()

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", debit("0", "Ali"), core.ErrInvalidAmount},
		{"negative amount", debit("-5", "Ali"), core.ErrInvalidAmount},
		{"bad type", func() core.Transaction { tx := debit("5", "Ali"); tx.Type = "refund"; return tx }(), core.ErrInvalidType},
		{"missing date", func() core.Transaction { tx := debit("5", "Ali"); tx.Date = core.Date{}; return tx }(), core.ErrInvalidDate},
		{"stranger", debit("5", "Bob"), core.ErrUnknownPerson},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddTransaction(ctx, tt.tx); !errors.Is(err, tt.want) {
				t.Fatalf("AddTransaction() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := cs.calls.Load(); n != 0 {
		t.Fatalf("rejected writes must not reach the store, got %d calls", n)
	}
}

func TestAddTransactionDefaults(t *testing.T) {
	svc, mem, _ := newTestService(t, Always(true))
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, debit("1200.50", "Ali"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.ID == "" || tx.Note != "Groceries" || !tx.CreatedAt.Equal(fixedNow) {
		t.Fatalf("defaults not filled: %+v", tx)
	}

	credit := debit("5000", "Fajar")
	credit.Type = core.Credit
	credit.Note = "Salary"
	got, err := svc.AddTransaction(ctx, credit)
	if err != nil || got.Category != core.Other || got.Note != "Salary" {
		t.Fatalf("credit: %+v %v", got, err)
	}
	if mem.Len(testCols.Transactions) != 2 {
		t.Fatalf("expected 2 stored transactions")
	}
}

func seed(t *testing.T, svc *LedgerService, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		tx, err := svc.AddTransaction(context.Background(), debit("100", "Ali"))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids[i] = tx.ID
	}
	return ids
}

func TestDeleteTransaction(t *testing.T) {
	svc, mem, _ := newTestService(t, Always(false))
	ctx := context.Background()
	ids := seed(t, svc, 1)

	if err := svc.DeleteTransaction(ctx, ids[0]); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	confirmed := svc.WithConfirmer(Always(true))
	if err := confirmed.DeleteTransaction(ctx, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mem.Len(testCols.Transactions) != 0 {
		t.Fatalf("transaction not removed")
	}
	if err := confirmed.DeleteTransaction(ctx, ids[0]); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestBulkDeleteToleratesAbsentID(t *testing.T) {
	var prompted int
	svc, mem, _ := newTestService(t, ConfirmFunc(func(_ context.Context, _ string, n int) bool {
		prompted = n
		return true
	}))
	ids := seed(t, svc, 3)

	sel := NewSelection(ids[0], ids[1], "already-gone")
	n, err := svc.BulkDelete(context.Background(), sel)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 3 || prompted != 3 {
		t.Fatalf("attempted = %d, prompted = %d", n, prompted)
	}
	if mem.Len(testCols.Transactions) != 1 {
		t.Fatalf("expected only the unselected transaction to remain")
	}
	if sel.Len() != 0 {
		t.Fatalf("selection should be cleared on success")
	}
}

func TestBulkDeleteIsAllOrNothing(t *testing.T) {
	svc, mem, cs := newTestService(t, Always(true))
	ids := seed(t, svc, 3)
	cs.failCommit = true

	sel := NewSelection(ids...)
	sel.Add("already-gone")
	n, err := svc.BulkDelete(context.Background(), sel)
	if !errors.Is(err, ErrCommitFailed) || n != 0 {
		t.Fatalf("expected ErrCommitFailed, got %d %v", n, err)
	}
	if mem.Len(testCols.Transactions) != 3 {
		t.Fatalf("failed batch must not remove anything")
	}
	if sel.Len() != 4 {
		t.Fatalf("selection must survive a failed batch, got %d", sel.Len())
	}
}

func TestBulkDeleteEmptySelection(t *testing.T) {
	svc, _, cs := newTestService(t, Always(true))
	for name, sel := range map[string]*Selection{"nil": nil, "empty": NewSelection()} {
		n, err := svc.BulkDelete(context.Background(), sel)
		if err != nil || n != 0 {
			t.Fatalf("%s selection: n=%d err=%v", name, n, err)
		}
	}
	if cs.calls.Load() != 0 {
		t.Fatalf("empty selection must not reach the store, got %d calls", cs.calls.Load())
	}
}

func TestBulkDeleteNotConfirmed(t *testing.T) {
	svc, mem, _ := newTestService(t, Always(false))
	ids := seed(t, svc, 2)
	sel := NewSelection(ids...)
	if _, err := svc.BulkDelete(context.Background(), sel); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if mem.Len(testCols.Transactions) != 2 || sel.Len() != 2 {
		t.Fatalf("nothing should change without confirmation")
	}
	if n, err := svc.BulkDelete(context.Background(), NewSelection()); n != 0 || err != nil {
		t.Fatalf("empty selection: %d %v", n, err)
	}
}

func TestImportBatch(t *testing.T) {
	var prompted int
	svc, mem, _ := newTestService(t, ConfirmFunc(func(_ context.Context, _ string, n int) bool {
		prompted = n
		return true
	}))
	ctx := context.Background()

	rows := []map[string]string{
		{"Debit": "1,200", "Comment": "Lunch at Cafe"},
		{"Debit": "0", "Credit": "5,000", "Comment": "Salary"},
		{"Debit": "", "Credit": "", "Comment": "Opening balance"},
	}
	res, err := svc.ImportBatch(ctx, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res != (ImportResult{Rows: 3, Accepted: 2}) || prompted != 3 {
		t.Fatalf("result = %+v, prompted = %d", res, prompted)
	}
	if mem.Len(testCols.Transactions) != 2 {
		t.Fatalf("expected 2 stored transactions")
	}

	if _, err := svc.ImportBatch(ctx, nil); !errors.Is(err, ErrEmptyImport) {
		t.Fatalf("expected ErrEmptyImport, got %v", err)
	}

	res, err = svc.ImportBatch(ctx, []map[string]string{{"debit": "0"}})
	if err != nil || res.Accepted != 0 || mem.Len(testCols.Transactions) != 2 {
		t.Fatalf("no candidates should commit nothing: %+v %v", res, err)
	}
}

func TestImportBatchNotConfirmed(t *testing.T) {
	svc, mem, cs := newTestService(t, Always(false))
	res, err := svc.ImportBatch(context.Background(), []map[string]string{{"debit": "10"}})
	if !errors.Is(err, ErrNotConfirmed) || res.Rows != 1 {
		t.Fatalf("expected ErrNotConfirmed with row count, got %+v %v", res, err)
	}
	if mem.Len(testCols.Transactions) != 0 || cs.calls.Load() != 0 {
		t.Fatalf("unconfirmed import must not write")
	}
}

func TestUpsertBudget(t *testing.T) {
	svc, mem, cs := newTestService(t, Always(true))
	ctx := context.Background()

	if _, err := svc.UpsertBudget(ctx, ledger.CycleKey{Year: 2025, Month: ledger.AllMonths}, nil); !errors.Is(err, ledger.ErrAllMonthsBudget) {
		t.Fatalf("ALL budget: %v", err)
	}
	if _, err := svc.UpsertBudget(ctx, ledger.CycleKey{Year: 2025, Month: 0}, map[core.Person]int64{"Ali": -1}); !errors.Is(err, core.ErrNegativeAllocation) {
		t.Fatalf("negative: %v", err)
	}
	if _, err := svc.UpsertBudget(ctx, ledger.CycleKey{Year: 2025, Month: 12}, nil); !errors.Is(err, ledger.ErrInvalidCycle) {
		t.Fatalf("month 12: %v", err)
	}
	if cs.calls.Load() != 0 {
		t.Fatalf("rejected budgets must not reach the store")
	}

	key := ledger.CycleKey{Year: 2025, Month: 0}
	if _, err := svc.UpsertBudget(ctx, key, map[core.Person]int64{"Ali": 50000, "Fajar": 40000}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.UpsertBudget(ctx, key, map[core.Person]int64{"Ali": 10}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if mem.Len(testCols.Budgets) != 1 {
		t.Fatalf("budget key must be unique")
	}
}

func TestNotes(t *testing.T) {
	svc, mem, _ := newTestService(t, Always(true))
	ctx := context.Background()

	if _, err := svc.AddNote(ctx, "   ", "Ali"); !errors.Is(err, core.ErrEmptyNote) {
		t.Fatalf("blank note: %v", err)
	}
	n, err := svc.AddNote(ctx, " Buy milk ", "Ali")
	if err != nil || n.Text != "Buy milk" {
		t.Fatalf("add note: %+v %v", n, err)
	}
	if err := svc.DeleteNote(ctx, n.ID); err != nil || mem.Len(testCols.Notes) != 0 {
		t.Fatalf("delete note: %v", err)
	}
	if err := svc.DeleteNote(ctx, n.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSelectionToggle(t *testing.T) {
	sel := NewSelection("a")
	if sel.Toggle("a") || sel.Contains("a") {
		t.Fatalf("toggle should deselect")
	}
	if !sel.Toggle("b") || !sel.Contains("b") {
		t.Fatalf("toggle should select")
	}
	sel.Add("c")
	sel.Remove("b")
	if got := sel.IDs(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("ids = %v", got)
	}
}
