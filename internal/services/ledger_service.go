package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"duoledger/internal/config"
	"duoledger/internal/core"
	"duoledger/internal/importer"
	"duoledger/internal/ledger"
	"duoledger/internal/store"
)

var (
	ErrNotConfirmed = errors.New("operation not confirmed")
	ErrEmptyImport  = errors.New("import contains no rows")
	// ErrCommitFailed is the generic notice for any failed remote write.
	ErrCommitFailed = errors.New("could not save changes, please try again")
)

// ImportResult reports how many statement rows were read and how many of
// them became transactions.
type ImportResult struct {
	Rows     int
	Accepted int
}

// LedgerService is the only writer of ledger records. Every operation is
// validated before any remote call; the mirrors observe the result.
type LedgerService struct {
	store      store.Store
	cols       ledger.Collections
	household  core.Household
	classifier importer.Classifier
	confirm    Confirmer
	now        func() time.Time
	logger     *slog.Logger
}

func NewLedgerService(st store.Store, cols ledger.Collections, cfg config.Ledger, rules []importer.Rule, confirm Confirmer, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if confirm == nil {
		confirm = Always(false)
	}
	if rules == nil {
		rules = importer.DefaultRules()
	}
	return &LedgerService{
		store:      st,
		cols:       cols,
		household:  cfg.Household,
		classifier: importer.NewClassifier(rules, cfg.StatementOwner),
		confirm:    confirm,
		now:        time.Now,
		logger:     logger.With("component", "ledger"),
	}
}

// WithConfirmer returns a copy of the service that asks c instead.
func (s *LedgerService) WithConfirmer(c Confirmer) *LedgerService {
	cp := *s
	cp.confirm = c
	return &cp
}

func (s *LedgerService) stamp() time.Time {
	return s.now().UTC()
}

// AddTransaction validates tx, fills its defaults and stores it.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Type == core.Credit || !tx.Category.Valid() {
		tx.Category = core.Other
	}
	tx.Note = tx.DisplayNote()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.stamp()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !s.household.Contains(tx.Who) {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrUnknownPerson, tx.Who)
	}

	id, err := s.store.Insert(ctx, s.cols.Transactions, ledger.EncodeTransaction(tx))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to add transaction", "error", err)
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	tx.ID = id
	s.logger.InfoContext(ctx, "Transaction added", "id", id, "who", tx.Who, "type", tx.Type, "category", tx.Category)
	return tx, nil
}

// DeleteTransaction removes one transaction after confirmation.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return store.ErrNotFound
	}
	if !s.confirm.Confirm(ctx, "Delete this transaction?", 1) {
		return ErrNotConfirmed
	}
	if err := s.store.Delete(ctx, s.cols.Transactions, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		s.logger.ErrorContext(ctx, "Failed to delete transaction", "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// BulkDelete removes every selected transaction in one atomic batch and
// returns how many deletions were attempted. The selection is cleared only
// when the batch commits. A nil selection is empty.
func (s *LedgerService) BulkDelete(ctx context.Context, sel *Selection) (int, error) {
	if sel == nil {
		return 0, nil
	}
	ids := sel.IDs()
	if len(ids) == 0 {
		return 0, nil
	}
	if !s.confirm.Confirm(ctx, fmt.Sprintf("Delete %d transactions?", len(ids)), len(ids)) {
		return 0, ErrNotConfirmed
	}

	b := store.NewBatch(s.store)
	for _, id := range ids {
		b.Delete(s.cols.Transactions, id)
	}
	if err := b.Commit(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Bulk delete failed", "count", len(ids), "error", err)
		return 0, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	sel.Clear()
	s.logger.InfoContext(ctx, "Bulk delete committed", "count", len(ids))
	return len(ids), nil
}

// Candidates classifies rows without writing anything.
func (s *LedgerService) Candidates(rows []map[string]string) []core.Transaction {
	c := s.classifier
	stamp := s.stamp()
	c.Now = func() time.Time { return stamp }

	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if tx, ok := c.Classify(r); ok {
			out = append(out, tx)
		}
	}
	return out
}

// ImportBatch classifies rows, asks for confirmation with the row count and
// commits the accepted candidates as one batch. When no row is accepted
// nothing is written.
func (s *LedgerService) ImportBatch(ctx context.Context, rows []map[string]string) (ImportResult, error) {
	res := ImportResult{Rows: len(rows)}
	if len(rows) == 0 {
		return res, ErrEmptyImport
	}
	if !s.confirm.Confirm(ctx, fmt.Sprintf("Import %d rows?", len(rows)), len(rows)) {
		return res, ErrNotConfirmed
	}

	candidates := s.Candidates(rows)
	if len(candidates) == 0 {
		s.logger.InfoContext(ctx, "Import accepted no rows", "rows", len(rows))
		return res, nil
	}

	b := store.NewBatch(s.store)
	for _, tx := range candidates {
		b.Set(s.cols.Transactions, store.NewID(), ledger.EncodeTransaction(tx))
	}
	if err := b.Commit(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Import commit failed", "rows", len(rows), "error", err)
		return res, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	res.Accepted = len(candidates)
	s.logger.InfoContext(ctx, "Statement imported", "rows", res.Rows, "accepted", res.Accepted)
	return res, nil
}

// ImportCSV reads a statement export and imports it.
func (s *LedgerService) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := importer.ReadCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportBatch(ctx, rows)
}

// UpsertBudget replaces the budget of one concrete cycle.
func (s *LedgerService) UpsertBudget(ctx context.Context, key ledger.CycleKey, allocations map[core.Person]int64) (core.Budget, error) {
	if key.IsAll() {
		return core.Budget{}, ledger.ErrAllMonthsBudget
	}
	if !key.Valid() {
		return core.Budget{}, fmt.Errorf("%w: %s", ledger.ErrInvalidCycle, key)
	}

	b := core.Budget{Year: key.Year, Month: key.Month, Allocations: make(map[core.Person]int64, len(allocations))}
	for p, v := range allocations {
		if !s.household.Contains(p) {
			return core.Budget{}, fmt.Errorf("%w: %q", core.ErrUnknownPerson, p)
		}
		b.Allocations[p] = v
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	if err := s.store.SetDoc(ctx, s.cols.Budgets, ledger.BudgetID(key), ledger.EncodeBudget(b)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save budget", "cycle", key.String(), "error", err)
		return core.Budget{}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	s.logger.InfoContext(ctx, "Budget saved", "cycle", key.String())
	return b, nil
}

// AddNote posts a note to the shared board.
func (s *LedgerService) AddNote(ctx context.Context, text string, author core.Person) (core.Note, error) {
	n := core.Note{Text: strings.TrimSpace(text), Author: string(author), CreatedAt: s.stamp()}
	if err := n.Validate(); err != nil {
		return core.Note{}, err
	}
	if author != "" && !s.household.Contains(author) {
		return core.Note{}, fmt.Errorf("%w: %q", core.ErrUnknownPerson, author)
	}

	id, err := s.store.Insert(ctx, s.cols.Notes, ledger.EncodeNote(n))
	if err != nil {
		return core.Note{}, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	n.ID = id
	return n, nil
}

func (s *LedgerService) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.cols.Notes, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}
