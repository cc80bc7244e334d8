package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"duoledger/internal/cache"
	"duoledger/internal/config"
	"duoledger/internal/core"
	"duoledger/internal/ledger"
	"duoledger/internal/mirror"
	"duoledger/internal/store"
)

// CycleView is everything the UI shows for one cycle. It is derived from one
// pair of snapshots and must be treated as read-only.
type CycleView struct {
	Key          ledger.CycleKey
	Start        time.Time
	End          time.Time
	Transactions []core.Transaction
	Budget       core.Budget
	Summary      ledger.Summary
	Breakdown    []core.CategoryAmount

	TransactionsVersion uint64
	BudgetsVersion      uint64
}

// ViewService owns the read side: one mirror per collection, partitioned and
// aggregated on demand.
type ViewService struct {
	txs     *mirror.Mirror[core.Transaction]
	budgets *mirror.Mirror[core.Budget]
	notes   *mirror.Mirror[core.Note]

	startDay int
	people   []core.Person
	views    cache.Cache[CycleView]
	now      func() time.Time
	logger   *slog.Logger
}

// OpenViews subscribes to the three ledger collections. views may be nil to
// disable caching.
func OpenViews(ctx context.Context, sub store.Subscriber, cols ledger.Collections, cfg config.Ledger, views cache.Cache[CycleView], logger *slog.Logger) (*ViewService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	txs, err := mirror.Open(ctx, sub, cols.Transactions, ledger.FieldCreatedAt, ledger.DecodeTransaction, logger)
	if err != nil {
		return nil, err
	}
	budgets, err := mirror.Open(ctx, sub, cols.Budgets, "", ledger.DecodeBudget, logger)
	if err != nil {
		txs.Close()
		return nil, err
	}
	notes, err := mirror.Open(ctx, sub, cols.Notes, ledger.FieldCreatedAt, ledger.DecodeNote, logger)
	if err != nil {
		txs.Close()
		budgets.Close()
		return nil, err
	}

	return &ViewService{
		txs:      txs,
		budgets:  budgets,
		notes:    notes,
		startDay: ledger.NormalizeStartDay(cfg.CycleStartDay),
		people:   cfg.Household.Members(),
		views:    views,
		now:      time.Now,
		logger:   logger.With("component", "views"),
	}, nil
}

// Ready reports whether every mirror has received its first snapshot.
func (v *ViewService) Ready() bool {
	return v.txs.Current().Version > 0 && v.budgets.Current().Version > 0 && v.notes.Current().Version > 0
}

func (v *ViewService) StartDay() int { return v.startDay }

// CurrentCycle is the cycle containing today.
func (v *ViewService) CurrentCycle() ledger.CycleKey {
	return ledger.CycleOf(v.now(), v.startDay)
}

// Transactions returns the mirrored transactions, newest first.
func (v *ViewService) Transactions() mirror.Snapshot[core.Transaction] {
	return v.txs.Current()
}

func (v *ViewService) TransactionUpdates() <-chan mirror.Snapshot[core.Transaction] {
	return v.txs.Updates()
}

func (v *ViewService) Notes() mirror.Snapshot[core.Note] {
	return v.notes.Current()
}

// Budget returns the stored budget of key, or an empty one.
func (v *ViewService) Budget(key ledger.CycleKey) core.Budget {
	return ledger.BudgetFor(v.budgets.Current().Records, key)
}

// Cycle partitions the current snapshot and aggregates it against the
// cycle's budget. Results are cached per snapshot version pair.
func (v *ViewService) Cycle(key ledger.CycleKey) (CycleView, error) {
	if !key.Valid() {
		return CycleView{}, fmt.Errorf("%w: %s", ledger.ErrInvalidCycle, key)
	}

	txs := v.txs.Current()
	budgets := v.budgets.Current()
	cacheKey := fmt.Sprintf("%d/%d/%d/%s", txs.Version, budgets.Version, v.startDay, key)
	if v.views != nil {
		if view, ok := v.views.Get(cacheKey); ok {
			return view, nil
		}
	}

	subset := ledger.Partition(txs.Records, key, v.startDay)
	budget := ledger.BudgetFor(budgets.Records, key)
	summary := ledger.Aggregate(subset, budget, v.people)
	start, end := ledger.Window(key, v.startDay)

	view := CycleView{
		Key:                 key,
		Start:               start,
		End:                 end,
		Transactions:        subset,
		Budget:              budget,
		Summary:             summary,
		Breakdown:           ledger.SortedBreakdown(summary.CategoryBreakdown),
		TransactionsVersion: txs.Version,
		BudgetsVersion:      budgets.Version,
	}
	if v.views != nil {
		v.views.Set(cacheKey, view)
	}
	return view, nil
}

// Close tears down all subscriptions. Views already handed out stay valid.
func (v *ViewService) Close() {
	v.txs.Close()
	v.budgets.Close()
	v.notes.Close()
}
