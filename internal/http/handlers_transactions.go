package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	applog "duoledger/internal/log"
	"duoledger/internal/services"
)

// cycleView resolves the requested cycle, defaulting to the current one.
func (s *Server) cycleView(r *http.Request) (services.CycleView, error) {
	key, err := ParseCycleParams(r.URL.Query(), s.views.CurrentCycle())
	if err != nil {
		return services.CycleView{}, err
	}
	return s.views.Cycle(key)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := s.cycleView(r)
	if err != nil {
		s.fail(w, r, applog.OpSummary, err)
		return
	}
	NewJSONResponse().Body(toSummaryJSON(view, s.household)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	view, err := s.cycleView(r)
	if err != nil {
		s.fail(w, r, applog.OpSummary, err)
		return
	}
	NewJSONResponse().Body(struct {
		cycleJSON
		Version      uint64            `json:"version"`
		Transactions []transactionJSON `json:"transactions"`
	}{
		cycleJSON:    toCycleJSON(view),
		Version:      view.TransactionsVersion,
		Transactions: toTransactionsJSON(view.Transactions),
	}).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	tx, err := req.toTransaction(time.Now())
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	saved, err := s.ledger.AddTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsAdded, 1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionAdded(r.Context(), string(saved.Who), string(saved.Type), string(saved.Category))

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+saved.ID).
		Body(toTransactionJSON(saved)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		ConfirmationRequired("deleting a transaction needs confirm=true", 1).Write(w)
		return
	}
	if err := s.ledger.WithConfirmer(services.Always(true)).DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	atomic.AddInt64(&s.metrics.deleted, 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type bulkDeleteRequest struct {
	IDs     []string `json:"ids"`
	Confirm bool     `json:"confirm"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpBulkDelete, err)
		return
	}

	sel := services.NewSelection(req.IDs...)
	confirm := services.ConfirmFunc(func(context.Context, string, int) bool { return req.Confirm })
	n, err := s.ledger.WithConfirmer(confirm).BulkDelete(r.Context(), sel)
	switch {
	case errors.Is(err, services.ErrNotConfirmed):
		ConfirmationRequired("bulk delete needs confirm=true", sel.Len()).Write(w)
		return
	case err != nil:
		s.fail(w, r, applog.OpBulkDelete, err)
		return
	}
	atomic.AddInt64(&s.metrics.deleted, int64(n))
	NewJSONResponse().Body(map[string]int{"deleted": n}).Write(w)
}
