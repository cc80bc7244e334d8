package http

import (
	"net/http"

	"duoledger/internal/core"
	applog "duoledger/internal/log"
)

type budgetRequest struct {
	Allocations map[string]int64 `json:"allocations"`
}

// handleGetBudget returns the budget of one cycle; for ALL it is the sum of
// the year's cycle budgets.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	key, err := parseCyclePath(r)
	if err != nil {
		s.fail(w, r, applog.OpSummary, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(key, s.views.Budget(key))).Write(w)
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	key, err := parseCyclePath(r)
	if err != nil {
		s.fail(w, r, applog.OpUpsert, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpUpsert, err)
		return
	}

	alloc := make(map[core.Person]int64, len(req.Allocations))
	for who, v := range req.Allocations {
		alloc[core.Person(sanitizeInput(who))] = v
	}
	b, err := s.ledger.UpsertBudget(r.Context(), key, alloc)
	if err != nil {
		s.fail(w, r, applog.OpUpsert, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(key, b)).Write(w)
}
