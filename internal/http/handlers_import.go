package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	applog "duoledger/internal/log"
	"duoledger/internal/services"
)

type importJSON struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
}

// handleImport ingests a statement export. Without ?confirm=true nothing is
// written and the response is 428 carrying the row count, so the caller can
// ask the user and retry.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := statementBody(w, r)
	if err != nil {
		s.fail(w, r, applog.OpImport, err)
		return
	}
	defer body.Close()

	ok := confirmed(r)
	confirm := services.ConfirmFunc(func(context.Context, string, int) bool { return ok })
	res, err := s.ledger.WithConfirmer(confirm).ImportCSV(r.Context(), body)
	switch {
	case errors.Is(err, services.ErrNotConfirmed):
		ConfirmationRequired("import needs confirm=true", res.Rows).Write(w)
		return
	case err != nil:
		s.fail(w, r, applog.OpImport, err)
		return
	}

	atomic.AddInt64(&s.metrics.importedRows, int64(res.Accepted))
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogImport(r.Context(), res.Rows, res.Accepted)

	status := http.StatusCreated
	if res.Accepted == 0 {
		status = http.StatusOK
	}
	NewJSONResponse().Status(status).Body(importJSON{Rows: res.Rows, Accepted: res.Accepted}).Write(w)
}
