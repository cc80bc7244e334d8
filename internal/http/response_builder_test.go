package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duoledger/internal/auth"
	"duoledger/internal/core"
	"duoledger/internal/importer"
	"duoledger/internal/ledger"
	"duoledger/internal/services"
	"duoledger/internal/store"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated || w.Header().Get("X-Custom") != "value" {
		t.Fatalf("status=%d headers=%v", w.Code, w.Header())
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
		t.Errorf("no-content response wrote a body: %q", w.Body.String())
	}
}

func TestErrorFrom(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{auth.ErrWrongPIN, http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("%w: junk", errBadRequest), http.StatusBadRequest, "bad_request"},
		{services.ErrEmptyImport, http.StatusBadRequest, "bad_request"},
		{importer.ErrNoHeader, http.StatusBadRequest, "bad_request"},
		{store.ErrNotFound, http.StatusNotFound, "not_found"},
		{ledger.ErrAllMonthsBudget, http.StatusConflict, "conflict"},
		{services.ErrNotConfirmed, http.StatusPreconditionRequired, "confirmation_required"},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "validation"},
		{fmt.Errorf("%w: %q", core.ErrUnknownPerson, "Zed"), http.StatusUnprocessableEntity, "validation"},
		{fmt.Errorf("%w: %w", services.ErrCommitFailed, errors.New("disk full")), http.StatusBadGateway, "store_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFrom(tt.err).Write(w)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Fatalf("body = %s", w.Body.String())
			}
		})
	}
}

func TestErrorFromHidesStoreDetails(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFrom(fmt.Errorf("%w: %w", services.ErrCommitFailed, errors.New("dial tcp 10.0.0.5: refused"))).Write(w)
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("store detail leaked: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), services.ErrCommitFailed.Error()) {
		t.Fatalf("generic notice missing: %s", w.Body.String())
	}
}

func TestConfirmationRequired(t *testing.T) {
	w := httptest.NewRecorder()
	ConfirmationRequired("import needs confirm=true", 7).Write(w)
	if w.Code != http.StatusPreconditionRequired || !strings.Contains(w.Body.String(), `"rows":7`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
