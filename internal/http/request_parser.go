// Package http serves the ledger's JSON API.
//
// This file holds the helpers that turn request parameters and bodies into
// domain values.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"duoledger/internal/ledger"
)

const (
	maxJSONBody      = 1 << 20
	maxStatementBody = 10 << 20
)

var errBadRequest = errors.New("bad request")

// ParseCycleParams reads year and month from the query string. Missing
// values fall back to current; month accepts a 0-based index or ALL.
func ParseCycleParams(query url.Values, current ledger.CycleKey) (ledger.CycleKey, error) {
	key := current

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return ledger.CycleKey{}, fmt.Errorf("%w: year %q", ledger.ErrInvalidCycle, v)
		}
		key.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := ledger.ParseMonth(v)
		if err != nil {
			return ledger.CycleKey{}, err
		}
		key.Month = m
	}
	return key, nil
}

// parseCyclePath reads the {year} and {month} path values.
func parseCyclePath(r *http.Request) (ledger.CycleKey, error) {
	q := url.Values{}
	q.Set("year", r.PathValue("year"))
	q.Set("month", r.PathValue("month"))
	return ParseCycleParams(q, ledger.CycleKey{})
}

// confirmed reports whether the caller already confirmed a destructive
// operation through ?confirm=true.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// statementBody returns the uploaded statement: the multipart field "file"
// when the request is a form upload, the raw body otherwise.
func statementBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing statement file: %v", errBadRequest, err)
	}
	return file, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
