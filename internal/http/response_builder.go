// Package http serves the ledger's JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"duoledger/internal/auth"
	"duoledger/internal/core"
	"duoledger/internal/importer"
	"duoledger/internal/ledger"
	"duoledger/internal/services"
	"duoledger/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Rows is set on 428 import responses so the caller can show the count.
	Rows *int `json:"rows,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Code: code})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", message)
}

// ConfirmationRequired creates a 428 response carrying the number of rows
// or records the caller is about to change.
func ConfirmationRequired(message string, count int) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusPreconditionRequired).
		Body(errorBody{Error: message, Code: "confirmation_required", Rows: &count})
}

// statusFor maps a domain error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidPIN), errors.Is(err, auth.ErrWrongPIN):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errBadRequest),
		errors.Is(err, services.ErrEmptyImport),
		errors.Is(err, importer.ErrNoHeader):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrAllMonthsBudget):
		return http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrNotConfirmed):
		return http.StatusPreconditionRequired, "confirmation_required"
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrUnknownPerson),
		errors.Is(err, core.ErrEmptyNote),
		errors.Is(err, core.ErrNegativeAllocation),
		errors.Is(err, core.ErrInvalidBudgetPeriod),
		errors.Is(err, ledger.ErrInvalidCycle):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, services.ErrCommitFailed), errors.Is(err, store.ErrClosed):
		return http.StatusBadGateway, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// ErrorFrom builds the response for err. Store failures only expose the
// generic notice.
func ErrorFrom(err error) *JSONResponseBuilder {
	status, code := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusBadGateway:
		msg = services.ErrCommitFailed.Error()
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	return ErrorResponse(status, code, msg)
}
