// Package http exposes the ledger as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies and the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetledger/internal/core"
	applog "fleetledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for writing JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a builder with a 200 status and no body.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value to encode. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. Encoding failures after the header is out can
// only be logged.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", "error", err)
		writeErrorBody(w, http.StatusInternalServerError, errorBody{
			Error: "Internal server error",
			Type:  applog.ErrorTypeInternal,
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error  string            `json:"error"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
}

// requestError is a malformed request: undecodable JSON or a struct that
// fails field validation.
type requestError struct {
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string { return e.msg }

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case core.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error body. Internal failures are logged
// with their cause and reported without it.
func WriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error(), Type: applog.ErrorType(err)}

	var re *requestError
	if errors.As(err, &re) {
		body.Type = applog.ErrorTypeValidation
		body.Fields = re.fields
	}

	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, nil)
		body.Error = "Internal server error"
	}
	writeErrorBody(w, status, body)
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	payload, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}
