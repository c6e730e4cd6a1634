package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetledger/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/x/1").
		Body(map[string]any{"id": "1", "amount": core.MoneyFromCents(1050)}).
		Write(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Location") != "/x/1" || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", rec.Header())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"amount":10.50,"id":"1"}` {
		t.Errorf("body = %s", got)
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"request", &requestError{msg: "bad"}, http.StatusBadRequest},
		{"referential", &core.ReferentialError{Entity: core.EntityVehicle, ID: "x"}, http.StatusUnprocessableEntity},
		{"range", &core.RangeError{Message: "no"}, http.StatusUnprocessableEntity},
		{"wrapped not found", fmt.Errorf("load: %w", &core.NotFoundError{Entity: core.EntityVehicle, ID: "x"}), http.StatusNotFound},
		{"storage", core.NewStorageError("list", errors.New("disk")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "list", core.NewStorageError("list", errors.New("database is locked")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "locked") {
		t.Errorf("internal cause leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"type":"internal_error"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
