package http

import (
	"context"
	"net/http"

	applog "fleetledger/internal/log"
)

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	removed, err := s.ledger.DeleteVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, applog.OpCascade, err)
		return
	}
	NewJSONResponse().
		Body(map[string]int64{"deletedTransactions": removed}).
		Write(w, r)
}

func (s *Server) handleProfitability(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r.URL.Query())
	if err != nil {
		WriteError(w, r, applog.OpSummarize, err)
		return
	}
	summary, err := s.ledger.GetProfitability(r.Context(), r.PathValue("id"), asOf)
	if err != nil {
		WriteError(w, r, applog.OpSummarize, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w, r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asOf, err := parseAsOf(q)
	if err != nil {
		WriteError(w, r, applog.OpDashboard, err)
		return
	}
	dash, err := s.ledger.GetDashboard(r.Context(), parseVehicleIDs(q), asOf)
	if err != nil {
		WriteError(w, r, applog.OpDashboard, err)
		return
	}
	NewJSONResponse().Body(dash).Write(w, r)
}

func (s *Server) handleDashboardSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.dashboard).Write(w, r)
}

// handleUpsert registers a reference record. Repeating the call is harmless.
func (s *Server) handleUpsert(upsert func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := upsert(r.Context(), id); err != nil {
			WriteError(w, r, applog.OpCreate, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w, r)
	}
}
