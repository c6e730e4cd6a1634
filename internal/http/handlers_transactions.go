package http

import (
	"net/http"

	applog "fleetledger/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), req.toInput())
	if err != nil {
		WriteError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).
		Write(w, r)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w, r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := s.ledger.ListTransactions(r.Context(), q.Get("vehicleId"), q.Get("month"))
	if err != nil {
		WriteError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(txs).Write(w, r)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, applog.OpUpdate, err)
		return
	}

	tx, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		WriteError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w, r)
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w, r)
}
