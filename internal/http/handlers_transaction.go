package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/form"
	applog "fintrack/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.List(r.Context(), currentUser(r), parseCriteria(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	fields, err := parseTransactionFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireFields(fields); err != nil {
		writeError(w, r, err)
		return
	}

	methods, err := s.methodsFor(ctx, user, fields.PaymentGroup)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := form.Check(fields, methods); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := fields.Input(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.CreateTransaction(ctx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.LogTransactionSaved(ctx, applog.OpCreate, tx.ID, tx.Name, tx.Amount.Cents, string(tx.Type), tx.Category)
	writeJSON(w, http.StatusCreated, tx)
}

// methodsFor returns the methods of one of user's groups for form checks.
func (s *Server) methodsFor(ctx context.Context, user, groupID string) ([]core.PaymentMethod, error) {
	_, methods, err := s.svc.PaymentGroup(ctx, user, groupID)
	if core.IsNotFound(err) {
		return nil, &core.ValidationError{Field: "paymentGroup", Message: "Payment group not found"}
	}
	return methods, err
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patch, err := parseTransactionPatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.UpdateTransaction(ctx, currentUser(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.LogTransactionSaved(ctx, applog.OpUpdate, tx.ID, tx.Name, tx.Amount.Cents, string(tx.Type), tx.Category)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteTransaction(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogTransactionDeleted(r.Context(), id)
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}

func handleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter.Tabs())
}
