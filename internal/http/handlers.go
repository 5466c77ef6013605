package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/session"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, session.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Analytics(r.Context(), currentUser(r), parseCriteria(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListPaymentGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.ListPaymentGroups(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.PaymentGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreatePaymentGroup(w http.ResponseWriter, r *http.Request) {
	in, err := parsePaymentGroup(r, currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.CreatePaymentGroup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type paymentGroupResponse struct {
	Group   core.PaymentGroup    `json:"group"`
	Methods []core.PaymentMethod `json:"methods"`
}

func (s *Server) handleGetPaymentGroup(w http.ResponseWriter, r *http.Request) {
	g, methods, err := s.svc.PaymentGroup(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentGroupResponse{Group: g, Methods: methods})
}

func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	_, methods, err := s.svc.PaymentGroup(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}

func (s *Server) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	in, err := parsePaymentMethod(r, currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.CreatePaymentMethod(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
