// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/store"
)

type CandidateHandler struct {
	store *store.Store
	cfg   cliparse.Config
}

func NewCandidateHandler(s *store.Store, cfg cliparse.Config) *CandidateHandler {
	return &CandidateHandler{store: s, cfg: cfg}
}

// CreateCandidate handles POST /api/candidates
func (h *CandidateHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}

	var req models.CreateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.store.CreateCandidate(r.Context(), req)
	if err != nil {
		storeError(w, r, err, "create candidate")
		return
	}

	slog.Info("candidate created", "candidate_id", c.ID, "faculty", c.Faculty)
	middleware.JSONResponse(w, http.StatusCreated, c)
}

// ListCandidates handles GET /api/candidates
func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.store.ListCandidates(r.Context())
	if err != nil {
		storeError(w, r, err, "list candidates")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// GetCandidate handles GET /api/candidates/{id}
func (h *CandidateHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetCandidate(r.Context(), id)
	if err != nil {
		storeError(w, r, err, "get candidate")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, c)
}

// CreateTicket handles POST /api/tickets
func (h *CandidateHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}

	var req models.CreateTicketRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.PresidentID <= 0 || req.VicePresidentID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "president_id and vice_president_id are required")
		return
	}

	t, err := h.store.CreateTicket(r.Context(), req)
	if err != nil {
		storeError(w, r, err, "create ticket")
		return
	}

	slog.Info("ticket created", "ticket_id", t.ID, "president_id", t.PresidentID, "vice_president_id", t.VicePresidentID)
	middleware.JSONResponse(w, http.StatusCreated, t)
}
