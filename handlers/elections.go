// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/store"
)

type ElectionHandler struct {
	store *store.Store
	cfg   cliparse.Config
}

func NewElectionHandler(s *store.Store, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{store: s, cfg: cfg}
}

// CreateElection handles POST /api/elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}

	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	e, err := h.store.CreateElection(r.Context(), req)
	if err != nil {
		storeError(w, r, err, "create election")
		return
	}

	slog.Info("election created", "election_id", e.ID, "type", e.Type)
	middleware.JSONResponse(w, http.StatusCreated, e)
}

// ListElections handles GET /api/elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.store.ListElections(r.Context())
	if err != nil {
		storeError(w, r, err, "list elections")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, elections)
}

// GetElection handles GET /api/elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.withEntries(r, id)
	if err != nil {
		storeError(w, r, err, "get election")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// AddCandidate handles POST /api/elections/{id}/candidates
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	if err := h.store.AddCandidateToElection(r.Context(), id, req.CandidateID); err != nil {
		storeError(w, r, err, "add candidate")
		return
	}
	slog.Info("candidate added to election", "election_id", id, "candidate_id", req.CandidateID)

	h.respondEntries(w, r, id)
}

// AddTicket handles POST /api/elections/{id}/tickets
func (h *ElectionHandler) AddTicket(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.AddTicketRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.TicketID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ticket_id is required")
		return
	}

	if err := h.store.AddTicketToElection(r.Context(), id, req.TicketID); err != nil {
		storeError(w, r, err, "add ticket")
		return
	}
	slog.Info("ticket added to election", "election_id", id, "ticket_id", req.TicketID)

	h.respondEntries(w, r, id)
}

func (h *ElectionHandler) respondEntries(w http.ResponseWriter, r *http.Request, id int64) {
	resp, err := h.withEntries(r, id)
	if err != nil {
		storeError(w, r, err, "get election")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *ElectionHandler) withEntries(r *http.Request, id int64) (models.ElectionWithEntries, error) {
	ctx := r.Context()
	var resp models.ElectionWithEntries

	e, err := h.store.GetElection(ctx, id)
	if err != nil {
		return resp, err
	}
	resp.Election = e

	if resp.Candidates, err = h.store.ElectionCandidates(ctx, id); err != nil {
		return resp, err
	}
	if resp.Tickets, err = h.store.ElectionTickets(ctx, id); err != nil {
		return resp, err
	}

	m, err := h.store.GetMapping(ctx, models.KindElection, id)
	switch {
	case err == nil:
		resp.Mapping = &m
	case !errors.Is(err, store.ErrNotFound):
		return resp, err
	}
	return resp, nil
}
