// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/store"
)

type TokenHandler struct {
	store *store.Store
	cfg   cliparse.Config
}

func NewTokenHandler(s *store.Store, cfg cliparse.Config) *TokenHandler {
	return &TokenHandler{store: s, cfg: cfg}
}

// IssueToken handles POST /api/voting-tokens
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}

	var req models.IssueTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID <= 0 || req.StudentID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and student_id are required")
		return
	}

	token, err := auth.GenerateVotingToken()
	if err != nil {
		slog.Error("failed to generate voting token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue voting token")
		return
	}

	if err := h.store.IssueToken(r.Context(), req.ElectionID, req.StudentID, auth.HashToken(token, h.cfg.TokenSalt)); err != nil {
		storeError(w, r, err, "issue voting token")
		return
	}

	slog.Info("voting token issued", "election_id", req.ElectionID)
	middleware.JSONResponse(w, http.StatusCreated, models.IssueTokenResponse{
		Token:      token,
		ElectionID: req.ElectionID,
		StudentID:  req.StudentID,
	})
}

// VerifyToken handles POST /api/voting-tokens/verify
func (h *TokenHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseTokenRequest(w, r)
	if !ok {
		return
	}

	t, err := h.store.GetToken(r.Context(), req.ElectionID, auth.HashToken(req.Token, h.cfg.TokenSalt))
	if errors.Is(err, store.ErrNotFound) {
		middleware.JSONResponse(w, http.StatusOK, models.VerifyTokenResponse{ElectionID: req.ElectionID})
		return
	}
	if err != nil {
		storeError(w, r, err, "verify voting token")
		return
	}

	used := t.UsedAt != nil
	middleware.JSONResponse(w, http.StatusOK, models.VerifyTokenResponse{
		Valid:      !used,
		ElectionID: t.ElectionID,
		StudentID:  t.StudentID,
		Used:       used,
	})
}

// UseToken handles POST /api/voting-tokens/use
func (h *TokenHandler) UseToken(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseTokenRequest(w, r)
	if !ok {
		return
	}

	t, err := h.store.UseToken(r.Context(), req.ElectionID, auth.HashToken(req.Token, h.cfg.TokenSalt))
	if err != nil {
		storeError(w, r, err, "use voting token")
		return
	}

	slog.Info("voting token used", "election_id", t.ElectionID)
	middleware.JSONResponse(w, http.StatusOK, models.VerifyTokenResponse{
		Valid:      true,
		ElectionID: t.ElectionID,
		StudentID:  t.StudentID,
		Used:       true,
	})
}

func (h *TokenHandler) parseTokenRequest(w http.ResponseWriter, r *http.Request) (models.TokenRequest, bool) {
	var req models.TokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return req, false
	}
	if req.ElectionID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return req, false
	}
	if err := auth.ValidateTokenFormat(req.Token); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid token format")
		return req, false
	}
	return req, true
}
