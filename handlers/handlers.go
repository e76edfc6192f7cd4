// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/scan"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/txsubmit"
)

// Ledger bundles the ledger-side services the blockchain endpoints use.
// Admin is nil when the server holds no signing key.
type Ledger struct {
	Resolver *reconcile.Resolver
	Verifier *txsubmit.Verifier
	Deployer *txsubmit.Deployer
	Admin    *txsubmit.Admin
	Scanner  *scan.Scanner
}

// requireAdmin checks the X-Admin-Key header and writes the error response
// when it does not match
func requireAdmin(w http.ResponseWriter, r *http.Request, cfg cliparse.Config) bool {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminAPIKey); err != nil {
		slog.Warn("admin key rejected",
			"request_id", middleware.RequestID(r.Context()),
			"path", r.URL.Path,
			"remote", middleware.GetClientIP(r),
		)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// pathID parses the {id} path value
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

// storeError writes the response for an error from the store, or from a
// ledger call when err is classified
func storeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case middleware.IsLedgerError(err):
		middleware.LedgerErrorResponse(w, r, err)
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrAlreadyDeployed),
		errors.Is(err, store.ErrTokenUsed),
		errors.Is(err, txsubmit.ErrAlreadyDeployed):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"action", action,
			"error", err,
		)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
