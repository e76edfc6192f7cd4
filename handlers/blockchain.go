// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/scan"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type BlockchainHandler struct {
	store  *store.Store
	cfg    cliparse.Config
	ledger Ledger
}

func NewBlockchainHandler(s *store.Store, cfg cliparse.Config, l Ledger) *BlockchainHandler {
	return &BlockchainHandler{store: s, cfg: cfg, ledger: l}
}

// DeployElection handles POST /api/blockchain/deploy-election/{id}
func (h *BlockchainHandler) DeployElection(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.ledger.Deployer.DeployElection(r.Context(), id)
	if errors.Is(err, txsubmit.ErrNoSubmitter) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable,
			"Server-side deployment is disabled; sign the deployment in a wallet and confirm it")
		return
	}
	if err != nil {
		storeError(w, r, err, "deploy election")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// deployError maps the deployer's target checks onto statuses before falling
// back to storeError.
func deployError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, txsubmit.ErrNotOnLedger):
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, txsubmit.ErrTypeMismatch), errors.Is(err, txsubmit.ErrLedgerIDTaken):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		storeError(w, r, err, action)
	}
}

// ConfirmDeployment handles POST /api/blockchain/confirm-deployment/{id}
func (h *BlockchainHandler) ConfirmDeployment(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.ConfirmDeploymentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.LedgerID == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ledger_id is required")
		return
	}
	if b, err := hexutil.Decode(req.TxHash); err != nil || len(b) != 32 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "tx_hash must be a 0x-prefixed 32-byte hash")
		return
	}

	if err := h.ledger.Deployer.ConfirmDeployment(r.Context(), id, req.LedgerID, req.TxHash); err != nil {
		deployError(w, r, err, "confirm deployment")
		return
	}

	m, err := h.store.GetMapping(r.Context(), models.KindElection, id)
	if err != nil {
		storeError(w, r, err, "confirm deployment")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, m)
}

// VerifyElection handles GET /api/blockchain/elections/{id}
func (h *BlockchainHandler) VerifyElection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if _, err := h.store.GetElection(ctx, id); err != nil {
		storeError(w, r, err, "verify election")
		return
	}

	report, err := h.ledger.Resolver.Check(ctx, h.ledger.Verifier.ElectionState, id)
	if err != nil {
		middleware.LedgerErrorResponse(w, r, err)
		return
	}

	resp := models.VerificationResponse{
		ElectionID: id,
		Deployed:   report.Deployed,
		OnLedger:   report.OnLedger,
		Ledger:     report.Election,
		Results:    []ledger.Tally{},
		Problems:   report.Problems,
	}
	if report.Deployed {
		m, err := h.store.GetMapping(ctx, models.KindElection, id)
		if err != nil {
			storeError(w, r, err, "verify election")
			return
		}
		resp.Mapping = &m
	}
	if report.OnLedger {
		resp.Results = h.ledger.Verifier.Results(ctx, report.LedgerID)
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Scan handles GET /api/blockchain/scan
//
//	?from=1&to=500
//	?mode=timestamps&from=2025-09-01T00:00:00Z&to=2025-09-08T00:00:00Z&interval=24h
func (h *BlockchainHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = "ids"
	}

	var res scan.Result
	var err error
	switch mode {
	case "ids":
		from, ferr := strconv.ParseUint(q.Get("from"), 10, 64)
		to, terr := strconv.ParseUint(q.Get("to"), 10, 64)
		if ferr != nil || terr != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "from and to must be ledger IDs")
			return
		}
		res, err = h.ledger.Scanner.ScanIDs(r.Context(), from, to)
	case "timestamps":
		from, ferr := time.Parse(time.RFC3339, q.Get("from"))
		to, terr := time.Parse(time.RFC3339, q.Get("to"))
		interval, ierr := time.ParseDuration(q.Get("interval"))
		if ferr != nil || terr != nil || ierr != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "from and to must be RFC 3339 times and interval a duration")
			return
		}
		res, err = h.ledger.Scanner.ScanTimestamps(r.Context(), from, to, interval)
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "mode must be ids or timestamps")
		return
	}
	if errors.Is(err, scan.ErrInvalidRange) || errors.Is(err, scan.ErrRangeTooLarge) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		// cancelled by the client; nobody is left to read a response
		slog.Info("scan aborted", "request_id", middleware.RequestID(r.Context()), "error", err)
		return
	}

	resp := models.ScanResponse{Mode: mode, Probes: res.Probes, Found: make([]models.ScanHit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		sh := models.ScanHit{Probe: hit.Probe, Election: hit.Election}
		m, err := h.store.FindByLedgerID(r.Context(), models.KindElection, hit.Probe)
		switch {
		case err == nil:
			sh.ExternalID = &m.ExternalID
		case !errors.Is(err, store.ErrNotFound):
			storeError(w, r, err, "scan ledger")
			return
		}
		resp.Found = append(resp.Found, sh)
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Remap handles POST /api/blockchain/remap/{id}
func (h *BlockchainHandler) Remap(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.RemapRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.LedgerID == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ledger_id is required")
		return
	}

	m, err := h.ledger.Deployer.Remap(r.Context(), id, req.LedgerID)
	if err != nil {
		deployError(w, r, err, "remap election")
		return
	}

	slog.Info("election remapped", "election_id", id, "ledger_id", m.LedgerID)
	middleware.JSONResponse(w, http.StatusOK, m)
}

// SetStatus handles POST /api/blockchain/elections/{id}/status
func (h *BlockchainHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	status, err := ledger.ParseStatus(req.Status)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.serverSigned(w, r, id, func(a *txsubmit.Admin) (*chain.Receipt, error) {
		return a.SetStatus(r.Context(), id, status)
	})
}

// Finalize handles POST /api/blockchain/elections/{id}/finalize
func (h *BlockchainHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r, h.cfg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	h.serverSigned(w, r, id, func(a *txsubmit.Admin) (*chain.Receipt, error) {
		return a.Finalize(r.Context(), id)
	})
}

func (h *BlockchainHandler) serverSigned(w http.ResponseWriter, r *http.Request, id int64, run func(*txsubmit.Admin) (*chain.Receipt, error)) {
	if h.ledger.Admin == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Server-side signing is disabled")
		return
	}

	ledgerID, err := h.ledger.Resolver.ResolveElection(r.Context(), id)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not deployed")
		return
	}

	receipt, err := run(h.ledger.Admin)
	if err != nil {
		middleware.LedgerErrorResponse(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.LedgerTxResponse{
		ElectionID:  id,
		LedgerID:    ledgerID,
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
	})
}
