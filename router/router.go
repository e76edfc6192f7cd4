// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/handlers"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/store"
)

func NewRouter(s *store.Store, cfg cliparse.Config, l handlers.Ledger) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(s, cfg)
	candidateHandler := handlers.NewCandidateHandler(s, cfg)
	tokenHandler := handlers.NewTokenHandler(s, cfg)
	blockchainHandler := handlers.NewBlockchainHandler(s, cfg, l)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Elections (writes need the admin key)
	mux.HandleFunc("GET /api/elections", middleware.WithLogging(electionHandler.ListElections))
	mux.HandleFunc("POST /api/elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /api/elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("POST /api/elections/{id}/candidates", middleware.WithLogging(electionHandler.AddCandidate))
	mux.HandleFunc("POST /api/elections/{id}/tickets", middleware.WithLogging(electionHandler.AddTicket))

	// Candidates and tickets
	mux.HandleFunc("GET /api/candidates", middleware.WithLogging(candidateHandler.ListCandidates))
	mux.HandleFunc("POST /api/candidates", middleware.WithLogging(candidateHandler.CreateCandidate))
	mux.HandleFunc("GET /api/candidates/{id}", middleware.WithLogging(candidateHandler.GetCandidate))
	mux.HandleFunc("POST /api/tickets", middleware.WithLogging(candidateHandler.CreateTicket))

	// Ledger deployment, verification and repair
	mux.HandleFunc("POST /api/blockchain/deploy-election/{id}", middleware.WithLogging(blockchainHandler.DeployElection))
	mux.HandleFunc("POST /api/blockchain/confirm-deployment/{id}", middleware.WithLogging(blockchainHandler.ConfirmDeployment))
	mux.HandleFunc("GET /api/blockchain/elections/{id}", middleware.WithLogging(blockchainHandler.VerifyElection))
	mux.HandleFunc("POST /api/blockchain/elections/{id}/status", middleware.WithLogging(blockchainHandler.SetStatus))
	mux.HandleFunc("POST /api/blockchain/elections/{id}/finalize", middleware.WithLogging(blockchainHandler.Finalize))
	mux.HandleFunc("GET /api/blockchain/scan", middleware.WithLogging(blockchainHandler.Scan))
	mux.HandleFunc("POST /api/blockchain/remap/{id}", middleware.WithLogging(blockchainHandler.Remap))

	// Voting tokens
	mux.HandleFunc("POST /api/voting-tokens", middleware.WithLogging(tokenHandler.IssueToken))
	mux.HandleFunc("POST /api/voting-tokens/verify", middleware.WithLogging(tokenHandler.VerifyToken))
	mux.HandleFunc("POST /api/voting-tokens/use", middleware.WithLogging(tokenHandler.UseToken))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campus-vote API v1"))
	})

	return mux
}
