// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the campus-vote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, cfg, ledger)

The caller wraps the mux in middleware.CORS.

# Endpoints

Health:

	GET /health

Elections (writes require X-Admin-Key):

	GET  /api/elections                 - List elections
	POST /api/elections                 - Create election
	GET  /api/elections/{id}            - Election with candidates, tickets and mapping
	POST /api/elections/{id}/candidates - Add candidate (undeployed only)
	POST /api/elections/{id}/tickets    - Add ticket (president_vp, undeployed only)

Candidates and tickets:

	GET  /api/candidates      - List candidates
	POST /api/candidates      - Register candidate (admin)
	GET  /api/candidates/{id} - Get candidate
	POST /api/tickets         - Create ticket (admin)

Ledger (admin, except verification):

	POST /api/blockchain/deploy-election/{id}    - Deploy with the server key
	POST /api/blockchain/confirm-deployment/{id} - Record a wallet-signed deployment
	GET  /api/blockchain/elections/{id}          - Cross-check mapping and ledger state
	POST /api/blockchain/elections/{id}/status   - Change status with the server key
	POST /api/blockchain/elections/{id}/finalize - Finalize with the server key
	GET  /api/blockchain/scan                    - Probe ledger IDs or timestamps
	POST /api/blockchain/remap/{id}              - Point a mapping at another ledger ID

Voting tokens:

	POST /api/voting-tokens        - Issue (admin)
	POST /api/voting-tokens/verify - Check without spending
	POST /api/voting-tokens/use    - Spend once

# Handler Initialization

The router creates handler instances with dependency injection:

	electionHandler := handlers.NewElectionHandler(store, cfg)
	blockchainHandler := handlers.NewBlockchainHandler(store, cfg, ledger)

Every route except health and root is wrapped in middleware.WithLogging.
*/
package router
