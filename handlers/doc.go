// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the campus-vote API.

# Handler Types

Each handler is a struct with store and config dependencies:

  - ElectionHandler: Election records and their candidate/ticket entries
  - CandidateHandler: Candidate registration and tickets
  - TokenHandler: One-time voting tokens
  - BlockchainHandler: Deployment, verification, scans and repair

Handlers are created via constructor functions:

	electionHandler := handlers.NewElectionHandler(store, cfg)
	blockchainHandler := handlers.NewBlockchainHandler(store, cfg, ledger)

BlockchainHandler also takes a Ledger bundle. Its Admin is nil when the
server has no signing key; deployment and status changes then answer 503
and deployments are signed in a wallet and reported with
confirm-deployment.

# Election Lifecycle

	POST /api/elections                       → CreateElection
	POST /api/elections/{id}/candidates       → AddCandidate
	POST /api/blockchain/deploy-election/{id} → DeployElection
	POST /api/blockchain/elections/{id}/status → SetStatus (active, completed, cancelled)
	POST /api/blockchain/elections/{id}/finalize → Finalize

Entries are frozen once an election is deployed. Votes are signed by the
students' own wallets and never pass through the API.

Admin operations require the X-Admin-Key header.

# Errors

Store errors map to 400, 404 and 409. Ledger failures are classified and
answered by middleware.LedgerErrorResponse with the kind in the body.
*/
package handlers
