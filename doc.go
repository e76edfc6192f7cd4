// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the campus-vote API server.

campus-vote runs university elections (senator and president/VP tickets)
whose votes are recorded on an election ledger. Election records live in an
off-ledger store; deployment copies them to the ledger and records the
ledger IDs they were given.

# Starting the Server

The server reads a .env file, then environment variables or CLI flags:

	DATABASE_URL=campus.db ADMIN_API_KEY=... TOKEN_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -ledger evm -rpc http://localhost:8545 -contract 0x...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path or PostgreSQL connection string
  - ADMIN_API_KEY (-admin-key): Key expected in X-Admin-Key
  - TOKEN_SALT (-token-salt): Secret for voting token hashes

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - LEDGER_VARIANT (-ledger): simulated (default), simulated-timestamp or evm
  - LEDGER_ID_SCHEME (-id-scheme): sequential (default) or timestamp
  - RPC_URL, CONTRACT_ADDRESS, CHAIN_ID: evm ledger connection
  - DEPLOYER_KEY: hex private key for server-signed deployment and status changes
  - GAS_TABLE: YAML gas table (see gas.example.yaml)
  - LOG_LEVEL: debug, info, warn or error

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (elections, candidates, tokens, blockchain)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, request IDs, logging, JSON helpers
  - models: Request/response types
  - auth: Admin key checks and voting tokens
  - store, db: Off-ledger store and schema creation
  - ledger, chain, wallet: Ledger state machine, adapters and signing sessions
  - txsubmit, reconcile, scan: Submission, ID resolution and scans
  - cliparse: Configuration parsing

The admin CLI lives in cmd/electionctl. See package documentation for each
component.
*/
package main
