// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the external store and creates its schema.

# Connecting

Open accepts "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite):

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
Only the auto-increment key type differs between dialects.

# Tables

  - election: name, description, type, schedule, deployed flag
  - candidate: student ID (unique), name, faculty
  - election_candidate: election *──* candidate
  - ticket: president/VP pair, never the same candidate twice
  - election_ticket: election *──* ticket
  - ledger_mapping: (kind, external_id) → ledger_id, tx_hash, variant
  - voting_token: one-time tokens per (election, student)

Mappings are never deleted.
*/
package db
