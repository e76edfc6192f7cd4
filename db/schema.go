// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database types accepted by Open and CreateSchema
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Open connects to the database and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	var driver string
	switch dbType {
	case TypePostgres:
		driver = "postgres"
	case TypeSQLite, "":
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	idType := "BIGSERIAL PRIMARY KEY"
	if dbType != TypePostgres {
		idType = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	_, err := db.Exec(strings.ReplaceAll(schema, "{{ID}}", idType))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Elections (off-ledger metadata)
CREATE TABLE IF NOT EXISTS election (
    id {{ID}},
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL CHECK (type IN ('senator', 'president_vp')),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    deployed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id {{ID}},
    student_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    faculty TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS election_candidate (
    election_id BIGINT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    candidate_id BIGINT NOT NULL REFERENCES candidate(id) ON DELETE CASCADE,
    PRIMARY KEY (election_id, candidate_id)
);

-- President/VP tickets
CREATE TABLE IF NOT EXISTS ticket (
    id {{ID}},
    president_id BIGINT NOT NULL REFERENCES candidate(id),
    vice_president_id BIGINT NOT NULL REFERENCES candidate(id),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (president_id <> vice_president_id)
);

CREATE TABLE IF NOT EXISTS election_ticket (
    election_id BIGINT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    ticket_id BIGINT NOT NULL REFERENCES ticket(id) ON DELETE CASCADE,
    PRIMARY KEY (election_id, ticket_id)
);

-- External ID -> ledger ID, written at deployment
CREATE TABLE IF NOT EXISTS ledger_mapping (
    kind TEXT NOT NULL CHECK (kind IN ('election', 'candidate', 'ticket')),
    external_id BIGINT NOT NULL,
    ledger_id BIGINT NOT NULL,
    tx_hash TEXT NOT NULL DEFAULT '',
    ledger_variant TEXT NOT NULL,
    deployed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (kind, external_id)
);

-- A ledger ID backs at most one external record of each kind
DROP INDEX IF EXISTS idx_ledger_mapping_ledger_id;
CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_mapping_ledger_id ON ledger_mapping(kind, ledger_id);

-- One-time voting tokens, hashed at rest
CREATE TABLE IF NOT EXISTS voting_token (
    token_hash TEXT PRIMARY KEY,
    election_id BIGINT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    student_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    used_at TIMESTAMP,
    UNIQUE (election_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_voting_token_election ON voting_token(election_id);
`
