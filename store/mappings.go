// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/campus-vote/models"
)

const mappingColumns = `kind, external_id, ledger_id, tx_hash, ledger_variant, deployed_at`

func scanMapping(row interface{ Scan(...any) error }) (models.Mapping, error) {
	var m models.Mapping
	err := row.Scan(&m.Kind, &m.ExternalID, &m.LedgerID, &m.TxHash, &m.Variant, &m.DeployedAt)
	return m, err
}

// GetMapping returns the ledger mapping for an external record, or
// ErrNotFound if it was never deployed.
func (s *Store) GetMapping(ctx context.Context, kind string, externalID int64) (models.Mapping, error) {
	m, err := scanMapping(s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM ledger_mapping WHERE kind = $1 AND external_id = $2
	`, kind, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Mapping{}, fmt.Errorf("%s %d mapping: %w", kind, externalID, ErrNotFound)
	}
	if err != nil {
		return models.Mapping{}, fmt.Errorf("failed to query mapping: %w", err)
	}
	return m, nil
}

// FindByLedgerID returns the mapping pointing at a ledger ID, if any.
func (s *Store) FindByLedgerID(ctx context.Context, kind string, ledgerID uint64) (models.Mapping, error) {
	m, err := scanMapping(s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM ledger_mapping WHERE kind = $1 AND ledger_id = $2
		ORDER BY deployed_at LIMIT 1
	`, kind, ledgerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Mapping{}, fmt.Errorf("%s ledger id %d: %w", kind, ledgerID, ErrNotFound)
	}
	if err != nil {
		return models.Mapping{}, fmt.Errorf("failed to query mapping: %w", err)
	}
	return m, nil
}

func (s *Store) ListMappings(ctx context.Context, kind string) ([]models.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mappingColumns+` FROM ledger_mapping WHERE kind = $1 ORDER BY external_id
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	mappings := []models.Mapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ledgerIDFree fails with ErrConflict when a record other than externalID is
// already mapped to ledgerID.
func ledgerIDFree(ctx context.Context, q execQuerier, kind string, externalID int64, ledgerID uint64) error {
	var owner int64
	err := q.QueryRowContext(ctx,
		`SELECT external_id FROM ledger_mapping WHERE kind = $1 AND ledger_id = $2 AND external_id <> $3`,
		kind, ledgerID, externalID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query mapping: %w", err)
	}
	return fmt.Errorf("%s ledger id %d is mapped to %s %d: %w", kind, ledgerID, kind, owner, ErrConflict)
}

func (s *Store) insertMapping(ctx context.Context, q execQuerier, m models.Mapping) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_mapping WHERE kind = $1 AND external_id = $2)`,
		m.Kind, m.ExternalID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query mapping: %w", err)
	}
	if exists {
		return fmt.Errorf("%s %d mapping: %w", m.Kind, m.ExternalID, ErrConflict)
	}
	if err := ledgerIDFree(ctx, q, m.Kind, m.ExternalID, m.LedgerID); err != nil {
		return err
	}

	if m.DeployedAt.IsZero() {
		m.DeployedAt = s.now()
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO ledger_mapping (kind, external_id, ledger_id, tx_hash, ledger_variant, deployed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.Kind, m.ExternalID, m.LedgerID, m.TxHash, m.Variant, m.DeployedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert mapping: %w", err)
	}
	return nil
}

// SaveMapping records a candidate or ticket mapping. Existing mappings are
// never overwritten.
func (s *Store) SaveMapping(ctx context.Context, m models.Mapping) error {
	if m.Kind == models.KindElection {
		return fmt.Errorf("%w: election mappings are written by MarkDeployed", ErrInvalid)
	}
	return s.insertMapping(ctx, s.db, m)
}

// MarkDeployed writes the election mapping and sets the deployed flag in one
// transaction.
func (s *Store) MarkDeployed(ctx context.Context, m models.Mapping) error {
	if m.Kind != models.KindElection {
		return fmt.Errorf("%w: MarkDeployed takes an election mapping", ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deployed bool
	err = tx.QueryRowContext(ctx, `SELECT deployed FROM election WHERE id = $1`, m.ExternalID).Scan(&deployed)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("election %d: %w", m.ExternalID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query election: %w", err)
	}
	if deployed {
		return ErrAlreadyDeployed
	}

	if err := s.insertMapping(ctx, tx, m); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE election SET deployed = TRUE WHERE id = $1`, m.ExternalID); err != nil {
		return fmt.Errorf("failed to mark election deployed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deployment: %w", err)
	}
	return nil
}

// Remap points an existing mapping at a different ledger ID. Used to repair
// mismatches found by a ledger scan; the mapping itself is never removed. A
// ledger ID already mapped to another record is a conflict.
func (s *Store) Remap(ctx context.Context, kind string, externalID int64, ledgerID uint64, variant string) (models.Mapping, error) {
	if err := ledgerIDFree(ctx, s.db, kind, externalID, ledgerID); err != nil {
		return models.Mapping{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_mapping SET ledger_id = $1, ledger_variant = $2
		WHERE kind = $3 AND external_id = $4
	`, ledgerID, variant, kind, externalID)
	if err != nil {
		return models.Mapping{}, fmt.Errorf("failed to update mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Mapping{}, fmt.Errorf("failed to update mapping: %w", err)
	}
	if n == 0 {
		return models.Mapping{}, fmt.Errorf("%s %d mapping: %w", kind, externalID, ErrNotFound)
	}
	return s.GetMapping(ctx, kind, externalID)
}
