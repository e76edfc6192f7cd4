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

// IssueToken stores a hashed voting token for one student in one election.
// A student holds at most one token per election.
func (s *Store) IssueToken(ctx context.Context, electionID int64, studentID, tokenHash string) error {
	if studentID == "" || tokenHash == "" {
		return fmt.Errorf("%w: student_id and token are required", ErrInvalid)
	}
	if _, err := s.GetElection(ctx, electionID); err != nil {
		return err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM voting_token WHERE election_id = $1 AND student_id = $2)`,
		electionID, studentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query voting token: %w", err)
	}
	if exists {
		return fmt.Errorf("voting token for %s: %w", studentID, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO voting_token (token_hash, election_id, student_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, tokenHash, electionID, studentID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert voting token: %w", err)
	}
	return nil
}

// GetToken looks up a token by hash within an election.
func (s *Store) GetToken(ctx context.Context, electionID int64, tokenHash string) (models.VotingToken, error) {
	var t models.VotingToken
	var usedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT election_id, student_id, token_hash, created_at, used_at
		FROM voting_token WHERE token_hash = $1 AND election_id = $2
	`, tokenHash, electionID).Scan(&t.ElectionID, &t.StudentID, &t.TokenHash, &t.CreatedAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VotingToken{}, fmt.Errorf("voting token: %w", ErrNotFound)
	}
	if err != nil {
		return models.VotingToken{}, fmt.Errorf("failed to query voting token: %w", err)
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

// UseToken consumes a token. A second use fails with ErrTokenUsed.
func (s *Store) UseToken(ctx context.Context, electionID int64, tokenHash string) (models.VotingToken, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voting_token SET used_at = $1
		WHERE token_hash = $2 AND election_id = $3 AND used_at IS NULL
	`, s.now().UTC(), tokenHash, electionID)
	if err != nil {
		return models.VotingToken{}, fmt.Errorf("failed to use voting token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.VotingToken{}, fmt.Errorf("failed to use voting token: %w", err)
	}

	t, err := s.GetToken(ctx, electionID, tokenHash)
	if err != nil {
		return models.VotingToken{}, err
	}
	if n == 0 {
		return t, ErrTokenUsed
	}
	return t, nil
}
