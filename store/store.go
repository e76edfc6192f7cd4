// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/campus-vote/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrInvalid         = errors.New("invalid input")
	ErrAlreadyDeployed = errors.New("election already deployed")
	ErrTokenUsed       = errors.New("voting token already used")
)

// Store is the external store's data access layer.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sql.DB { return s.db }

// Elections

func (s *Store) CreateElection(ctx context.Context, req models.CreateElectionRequest) (models.Election, error) {
	if req.Name == "" {
		return models.Election{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, ok := models.LedgerType(req.Type); !ok {
		return models.Election{}, fmt.Errorf("%w: unknown election type %q", ErrInvalid, req.Type)
	}
	if !req.EndTime.After(req.StartTime) {
		return models.Election{}, fmt.Errorf("%w: end_time must be after start_time", ErrInvalid)
	}

	e := models.Election{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		CreatedAt:   s.now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO election (name, description, type, start_time, end_time, deployed, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id
	`, e.Name, e.Description, e.Type, e.StartTime, e.EndTime, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to insert election: %w", err)
	}
	return e, nil
}

const electionColumns = `id, name, description, type, start_time, end_time, deployed, created_at`

func scanElection(row interface{ Scan(...any) error }) (models.Election, error) {
	var e models.Election
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Type, &e.StartTime, &e.EndTime, &e.Deployed, &e.CreatedAt)
	return e, err
}

func (s *Store) GetElection(ctx context.Context, id int64) (models.Election, error) {
	e, err := scanElection(s.db.QueryRowContext(ctx,
		`SELECT `+electionColumns+` FROM election WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, fmt.Errorf("election %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

func (s *Store) ListElections(ctx context.Context) ([]models.Election, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+electionColumns+` FROM election ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	return elections, rows.Err()
}

// Candidates

func (s *Store) CreateCandidate(ctx context.Context, req models.CreateCandidateRequest) (models.Candidate, error) {
	if req.StudentID == "" || req.Name == "" || req.Faculty == "" {
		return models.Candidate{}, fmt.Errorf("%w: student_id, name and faculty are required", ErrInvalid)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM candidate WHERE student_id = $1)`, req.StudentID).Scan(&exists)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to query candidate: %w", err)
	}
	if exists {
		return models.Candidate{}, fmt.Errorf("candidate with student_id %s: %w", req.StudentID, ErrConflict)
	}

	c := models.Candidate{StudentID: req.StudentID, Name: req.Name, Faculty: req.Faculty, CreatedAt: s.now().UTC()}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO candidate (student_id, name, faculty, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.StudentID, c.Name, c.Faculty, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to insert candidate: %w", err)
	}
	return c, nil
}

func (s *Store) GetCandidate(ctx context.Context, id int64) (models.Candidate, error) {
	var c models.Candidate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, name, faculty, created_at FROM candidate WHERE id = $1
	`, id).Scan(&c.ID, &c.StudentID, &c.Name, &c.Faculty, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to query candidate: %w", err)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return s.queryCandidates(ctx, `
		SELECT id, student_id, name, faculty, created_at FROM candidate ORDER BY id
	`)
}

// ElectionCandidates returns the candidates associated with an election.
func (s *Store) ElectionCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error) {
	return s.queryCandidates(ctx, `
		SELECT c.id, c.student_id, c.name, c.faculty, c.created_at
		FROM candidate c
		JOIN election_candidate ec ON ec.candidate_id = c.id
		WHERE ec.election_id = $1
		ORDER BY c.id
	`, electionID)
}

func (s *Store) queryCandidates(ctx context.Context, query string, args ...any) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Name, &c.Faculty, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// AddCandidateToElection associates a candidate with an undeployed election.
func (s *Store) AddCandidateToElection(ctx context.Context, electionID, candidateID int64) error {
	return s.associate(ctx, electionID, candidateID, "candidate", "election_candidate", "candidate_id")
}

// Tickets

func (s *Store) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (models.Ticket, error) {
	if req.PresidentID == req.VicePresidentID {
		return models.Ticket{}, fmt.Errorf("%w: president and vice president must differ", ErrInvalid)
	}
	for _, id := range []int64{req.PresidentID, req.VicePresidentID} {
		if _, err := s.GetCandidate(ctx, id); err != nil {
			return models.Ticket{}, err
		}
	}

	t := models.Ticket{PresidentID: req.PresidentID, VicePresidentID: req.VicePresidentID, CreatedAt: s.now().UTC()}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ticket (president_id, vice_president_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, t.PresidentID, t.VicePresidentID, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to insert ticket: %w", err)
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	var t models.Ticket
	err := s.db.QueryRowContext(ctx, `
		SELECT id, president_id, vice_president_id, created_at FROM ticket WHERE id = $1
	`, id).Scan(&t.ID, &t.PresidentID, &t.VicePresidentID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to query ticket: %w", err)
	}
	return t, nil
}

func (s *Store) ElectionTickets(ctx context.Context, electionID int64) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.president_id, t.vice_president_id, t.created_at
		FROM ticket t
		JOIN election_ticket et ON et.ticket_id = t.id
		WHERE et.election_id = $1
		ORDER BY t.id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.PresidentID, &t.VicePresidentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// AddTicketToElection associates a ticket with an undeployed president/VP election.
func (s *Store) AddTicketToElection(ctx context.Context, electionID, ticketID int64) error {
	e, err := s.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	if e.Type != models.TypePresidentVP {
		return fmt.Errorf("%w: tickets belong to president_vp elections", ErrInvalid)
	}
	return s.associate(ctx, electionID, ticketID, "ticket", "election_ticket", "ticket_id")
}

// associate inserts one row into an election join table after checking both
// sides exist and the election has not been deployed.
func (s *Store) associate(ctx context.Context, electionID, targetID int64, target, table, column string) error {
	e, err := s.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	if e.Deployed {
		return ErrAlreadyDeployed
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+target+` WHERE id = $1)`, targetID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", target, err)
	}
	if !exists {
		return fmt.Errorf("%s %d: %w", target, targetID, ErrNotFound)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE election_id = $1 AND `+column+` = $2)`,
		electionID, targetID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	if exists {
		return fmt.Errorf("%s %d in election %d: %w", target, targetID, electionID, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (election_id, `+column+`) VALUES ($1, $2)`, electionID, targetID)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}
