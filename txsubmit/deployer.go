// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/store"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrAlreadyDeployed = errors.New("election already deployed")
	ErrNotOnLedger     = errors.New("ledger has no election with that ID")
	ErrNoSubmitter     = errors.New("deployment signing is not configured")
	ErrTypeMismatch    = errors.New("ledger election type does not match")
	ErrLedgerIDTaken   = errors.New("ledger election already backs another election")
)

// DeployStore is the part of the external store deployment reads and writes.
type DeployStore interface {
	GetElection(ctx context.Context, id int64) (models.Election, error)
	GetCandidate(ctx context.Context, id int64) (models.Candidate, error)
	ElectionCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error)
	ElectionTickets(ctx context.Context, electionID int64) ([]models.Ticket, error)
	SaveMapping(ctx context.Context, m models.Mapping) error
	MarkDeployed(ctx context.Context, m models.Mapping) error
	FindByLedgerID(ctx context.Context, kind string, ledgerID uint64) (models.Mapping, error)
	Remap(ctx context.Context, kind string, externalID int64, ledgerID uint64, variant string) (models.Mapping, error)
}

// createdElection is a ledger election created by DeployElection whose
// deployment has not been confirmed yet.
type createdElection struct {
	ledgerID uint64
	txHash   string
}

// Deployer creates an election's ledger counterpart from its external record.
type Deployer struct {
	store     DeployStore
	ledger    chain.Ledger
	submitter *Submitter
	verifier  *Verifier
	resolver  *reconcile.Resolver
	now       func() time.Time

	// serializes DeployElection; runs share the signer's nonce sequence
	mu      sync.Mutex
	created map[int64]createdElection // by external ID, guarded by mu
}

// NewDeployer returns a deployer for l. With a nil submitter only
// ConfirmDeployment is available.
func NewDeployer(st DeployStore, l chain.Ledger, submitter *Submitter, verifier *Verifier, resolver *reconcile.Resolver) *Deployer {
	return &Deployer{
		store:     st,
		ledger:    l,
		submitter: submitter,
		verifier:  verifier,
		resolver:  resolver,
		now:       time.Now,
		created:   make(map[int64]createdElection),
	}
}

// CanSign reports whether DeployElection is available.
func (d *Deployer) CanSign() bool { return d.submitter != nil }

// DeployElection registers any undeployed candidates (and for president/VP
// elections, tickets), creates the election, associates everything, and
// finally confirms the deployment. The election's deployed flag is only set
// once every step succeeded. Candidate and ticket mappings are kept as soon
// as their own transaction is included, so a retried deployment reuses them.
// A retry after a failure past createElection reuses the ledger election
// created by the failed run while it is still pending, and skips the
// associations it already holds.
func (d *Deployer) DeployElection(ctx context.Context, externalID int64) (models.DeployResponse, error) {
	var resp models.DeployResponse
	if d.submitter == nil {
		return resp, ErrNoSubmitter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.store.GetElection(ctx, externalID)
	if err != nil {
		return resp, err
	}
	if e.Deployed {
		return resp, ErrAlreadyDeployed
	}
	typ, ok := models.LedgerType(e.Type)
	if !ok {
		return resp, fmt.Errorf("%w: election type %q", store.ErrInvalid, e.Type)
	}

	candidates, err := d.store.ElectionCandidates(ctx, externalID)
	if err != nil {
		return resp, err
	}
	var tickets []models.Ticket
	if typ == ledger.PresidentVP {
		if tickets, err = d.store.ElectionTickets(ctx, externalID); err != nil {
			return resp, err
		}
	}

	slog.Info("deploying election",
		"election_id", externalID,
		"type", e.Type,
		"candidates", len(candidates),
		"tickets", len(tickets),
		"variant", d.ledger.Variant(),
	)

	resp.ElectionID = externalID
	resp.Variant = d.ledger.Variant()
	resp.Candidates = make([]models.MappedID, 0, len(candidates))
	for _, c := range candidates {
		m, err := d.ensureCandidate(ctx, c)
		if err != nil {
			return resp, err
		}
		resp.Candidates = append(resp.Candidates, m)
	}

	created, resumed, err := d.createElection(ctx, externalID, typ, e)
	if err != nil {
		return resp, err
	}
	electionLedgerID := created.ledgerID
	resp.LedgerID = electionLedgerID
	resp.TxHash = created.txHash

	fail := func(err error) (models.DeployResponse, error) {
		slog.Warn("deployment stopped after the ledger election was created",
			"election_id", externalID,
			"ledger_id", electionLedgerID,
			"error", err,
		)
		return resp, err
	}

	candidatesOn := mapset.NewThreadUnsafeSet[uint64]()
	ticketsOn := mapset.NewThreadUnsafeSet[uint64]()
	if resumed {
		candidatesOn.Append(d.verifier.CandidateIDs(ctx, electionLedgerID)...)
		ticketsOn.Append(d.verifier.TicketIDs(ctx, electionLedgerID)...)
	}

	w := d.submitter.Ledger()
	for _, c := range resp.Candidates {
		cid := c.LedgerID
		if candidatesOn.Contains(cid) {
			continue
		}
		if _, err := d.submitter.Submit(ctx, OpAddCandidate, func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return w.AddCandidateToElection(opts, electionLedgerID, cid)
		}); err != nil {
			return fail(err)
		}
	}

	for _, t := range tickets {
		m, err := d.ensureTicket(ctx, t)
		if err != nil {
			return fail(err)
		}
		resp.Tickets = append(resp.Tickets, m)
		tid := m.LedgerID
		if ticketsOn.Contains(tid) {
			continue
		}
		if _, err := d.submitter.Submit(ctx, OpAddTicket, func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return w.AddTicketToElection(opts, electionLedgerID, tid)
		}); err != nil {
			return fail(err)
		}
	}

	if err := d.ConfirmDeployment(ctx, externalID, electionLedgerID, resp.TxHash); err != nil {
		return fail(err)
	}
	delete(d.created, externalID)
	return resp, nil
}

// createElection returns the ledger election left behind by an earlier failed
// run for externalID if it is still pending and of the right type, and
// otherwise creates a new one. resumed reports which happened.
func (d *Deployer) createElection(ctx context.Context, externalID int64, typ ledger.ElectionType, e models.Election) (createdElection, bool, error) {
	if prev, ok := d.created[externalID]; ok {
		le, err := d.verifier.ElectionState(ctx, prev.ledgerID)
		if err == nil && le.Type == typ && le.Status == ledger.Pending {
			slog.Info("resuming deployment", "election_id", externalID, "ledger_id", prev.ledgerID)
			return prev, true, nil
		}
		slog.Warn("abandoning ledger election from an earlier deployment attempt",
			"election_id", externalID,
			"ledger_id", prev.ledgerID,
			"error", err,
		)
		delete(d.created, externalID)
	}

	w := d.submitter.Ledger()
	receipt, err := d.submitter.Submit(ctx, OpCreateElection, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.CreateElection(opts, typ, e.StartTime, e.EndTime)
	})
	if err != nil {
		return createdElection{}, false, err
	}
	if receipt.LedgerID == 0 {
		return createdElection{}, false, newError(KindUnknown, "", errors.New("createElection receipt carries no election ID"))
	}
	c := createdElection{ledgerID: receipt.LedgerID, txHash: receipt.TxHash.Hex()}
	d.created[externalID] = c
	return c, false, nil
}

// ensureCandidate returns the candidate's ledger ID, registering it first if
// it has never been deployed.
func (d *Deployer) ensureCandidate(ctx context.Context, c models.Candidate) (models.MappedID, error) {
	id, err := d.resolver.ResolveCandidate(ctx, c.ID)
	if err == nil {
		return models.MappedID{ExternalID: c.ID, LedgerID: id}, nil
	}
	if !errors.Is(err, reconcile.ErrNotDeployed) {
		return models.MappedID{}, err
	}

	w := d.submitter.Ledger()
	receipt, err := d.submitter.Submit(ctx, OpRegisterCandidate, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.RegisterCandidate(opts, c.StudentID, c.Faculty)
	})
	if err != nil {
		return models.MappedID{}, err
	}
	if err := d.persist(ctx, models.KindCandidate, c.ID, receipt.LedgerID, receipt.TxHash.Hex()); err != nil {
		return models.MappedID{}, err
	}
	return models.MappedID{ExternalID: c.ID, LedgerID: receipt.LedgerID, Created: true}, nil
}

func (d *Deployer) ensureTicket(ctx context.Context, t models.Ticket) (models.MappedID, error) {
	id, err := d.resolver.ResolveTicket(ctx, t.ID)
	if err == nil {
		return models.MappedID{ExternalID: t.ID, LedgerID: id}, nil
	}
	if !errors.Is(err, reconcile.ErrNotDeployed) {
		return models.MappedID{}, err
	}

	var ledgerIDs [2]uint64
	for i, cid := range []int64{t.PresidentID, t.VicePresidentID} {
		c, err := d.store.GetCandidate(ctx, cid)
		if err != nil {
			return models.MappedID{}, err
		}
		m, err := d.ensureCandidate(ctx, c)
		if err != nil {
			return models.MappedID{}, err
		}
		ledgerIDs[i] = m.LedgerID
	}

	w := d.submitter.Ledger()
	receipt, err := d.submitter.Submit(ctx, OpCreateTicket, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.CreateTicket(opts, ledgerIDs[0], ledgerIDs[1])
	})
	if err != nil {
		return models.MappedID{}, err
	}
	if err := d.persist(ctx, models.KindTicket, t.ID, receipt.LedgerID, receipt.TxHash.Hex()); err != nil {
		return models.MappedID{}, err
	}
	return models.MappedID{ExternalID: t.ID, LedgerID: receipt.LedgerID, Created: true}, nil
}

func (d *Deployer) persist(ctx context.Context, kind string, externalID int64, ledgerID uint64, txHash string) error {
	m := models.Mapping{
		Kind:       kind,
		ExternalID: externalID,
		LedgerID:   ledgerID,
		TxHash:     txHash,
		Variant:    d.ledger.Variant(),
		DeployedAt: d.now(),
	}
	if err := d.store.SaveMapping(ctx, m); err != nil {
		return fmt.Errorf("failed to save %s mapping: %w", kind, err)
	}
	d.resolver.Remember(kind, externalID, ledgerID)
	slog.Info("ledger mapping saved", "kind", kind, "external_id", externalID, "ledger_id", ledgerID)
	return nil
}

// ConfirmDeployment records that externalID was deployed as ledgerID. The
// ledger must know ledgerID as an election of the same type that no other
// election is mapped to; the mapping and deployed flag are written together.
func (d *Deployer) ConfirmDeployment(ctx context.Context, externalID int64, ledgerID uint64, txHash string) error {
	e, err := d.store.GetElection(ctx, externalID)
	if err != nil {
		return err
	}
	if e.Deployed {
		return ErrAlreadyDeployed
	}
	if err := d.checkTarget(ctx, e, ledgerID); err != nil {
		return err
	}

	m := models.Mapping{
		Kind:       models.KindElection,
		ExternalID: externalID,
		LedgerID:   ledgerID,
		TxHash:     txHash,
		Variant:    d.ledger.Variant(),
		DeployedAt: d.now(),
	}
	if err := d.store.MarkDeployed(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyDeployed) {
			return ErrAlreadyDeployed
		}
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: %w", ErrLedgerIDTaken, err)
		}
		return fmt.Errorf("failed to confirm deployment: %w", err)
	}
	d.resolver.Remember(models.KindElection, externalID, ledgerID)
	slog.Info("election deployed", "election_id", externalID, "ledger_id", ledgerID, "tx_hash", txHash)
	return nil
}

// Remap points a deployed election at ledgerID, under the same checks as
// ConfirmDeployment.
func (d *Deployer) Remap(ctx context.Context, externalID int64, ledgerID uint64) (models.Mapping, error) {
	e, err := d.store.GetElection(ctx, externalID)
	if err != nil {
		return models.Mapping{}, err
	}
	if !e.Deployed {
		return models.Mapping{}, fmt.Errorf("election %d is not deployed: %w", externalID, store.ErrNotFound)
	}
	if err := d.checkTarget(ctx, e, ledgerID); err != nil {
		return models.Mapping{}, err
	}

	m, err := d.store.Remap(ctx, models.KindElection, externalID, ledgerID, d.ledger.Variant())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Mapping{}, fmt.Errorf("%w: %w", ErrLedgerIDTaken, err)
		}
		return models.Mapping{}, err
	}
	d.resolver.Forget(models.KindElection, externalID)
	d.resolver.Remember(models.KindElection, externalID, m.LedgerID)
	return m, nil
}

// checkTarget verifies that ledgerID can back e: it exists on the ledger,
// has e's type, and is not mapped to another election.
func (d *Deployer) checkTarget(ctx context.Context, e models.Election, ledgerID uint64) error {
	typ, ok := models.LedgerType(e.Type)
	if !ok {
		return fmt.Errorf("%w: election type %q", store.ErrInvalid, e.Type)
	}

	le, err := d.verifier.ElectionState(ctx, ledgerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrNotOnLedger, ledgerID)
		}
		return Classify(err)
	}
	if le.Type != typ {
		return fmt.Errorf("%w: ledger election %d is %s, election %d is %s", ErrTypeMismatch, ledgerID, le.Type, e.ID, typ)
	}

	m, err := d.store.FindByLedgerID(ctx, models.KindElection, ledgerID)
	switch {
	case err == nil && m.ExternalID != e.ID:
		return fmt.Errorf("%w: ledger election %d is mapped to election %d", ErrLedgerIDTaken, ledgerID, m.ExternalID)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}
