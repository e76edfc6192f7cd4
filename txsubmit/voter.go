// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

// Voter casts ballots with the submitter's session account.
type Voter struct {
	submitter *Submitter
	verifier  *Verifier
	resolver  *reconcile.Resolver
}

func NewVoter(submitter *Submitter, verifier *Verifier, resolver *reconcile.Resolver) *Voter {
	return &Voter{submitter: submitter, verifier: verifier, resolver: resolver}
}

// Cast votes in an election for a candidate (senator) or ticket
// (president/VP), both given by their external IDs. The election's type on
// the ledger decides which call is made.
func (v *Voter) Cast(ctx context.Context, externalElectionID, externalTargetID int64) (*chain.Receipt, error) {
	electionID, err := v.resolver.ResolveElection(ctx, externalElectionID)
	if err != nil {
		return nil, err
	}
	e, err := v.verifier.ElectionState(ctx, electionID)
	if err != nil {
		return nil, Classify(err)
	}

	w := v.submitter.Ledger()
	var send SendFunc
	switch e.Type {
	case ledger.PresidentVP:
		ticketID, err := v.resolver.ResolveTicket(ctx, externalTargetID)
		if err != nil {
			return nil, err
		}
		send = func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return w.VoteForPresidentVP(opts, electionID, ticketID)
		}
	default:
		candidateID, err := v.resolver.ResolveCandidate(ctx, externalTargetID)
		if err != nil {
			return nil, err
		}
		send = func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return w.VoteForSenator(opts, electionID, candidateID)
		}
	}

	receipt, err := v.submitter.Submit(ctx, OpVote, send)
	if err != nil {
		return nil, err
	}
	slog.Info("vote cast", "election_id", externalElectionID, "ledger_id", electionID, "tx_hash", receipt.TxHash.Hex())
	return receipt, nil
}

// Admin runs election lifecycle writes for a deployed election.
type Admin struct {
	submitter *Submitter
	resolver  *reconcile.Resolver
}

func NewAdmin(submitter *Submitter, resolver *reconcile.Resolver) *Admin {
	return &Admin{submitter: submitter, resolver: resolver}
}

// SetStatus moves an election to status. The ledger rejects transitions
// other than pending→active, active→completed and cancelling an election
// that has not completed.
func (a *Admin) SetStatus(ctx context.Context, externalElectionID int64, status ledger.Status) (*chain.Receipt, error) {
	electionID, err := a.resolver.ResolveElection(ctx, externalElectionID)
	if err != nil {
		return nil, err
	}
	w := a.submitter.Ledger()
	receipt, err := a.submitter.Submit(ctx, OpUpdateStatus, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.UpdateElectionStatus(opts, electionID, status)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("election status updated", "election_id", externalElectionID, "ledger_id", electionID, "status", status)
	return receipt, nil
}

// Finalize locks a completed election's results.
func (a *Admin) Finalize(ctx context.Context, externalElectionID int64) (*chain.Receipt, error) {
	electionID, err := a.resolver.ResolveElection(ctx, externalElectionID)
	if err != nil {
		return nil, err
	}
	w := a.submitter.Ledger()
	receipt, err := a.submitter.Submit(ctx, OpFinalize, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.FinalizeResults(opts, electionID)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("election results finalized", "election_id", externalElectionID, "ledger_id", electionID)
	return receipt, nil
}
