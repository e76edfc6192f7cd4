// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Verifier performs retried, read-only checks against the ledger. Apart from
// ElectionState, exhausted reads yield empty or zero values.
type Verifier struct {
	reader chain.Reader
	retry  Retrier
}

func NewVerifier(reader chain.Reader, retry Retrier) *Verifier {
	return &Verifier{reader: reader, retry: retry}
}

// ElectionState reads an election. Its error is returned so callers can tell
// a missing election from an empty one.
func (v *Verifier) ElectionState(ctx context.Context, ledgerID uint64) (ledger.Election, error) {
	return Read(ctx, v.retry, "getElection", func(ctx context.Context) (ledger.Election, error) {
		return v.reader.GetElection(ctx, ledgerID)
	})
}

func (v *Verifier) Results(ctx context.Context, ledgerID uint64) []ledger.Tally {
	return ReadOr(ctx, v.retry, "getResults", []ledger.Tally{}, func(ctx context.Context) ([]ledger.Tally, error) {
		return v.reader.GetResults(ctx, ledgerID)
	})
}

func (v *Verifier) CandidateIDs(ctx context.Context, ledgerID uint64) []uint64 {
	return ReadOr(ctx, v.retry, "getElectionCandidates", []uint64{}, func(ctx context.Context) ([]uint64, error) {
		return v.reader.GetElectionCandidates(ctx, ledgerID)
	})
}

func (v *Verifier) TicketIDs(ctx context.Context, ledgerID uint64) []uint64 {
	return ReadOr(ctx, v.retry, "getElectionTickets", []uint64{}, func(ctx context.Context) ([]uint64, error) {
		return v.reader.GetElectionTickets(ctx, ledgerID)
	})
}

func (v *Verifier) HasVoted(ctx context.Context, ledgerID uint64, voter common.Address) bool {
	return ReadOr(ctx, v.retry, "hasVoted", false, func(ctx context.Context) (bool, error) {
		return v.reader.HasVoted(ctx, ledgerID, voter)
	})
}

func (v *Verifier) TotalVotes(ctx context.Context, ledgerID uint64) uint64 {
	return ReadOr(ctx, v.retry, "getElection", 0, func(ctx context.Context) (uint64, error) {
		e, err := v.reader.GetElection(ctx, ledgerID)
		return e.TotalVotes, err
	})
}
