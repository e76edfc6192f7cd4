// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger implements the election ledger state machine.

The ledger records elections, candidates, president/VP tickets and votes. It
is the in-process counterpart of the ElectionLedger contract in
contracts/ElectionLedger.sol and produces the same revert reasons.

# State Machine

	Pending ──► Active ──► Completed ──(finalize)──► finalized
	   │           │
	   └──► Cancelled ◄┘

UpdateElectionStatus accepts only the edges above. Finalization is a one-shot
flag on a Completed election; a finalized election accepts no further status
changes.

# Voting

	err := l.VoteForSenator(voter, electionID, candidateID)

A vote succeeds only when the election exists, has the matching type, is
Active, the target is registered to it and the voter address has not voted in
that election. A successful vote increments the target tally, the election
total and marks the voter; votes are never changed or cleared.

# Errors

Failed calls return *RevertError carrying the contract's revert reason.
RevertError unwraps to one of ErrNotFound, ErrInvalidState, ErrDuplicateVote,
ErrUnauthorized, ErrAlreadyFinalized, ErrInvalidTicket or ErrInvalidArgument:

	if errors.Is(err, ledger.ErrDuplicateVote) { ... }

# ID Schemes

By default election IDs are sequential. WithTimestampIDs selects the legacy
scheme that keys elections by start time; callers must persist whatever ID
the ledger reports rather than assume either scheme.
*/
package ledger
