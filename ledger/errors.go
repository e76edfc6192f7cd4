// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateVote    = errors.New("already voted")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyFinalized = errors.New("results already finalized")
	ErrInvalidTicket    = errors.New("invalid ticket")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Revert reasons. The EVM contract uses the same strings so that failures
// from either adapter classify identically.
const (
	ReasonOnlyOwner            = "Only owner"
	ReasonOnlyAdmin            = "Only admin"
	ReasonElectionNotFound     = "Election does not exist"
	ReasonCandidateNotFound    = "Candidate does not exist"
	ReasonTicketNotFound       = "Ticket does not exist"
	ReasonNotPending           = "Election is not pending"
	ReasonNotActive            = "Election is not active"
	ReasonNotCompleted         = "Election is not completed"
	ReasonWrongType            = "Wrong election type"
	ReasonInvalidTransition    = "Invalid status transition"
	ReasonAlreadyRegistered    = "Already registered for election"
	ReasonNotRegistered        = "Not registered for election"
	ReasonAlreadyVoted         = "Already voted"
	ReasonAlreadyFinalized     = "Results already finalized"
	ReasonSameTicketCandidates = "President and VP must differ"
	ReasonDuplicateStudent     = "Student already registered"
	ReasonEmptyStudentID       = "Student ID required"
	ReasonInvalidTimes         = "End time must be after start time"
	ReasonTimestampInPast      = "Start time must be in the future"
	ReasonTimestampTaken       = "Election timestamp already used"
)

// reasonKinds maps each revert reason to its taxonomy sentinel.
var reasonKinds = map[string]error{
	ReasonOnlyOwner:            ErrUnauthorized,
	ReasonOnlyAdmin:            ErrUnauthorized,
	ReasonElectionNotFound:     ErrNotFound,
	ReasonCandidateNotFound:    ErrNotFound,
	ReasonTicketNotFound:       ErrNotFound,
	ReasonNotPending:           ErrInvalidState,
	ReasonNotActive:            ErrInvalidState,
	ReasonNotCompleted:         ErrInvalidState,
	ReasonWrongType:            ErrInvalidState,
	ReasonInvalidTransition:    ErrInvalidState,
	ReasonAlreadyRegistered:    ErrInvalidState,
	ReasonNotRegistered:        ErrInvalidState,
	ReasonAlreadyVoted:         ErrDuplicateVote,
	ReasonAlreadyFinalized:     ErrAlreadyFinalized,
	ReasonSameTicketCandidates: ErrInvalidTicket,
	ReasonDuplicateStudent:     ErrInvalidState,
	ReasonEmptyStudentID:       ErrInvalidArgument,
	ReasonInvalidTimes:         ErrInvalidArgument,
	ReasonTimestampInPast:      ErrInvalidArgument,
	ReasonTimestampTaken:       ErrInvalidState,
}

// RevertError is a rejected ledger call. It unwraps to the taxonomy sentinel
// for its reason.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error {
	if kind, ok := reasonKinds[e.Reason]; ok {
		return kind
	}
	return nil
}

func revert(reason string) error {
	return &RevertError{Reason: reason}
}

// KindOfReason returns the taxonomy sentinel for a revert reason, or nil if
// the reason is not one the ledger produces.
func KindOfReason(reason string) error {
	return reasonKinds[reason]
}
