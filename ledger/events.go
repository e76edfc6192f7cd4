// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import "github.com/ethereum/go-ethereum/common"

type EventKind string

const (
	EventElectionCreated     EventKind = "ElectionCreated"
	EventCandidateRegistered EventKind = "CandidateRegistered"
	EventCandidateAdded      EventKind = "CandidateAddedToElection"
	EventTicketCreated       EventKind = "TicketCreated"
	EventTicketAdded         EventKind = "TicketAddedToElection"
	EventStatusChanged       EventKind = "ElectionStatusChanged"
	EventVoteCast            EventKind = "VoteCast"
	EventResultsFinalized    EventKind = "ResultsFinalized"
)

// Event is one entry of the ledger's append-only event log. Fields that do
// not apply to a kind are zero.
type Event struct {
	Seq        uint64         `json:"seq"`
	Kind       EventKind      `json:"kind"`
	ElectionID uint64         `json:"election_id,omitempty"`
	TargetID   uint64         `json:"target_id,omitempty"`
	Status     Status         `json:"status,omitempty"`
	Actor      common.Address `json:"actor"`
}
