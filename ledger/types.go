// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ElectionType mirrors the contract enum; values are stable on the wire.
type ElectionType uint8

const (
	Senator ElectionType = iota
	PresidentVP
)

func (t ElectionType) String() string {
	switch t {
	case Senator:
		return "senator"
	case PresidentVP:
		return "president_vp"
	}
	return fmt.Sprintf("election_type(%d)", uint8(t))
}

// ParseElectionType accepts the String() form, case-insensitively.
func ParseElectionType(s string) (ElectionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senator":
		return Senator, nil
	case "president_vp", "presidentvp", "president-vp":
		return PresidentVP, nil
	}
	return 0, fmt.Errorf("unknown election type %q", s)
}

// Status mirrors the contract enum; values are stable on the wire.
type Status uint8

const (
	Pending Status = iota
	Active
	Completed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus accepts the String() form, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return Pending, nil
	case "active":
		return Active, nil
	case "completed":
		return Completed, nil
	case "cancelled", "canceled":
		return Cancelled, nil
	}
	return 0, fmt.Errorf("unknown election status %q", s)
}

// CanTransition reports whether from -> to is an edge of the election state machine.
func CanTransition(from, to Status) bool {
	switch from {
	case Pending:
		return to == Active || to == Cancelled
	case Active:
		return to == Completed || to == Cancelled
	}
	return false
}

type Election struct {
	ID               uint64         `json:"id"`
	Type             ElectionType   `json:"type"`
	Status           Status         `json:"status"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	TotalVotes       uint64         `json:"total_votes"`
	ResultsFinalized bool           `json:"results_finalized"`
	Creator          common.Address `json:"creator"`
}

type Candidate struct {
	ID        uint64 `json:"id"`
	StudentID string `json:"student_id"`
	Faculty   string `json:"faculty"`
	VoteCount uint64 `json:"vote_count"`
}

// Ticket pairs a president and a vice-president candidate.
type Ticket struct {
	ID              uint64 `json:"id"`
	PresidentID     uint64 `json:"president_id"`
	VicePresidentID uint64 `json:"vice_president_id"`
	VoteCount       uint64 `json:"vote_count"`
}

// Tally is one row of an election's results. TargetID is a candidate ID for
// senator elections and a ticket ID for president/VP elections.
type Tally struct {
	TargetID uint64 `json:"target_id"`
	Votes    uint64 `json:"votes"`
}
