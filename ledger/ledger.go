// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"slices"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// IDScheme selects how the ledger keys new elections.
type IDScheme int

const (
	// SequentialIDs assigns 1, 2, 3, ... and reports the ID at creation.
	SequentialIDs IDScheme = iota
	// TimestampIDs keys an election by its start time in unix seconds.
	// Kept for ledgers deployed by the legacy contract; the start time must
	// be unique and in the future.
	TimestampIDs
)

type Option func(*Ledger)

// WithTimestampIDs switches the ledger to the legacy timestamp-keyed scheme.
func WithTimestampIDs() Option {
	return func(l *Ledger) { l.scheme = TimestampIDs }
}

// WithClock overrides time.Now, used for the timestamp scheme's future check.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

type electionState struct {
	Election
	candidates   []uint64
	candidateSet mapset.Set[uint64]
	tickets      []uint64
	ticketSet    mapset.Set[uint64]
	tallies      map[uint64]uint64
	voters       mapset.Set[common.Address]
}

// Ledger is the election state machine. Every method holds the ledger lock
// for its whole duration, so writes are atomic and totally ordered.
type Ledger struct {
	mu     sync.RWMutex
	owner  common.Address
	admins mapset.Set[common.Address]
	scheme IDScheme
	now    func() time.Time

	elections     map[uint64]*electionState
	nextElection  uint64
	candidates    map[uint64]*Candidate
	students      map[string]uint64
	nextCandidate uint64
	tickets       map[uint64]*Ticket
	nextTicket    uint64

	events []Event
}

// New returns an empty ledger owned by owner. The owner is also an admin.
func New(owner common.Address, opts ...Option) *Ledger {
	l := &Ledger{
		owner:         owner,
		admins:        mapset.NewThreadUnsafeSet(owner),
		now:           time.Now,
		elections:     make(map[uint64]*electionState),
		nextElection:  1,
		candidates:    make(map[uint64]*Candidate),
		students:      make(map[string]uint64),
		nextCandidate: 1,
		tickets:       make(map[uint64]*Ticket),
		nextTicket:    1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Owner() common.Address { return l.owner }

func (l *Ledger) Scheme() IDScheme { return l.scheme }

func (l *Ledger) IsAdmin(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.admins.Contains(addr)
}

func (l *Ledger) AddAdmin(caller, addr common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return revert(ReasonOnlyOwner)
	}
	l.admins.Add(addr)
	return nil
}

// RemoveAdmin revokes addr. The owner cannot be removed.
func (l *Ledger) RemoveAdmin(caller, addr common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return revert(ReasonOnlyOwner)
	}
	if addr != l.owner {
		l.admins.Remove(addr)
	}
	return nil
}

func (l *Ledger) requireAdmin(caller common.Address) error {
	if !l.admins.Contains(caller) {
		return revert(ReasonOnlyAdmin)
	}
	return nil
}

func (l *Ledger) emit(ev Event) {
	ev.Seq = uint64(len(l.events)) + 1
	l.events = append(l.events, ev)
}

// CreateElection registers a Pending election and returns its ledger ID.
func (l *Ledger) CreateElection(caller common.Address, typ ElectionType, start, end time.Time) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return 0, err
	}
	if typ != Senator && typ != PresidentVP {
		return 0, revert(ReasonWrongType)
	}
	if !end.After(start) {
		return 0, revert(ReasonInvalidTimes)
	}

	var id uint64
	switch l.scheme {
	case TimestampIDs:
		if !start.After(l.now()) {
			return 0, revert(ReasonTimestampInPast)
		}
		id = uint64(start.Unix())
		if _, taken := l.elections[id]; taken {
			return 0, revert(ReasonTimestampTaken)
		}
	default:
		id = l.nextElection
		l.nextElection++
	}

	l.elections[id] = &electionState{
		Election: Election{
			ID:        id,
			Type:      typ,
			Status:    Pending,
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
			Creator:   caller,
		},
		candidateSet: mapset.NewThreadUnsafeSet[uint64](),
		ticketSet:    mapset.NewThreadUnsafeSet[uint64](),
		tallies:      make(map[uint64]uint64),
		voters:       mapset.NewThreadUnsafeSet[common.Address](),
	}
	l.emit(Event{Kind: EventElectionCreated, ElectionID: id, Actor: caller})
	return id, nil
}

// RegisterCandidate creates a candidate independent of any election.
func (l *Ledger) RegisterCandidate(caller common.Address, studentID, faculty string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return 0, err
	}
	if studentID == "" {
		return 0, revert(ReasonEmptyStudentID)
	}
	if _, dup := l.students[studentID]; dup {
		return 0, revert(ReasonDuplicateStudent)
	}

	id := l.nextCandidate
	l.nextCandidate++
	l.candidates[id] = &Candidate{ID: id, StudentID: studentID, Faculty: faculty}
	l.students[studentID] = id
	l.emit(Event{Kind: EventCandidateRegistered, TargetID: id, Actor: caller})
	return id, nil
}

func (l *Ledger) AddCandidateToElection(caller common.Address, electionID, candidateID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	e, ok := l.elections[electionID]
	if !ok {
		return revert(ReasonElectionNotFound)
	}
	if _, ok := l.candidates[candidateID]; !ok {
		return revert(ReasonCandidateNotFound)
	}
	if e.Status != Pending {
		return revert(ReasonNotPending)
	}
	if e.candidateSet.Contains(candidateID) {
		return revert(ReasonAlreadyRegistered)
	}

	e.candidateSet.Add(candidateID)
	e.candidates = append(e.candidates, candidateID)
	l.emit(Event{Kind: EventCandidateAdded, ElectionID: electionID, TargetID: candidateID, Actor: caller})
	return nil
}

// CreateTicket pairs two distinct existing candidates.
func (l *Ledger) CreateTicket(caller common.Address, presidentID, vpID uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return 0, err
	}
	if presidentID == vpID {
		return 0, revert(ReasonSameTicketCandidates)
	}
	if _, ok := l.candidates[presidentID]; !ok {
		return 0, revert(ReasonCandidateNotFound)
	}
	if _, ok := l.candidates[vpID]; !ok {
		return 0, revert(ReasonCandidateNotFound)
	}

	id := l.nextTicket
	l.nextTicket++
	l.tickets[id] = &Ticket{ID: id, PresidentID: presidentID, VicePresidentID: vpID}
	l.emit(Event{Kind: EventTicketCreated, TargetID: id, Actor: caller})
	return id, nil
}

func (l *Ledger) AddTicketToElection(caller common.Address, electionID, ticketID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	e, ok := l.elections[electionID]
	if !ok {
		return revert(ReasonElectionNotFound)
	}
	if _, ok := l.tickets[ticketID]; !ok {
		return revert(ReasonTicketNotFound)
	}
	if e.Type != PresidentVP {
		return revert(ReasonWrongType)
	}
	if e.Status != Pending {
		return revert(ReasonNotPending)
	}
	if e.ticketSet.Contains(ticketID) {
		return revert(ReasonAlreadyRegistered)
	}

	e.ticketSet.Add(ticketID)
	e.tickets = append(e.tickets, ticketID)
	l.emit(Event{Kind: EventTicketAdded, ElectionID: electionID, TargetID: ticketID, Actor: caller})
	return nil
}

// UpdateElectionStatus moves an election along the state machine. Only
// Pending->Active, Pending->Cancelled, Active->Completed and
// Active->Cancelled are accepted.
func (l *Ledger) UpdateElectionStatus(caller common.Address, electionID uint64, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	e, ok := l.elections[electionID]
	if !ok {
		return revert(ReasonElectionNotFound)
	}
	if e.ResultsFinalized {
		return revert(ReasonAlreadyFinalized)
	}
	if !CanTransition(e.Status, status) {
		return revert(ReasonInvalidTransition)
	}

	e.Status = status
	l.emit(Event{Kind: EventStatusChanged, ElectionID: electionID, Status: status, Actor: caller})
	return nil
}

func (l *Ledger) VoteForSenator(voter common.Address, electionID, candidateID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.votable(electionID, Senator)
	if err != nil {
		return err
	}
	if !e.candidateSet.Contains(candidateID) {
		return revert(ReasonNotRegistered)
	}
	if e.voters.Contains(voter) {
		return revert(ReasonAlreadyVoted)
	}

	l.candidates[candidateID].VoteCount++
	l.record(e, voter, candidateID)
	return nil
}

func (l *Ledger) VoteForPresidentVP(voter common.Address, electionID, ticketID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.votable(electionID, PresidentVP)
	if err != nil {
		return err
	}
	if !e.ticketSet.Contains(ticketID) {
		return revert(ReasonNotRegistered)
	}
	if e.voters.Contains(voter) {
		return revert(ReasonAlreadyVoted)
	}

	l.tickets[ticketID].VoteCount++
	l.record(e, voter, ticketID)
	return nil
}

func (l *Ledger) votable(electionID uint64, typ ElectionType) (*electionState, error) {
	e, ok := l.elections[electionID]
	if !ok {
		return nil, revert(ReasonElectionNotFound)
	}
	if e.Type != typ {
		return nil, revert(ReasonWrongType)
	}
	if e.Status != Active {
		return nil, revert(ReasonNotActive)
	}
	return e, nil
}

func (l *Ledger) record(e *electionState, voter common.Address, targetID uint64) {
	e.tallies[targetID]++
	e.TotalVotes++
	e.voters.Add(voter)
	l.emit(Event{Kind: EventVoteCast, ElectionID: e.ID, TargetID: targetID, Actor: voter})
}

// FinalizeResults marks a Completed election's results as official. It can
// succeed once per election.
func (l *Ledger) FinalizeResults(caller common.Address, electionID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	e, ok := l.elections[electionID]
	if !ok {
		return revert(ReasonElectionNotFound)
	}
	if e.ResultsFinalized {
		return revert(ReasonAlreadyFinalized)
	}
	if e.Status != Completed {
		return revert(ReasonNotCompleted)
	}

	e.ResultsFinalized = true
	l.emit(Event{Kind: EventResultsFinalized, ElectionID: electionID, Actor: caller})
	return nil
}

// Reads

func (l *Ledger) Election(id uint64) (Election, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[id]
	if !ok {
		return Election{}, revert(ReasonElectionNotFound)
	}
	return e.Election, nil
}

func (l *Ledger) Candidate(id uint64) (Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.candidates[id]
	if !ok {
		return Candidate{}, revert(ReasonCandidateNotFound)
	}
	return *c, nil
}

func (l *Ledger) Ticket(id uint64) (Ticket, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tickets[id]
	if !ok {
		return Ticket{}, revert(ReasonTicketNotFound)
	}
	return *t, nil
}

// ElectionCandidates returns candidate IDs in registration order.
func (l *Ledger) ElectionCandidates(electionID uint64) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return nil, revert(ReasonElectionNotFound)
	}
	return slices.Clone(e.candidates), nil
}

// ElectionTickets returns ticket IDs in registration order.
func (l *Ledger) ElectionTickets(electionID uint64) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return nil, revert(ReasonElectionNotFound)
	}
	return slices.Clone(e.tickets), nil
}

// CandidateVotes is the candidate's tally within one election.
func (l *Ledger) CandidateVotes(electionID, candidateID uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return 0, revert(ReasonElectionNotFound)
	}
	if _, ok := l.candidates[candidateID]; !ok {
		return 0, revert(ReasonCandidateNotFound)
	}
	return e.tallies[candidateID], nil
}

// TicketVotes is the ticket's tally within one election.
func (l *Ledger) TicketVotes(electionID, ticketID uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return 0, revert(ReasonElectionNotFound)
	}
	if _, ok := l.tickets[ticketID]; !ok {
		return 0, revert(ReasonTicketNotFound)
	}
	return e.tallies[ticketID], nil
}

func (l *Ledger) HasVoted(electionID uint64, voter common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return false, revert(ReasonElectionNotFound)
	}
	return e.voters.Contains(voter), nil
}

// Results returns one tally per registered candidate (senator) or ticket
// (president/VP), most votes first, ties broken by ascending ID.
func (l *Ledger) Results(electionID uint64) ([]Tally, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.elections[electionID]
	if !ok {
		return nil, revert(ReasonElectionNotFound)
	}

	targets := e.candidates
	if e.Type == PresidentVP {
		targets = e.tickets
	}
	results := make([]Tally, 0, len(targets))
	for _, id := range targets {
		results = append(results, Tally{TargetID: id, Votes: e.tallies[id]})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].TargetID < results[j].TargetID
	})
	return results, nil
}

// ElectionCount is the number of elections ever created.
func (l *Ledger) ElectionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.elections)
}

// Events returns a copy of the event log, oldest first.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}
