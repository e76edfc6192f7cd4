// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	voterA = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	voterB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	nobody = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

var (
	t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(48 * time.Hour)
)

func addr(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func newSenatorElection(t *testing.T, l *Ledger) (electionID, cand1, cand2 uint64) {
	t.Helper()
	var err error
	electionID, err = l.CreateElection(owner, Senator, t0, t1)
	require.NoError(t, err)
	cand1, err = l.RegisterCandidate(owner, "S1001", "ENG")
	require.NoError(t, err)
	cand2, err = l.RegisterCandidate(owner, "S1002", "SCI")
	require.NoError(t, err)
	require.NoError(t, l.AddCandidateToElection(owner, electionID, cand1))
	require.NoError(t, l.AddCandidateToElection(owner, electionID, cand2))
	return electionID, cand1, cand2
}

func TestSenatorVotingScenario(t *testing.T) {
	l := New(owner)
	electionID, cand1, cand2 := newSenatorElection(t, l)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))
	require.NoError(t, l.VoteForSenator(voterA, electionID, cand1))

	err := l.VoteForSenator(voterA, electionID, cand2)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	votes2, err := l.CandidateVotes(electionID, cand2)
	require.NoError(t, err)
	assert.Zero(t, votes2, "duplicate vote must not change tallies")

	require.NoError(t, l.VoteForSenator(voterB, electionID, cand1))

	votes1, err := l.CandidateVotes(electionID, cand1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), votes1)

	e, err := l.Election(electionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.TotalVotes)

	c1, err := l.Candidate(cand1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c1.VoteCount)
}

func TestTotalVotesEqualsSumOfTallies(t *testing.T) {
	l := New(owner)
	electionID, cand1, cand2 := newSenatorElection(t, l)
	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))

	for i := 0; i < 25; i++ {
		voter := addr(i)
		target := cand1
		if i%3 == 0 {
			target = cand2
		}
		require.NoError(t, l.VoteForSenator(voter, electionID, target))
	}

	results, err := l.Results(electionID)
	require.NoError(t, err)
	var sum uint64
	for _, r := range results {
		sum += r.Votes
	}
	e, err := l.Election(electionID)
	require.NoError(t, err)
	assert.Equal(t, e.TotalVotes, sum)
	assert.Equal(t, cand1, results[0].TargetID, "results are ordered by votes")
}

func TestConcurrentVotersAllCounted(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)
	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))

	const voters = 50
	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i := 0; i < voters; i++ {
		voter := addr(i)
		wg.Add(2)
		// Every voter tries twice concurrently; exactly one attempt may win.
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				errs <- l.VoteForSenator(voter, electionID, cand1)
			}()
		}
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateVote):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, voters, ok)
	assert.Equal(t, voters, dup)

	e, err := l.Election(electionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(voters), e.TotalVotes)
}

func TestVoteGuards(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)
	unregistered, err := l.RegisterCandidate(owner, "S2000", "LAW")
	require.NoError(t, err)

	// Pending elections do not accept votes.
	assert.ErrorIs(t, l.VoteForSenator(voterA, electionID, cand1), ErrInvalidState)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))

	tests := []struct {
		name       string
		electionID uint64
		targetID   uint64
		wantErr    error
	}{
		{"unknown election", 999, cand1, ErrNotFound},
		{"candidate not registered", electionID, unregistered, ErrInvalidState},
		{"unknown candidate", electionID, 999, ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.VoteForSenator(voterA, tt.electionID, tt.targetID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Ticket votes against a senator election are a type mismatch.
	assert.ErrorIs(t, l.VoteForPresidentVP(voterA, electionID, 1), ErrInvalidState)

	voted, err := l.HasVoted(electionID, voterA)
	require.NoError(t, err)
	assert.False(t, voted, "failed votes must not mark the voter")
}

func TestAddCandidateRequiresPending(t *testing.T) {
	l := New(owner)
	electionID, _, _ := newSenatorElection(t, l)
	late, err := l.RegisterCandidate(owner, "S3000", "MED")
	require.NoError(t, err)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))
	err = l.AddCandidateToElection(owner, electionID, late)
	assert.ErrorIs(t, err, ErrInvalidState)

	ids, err := l.ElectionCandidates(electionID)
	require.NoError(t, err)
	assert.NotContains(t, ids, late)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Completed))
	assert.ErrorIs(t, l.AddCandidateToElection(owner, electionID, late), ErrInvalidState)
}

func TestAddCandidateTwiceFails(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)

	err := l.AddCandidateToElection(owner, electionID, cand1)
	assert.ErrorIs(t, err, ErrInvalidState)

	ids, err := l.ElectionCandidates(electionID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestAddCandidateNotFound(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)

	assert.ErrorIs(t, l.AddCandidateToElection(owner, 42, cand1), ErrNotFound)
	assert.ErrorIs(t, l.AddCandidateToElection(owner, electionID, 42), ErrNotFound)
}

func TestCreateTicketRejectsSameCandidate(t *testing.T) {
	l := New(owner)
	c1, err := l.RegisterCandidate(owner, "P1", "ENG")
	require.NoError(t, err)

	for _, id := range []uint64{c1, 0, 77} {
		_, err := l.CreateTicket(owner, id, id)
		assert.ErrorIs(t, err, ErrInvalidTicket, "id %d", id)
	}
}

func TestPresidentVPScenario(t *testing.T) {
	l := New(owner)
	electionID, err := l.CreateElection(owner, PresidentVP, t0, t1)
	require.NoError(t, err)

	p, err := l.RegisterCandidate(owner, "P1", "ENG")
	require.NoError(t, err)
	vp, err := l.RegisterCandidate(owner, "V1", "ART")
	require.NoError(t, err)
	ticket, err := l.CreateTicket(owner, p, vp)
	require.NoError(t, err)

	_, err = l.CreateTicket(owner, p, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, l.AddTicketToElection(owner, electionID, ticket))
	assert.ErrorIs(t, l.AddTicketToElection(owner, electionID, ticket), ErrInvalidState)

	senate, err := l.CreateElection(owner, Senator, t0, t1)
	require.NoError(t, err)
	assert.ErrorIs(t, l.AddTicketToElection(owner, senate, ticket), ErrInvalidState)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))
	require.NoError(t, l.VoteForPresidentVP(voterA, electionID, ticket))
	assert.ErrorIs(t, l.VoteForPresidentVP(voterA, electionID, ticket), ErrDuplicateVote)

	votes, err := l.TicketVotes(electionID, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), votes)

	results, err := l.Results(electionID)
	require.NoError(t, err)
	assert.Equal(t, []Tally{{TargetID: ticket, Votes: 1}}, results)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		wantErr bool
	}{
		{"pending to active", []Status{Active}, false},
		{"pending to cancelled", []Status{Cancelled}, false},
		{"active to completed", []Status{Active, Completed}, false},
		{"active to cancelled", []Status{Active, Cancelled}, false},
		{"pending to completed", []Status{Completed}, true},
		{"pending to pending", []Status{Pending}, true},
		{"completed to active", []Status{Active, Completed, Active}, true},
		{"cancelled to active", []Status{Cancelled, Active}, true},
		{"active to pending", []Status{Active, Pending}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(owner)
			id, err := l.CreateElection(owner, Senator, t0, t1)
			require.NoError(t, err)

			var last error
			for _, s := range tt.path {
				last = l.UpdateElectionStatus(owner, id, s)
				if last != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, last, ErrInvalidState)
			} else {
				assert.NoError(t, last)
			}
		})
	}
}

func TestFinalizeResults(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)

	assert.ErrorIs(t, l.FinalizeResults(owner, electionID), ErrInvalidState)

	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Active))
	require.NoError(t, l.VoteForSenator(voterA, electionID, cand1))
	require.NoError(t, l.UpdateElectionStatus(owner, electionID, Completed))

	require.NoError(t, l.FinalizeResults(owner, electionID))
	err := l.FinalizeResults(owner, electionID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	e, err := l.Election(electionID)
	require.NoError(t, err)
	assert.True(t, e.ResultsFinalized)
	assert.Equal(t, uint64(1), e.TotalVotes)

	assert.ErrorIs(t, l.UpdateElectionStatus(owner, electionID, Cancelled), ErrAlreadyFinalized)
	assert.ErrorIs(t, l.FinalizeResults(owner, 404), ErrNotFound)

	var finalized int
	for _, ev := range l.Events() {
		if ev.Kind == EventResultsFinalized {
			finalized++
		}
	}
	assert.Equal(t, 1, finalized)
}

func TestAdminGuards(t *testing.T) {
	l := New(owner)
	electionID, cand1, _ := newSenatorElection(t, l)

	_, err := l.CreateElection(nobody, Senator, t0, t1)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = l.RegisterCandidate(nobody, "X", "Y")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, l.AddCandidateToElection(nobody, electionID, cand1), ErrUnauthorized)
	assert.ErrorIs(t, l.UpdateElectionStatus(nobody, electionID, Active), ErrUnauthorized)
	assert.ErrorIs(t, l.FinalizeResults(nobody, electionID), ErrUnauthorized)
	assert.ErrorIs(t, l.AddAdmin(nobody, nobody), ErrUnauthorized)

	require.NoError(t, l.AddAdmin(owner, nobody))
	assert.True(t, l.IsAdmin(nobody))
	require.NoError(t, l.UpdateElectionStatus(nobody, electionID, Active))

	require.NoError(t, l.RemoveAdmin(owner, nobody))
	require.NoError(t, l.RemoveAdmin(owner, owner))
	assert.False(t, l.IsAdmin(nobody))
	assert.True(t, l.IsAdmin(owner), "owner cannot be removed")
}

func TestRegisterCandidateValidation(t *testing.T) {
	l := New(owner)
	_, err := l.RegisterCandidate(owner, "", "ENG")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = l.RegisterCandidate(owner, "S1", "ENG")
	require.NoError(t, err)
	_, err = l.RegisterCandidate(owner, "S1", "SCI")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateElectionValidation(t *testing.T) {
	l := New(owner)
	_, err := l.CreateElection(owner, Senator, t1, t0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = l.CreateElection(owner, ElectionType(9), t0, t1)
	assert.ErrorIs(t, err, ErrInvalidState)

	first, err := l.CreateElection(owner, Senator, t0, t1)
	require.NoError(t, err)
	second, err := l.CreateElection(owner, PresidentVP, t0, t1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.Equal(t, 2, l.ElectionCount())
}

func TestTimestampIDs(t *testing.T) {
	now := t0.Add(-24 * time.Hour)
	l := New(owner, WithTimestampIDs(), WithClock(func() time.Time { return now }))
	assert.Equal(t, TimestampIDs, l.Scheme())

	id, err := l.CreateElection(owner, Senator, t0, t1)
	require.NoError(t, err)
	assert.Equal(t, uint64(t0.Unix()), id)

	_, err = l.CreateElection(owner, Senator, t0, t1)
	assert.ErrorIs(t, err, ErrInvalidState, "timestamps must be unique")

	_, err = l.CreateElection(owner, Senator, now.Add(-time.Minute), t1)
	assert.ErrorIs(t, err, ErrInvalidArgument, "timestamps must be in the future")

	e, err := l.Election(id)
	require.NoError(t, err)
	assert.Equal(t, t0, e.StartTime)
}

func TestReadsUnknownIDs(t *testing.T) {
	l := New(owner)

	_, err := l.Election(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Candidate(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Ticket(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.ElectionCandidates(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.ElectionTickets(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Results(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.HasVoted(1, voterA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevertErrorReason(t *testing.T) {
	l := New(owner)
	_, err := l.Election(5)

	var rerr *RevertError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ReasonElectionNotFound, rerr.Reason)
	assert.Equal(t, "execution reverted: Election does not exist", err.Error())
	assert.Equal(t, ErrNotFound, KindOfReason(rerr.Reason))
	assert.Nil(t, KindOfReason("something else"))
}

func TestParseHelpers(t *testing.T) {
	s, err := ParseStatus("Active")
	require.NoError(t, err)
	assert.Equal(t, Active, s)
	_, err = ParseStatus("open")
	assert.Error(t, err)

	typ, err := ParseElectionType("president_vp")
	require.NoError(t, err)
	assert.Equal(t, PresidentVP, typ)
	assert.Equal(t, "senator", Senator.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}
