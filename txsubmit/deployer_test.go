// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/testutil"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/danielhkuo/campus-vote/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *store.Store
	tl        testutil.TestLedger
	resolver  *reconcile.Resolver
	verifier  *txsubmit.Verifier
	submitter *txsubmit.Submitter
	deployer  *txsubmit.Deployer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st := store.New(testutil.SetupTestDB(t))
	tl := testutil.NewTestLedger(t)
	resolver, err := reconcile.NewResolver(st, 0)
	require.NoError(t, err)

	retry, _ := recordingRetrier()
	h := &harness{
		store:    st,
		tl:       tl,
		resolver: resolver,
		verifier: txsubmit.NewVerifier(tl.Ledger, retry),
	}
	h.useSession(tl.Admin)
	return h
}

// useSession points the submitter and deployer at a different signing session.
func (h *harness) useSession(s *wallet.Session) {
	h.submitter = txsubmit.NewSubmitter(h.tl.Ledger, s, nil)
	h.deployer = txsubmit.NewDeployer(h.store, h.tl.Ledger, h.submitter, h.verifier, h.resolver)
}

// approvingSession connects the admin key behind a prompt that accepts
// signatures until *limit have been approved and rejects the rest. It returns
// the number of prompts shown so far.
func (h *harness) approvingSession(t *testing.T, limit *int) (*wallet.Session, *int) {
	t.Helper()
	prompts := 0
	w := wallet.Approving(h.tl.AdminID, func(ctx context.Context, tx *types.Transaction) bool {
		prompts++
		return prompts <= *limit
	})
	s := wallet.NewSession(big.NewInt(chain.DefaultChainID))
	require.NoError(t, s.Connect(context.Background(), w))
	return s, &prompts
}

// ledgerElection creates an election directly on the ledger, as a wallet
// outside the deployer would.
func (h *harness) ledgerElection(t *testing.T, typ ledger.ElectionType) uint64 {
	t.Helper()
	start := time.Now().Add(time.Hour)
	w := h.tl.Ledger
	receipt, err := h.submitter.Submit(context.Background(), txsubmit.OpCreateElection, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.CreateElection(opts, typ, start, start.Add(time.Hour))
	})
	require.NoError(t, err)
	return receipt.LedgerID
}

func asTxError(t *testing.T, err error) *txsubmit.Error {
	t.Helper()
	var txErr *txsubmit.Error
	require.True(t, errors.As(err, &txErr), "expected *txsubmit.Error, got %v", err)
	return txErr
}

func TestDeploySenatorElection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	c1 := testutil.AddTestCandidate(t, h.store, e.ID, "S1001")
	c2 := testutil.AddTestCandidate(t, h.store, e.ID, "S1002")

	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, e.ID, resp.ElectionID)
	assert.Equal(t, uint64(1), resp.LedgerID)
	assert.Equal(t, chain.VariantSimulated, resp.Variant)
	assert.NotEmpty(t, resp.TxHash)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, models.MappedID{ExternalID: c1.ID, LedgerID: 1, Created: true}, resp.Candidates[0])
	assert.Equal(t, models.MappedID{ExternalID: c2.ID, LedgerID: 2, Created: true}, resp.Candidates[1])

	stored, err := h.store.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deployed)

	m, err := h.store.GetMapping(ctx, models.KindElection, e.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.LedgerID)
	assert.Equal(t, resp.TxHash, m.TxHash)

	onLedger, err := h.tl.Ledger.GetElectionCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, onLedger)

	_, err = h.deployer.DeployElection(ctx, e.ID)
	assert.ErrorIs(t, err, txsubmit.ErrAlreadyDeployed)
}

func TestDeployPresidentVPElection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypePresidentVP)
	tk := testutil.AddTestTicket(t, h.store, e.ID, "P1", "V1")

	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)

	assert.Empty(t, resp.Candidates)
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, tk.ID, resp.Tickets[0].ExternalID)
	assert.True(t, resp.Tickets[0].Created)

	ticketID, err := h.resolver.ResolveTicket(ctx, tk.ID)
	require.NoError(t, err)
	ticket, err := h.tl.Ledger.GetTicket(ctx, ticketID)
	require.NoError(t, err)

	presidentID, err := h.resolver.ResolveCandidate(ctx, tk.PresidentID)
	require.NoError(t, err)
	vpID, err := h.resolver.ResolveCandidate(ctx, tk.VicePresidentID)
	require.NoError(t, err)
	assert.Equal(t, presidentID, ticket.PresidentID)
	assert.Equal(t, vpID, ticket.VicePresidentID)

	onLedger, err := h.tl.Ledger.GetElectionTickets(ctx, resp.LedgerID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{ticketID}, onLedger)
}

func TestDeployRejectedKeepsElectionUndeployed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	c1 := testutil.AddTestCandidate(t, h.store, e.ID, "S2001")
	testutil.AddTestCandidate(t, h.store, e.ID, "S2002")

	// both registrations are approved, createElection is rejected
	limit := 2
	s, prompts := h.approvingSession(t, &limit)
	h.useSession(s)
	_, err := h.deployer.DeployElection(ctx, e.ID)
	assert.Equal(t, txsubmit.KindUserRejected, asTxError(t, err).Kind)
	assert.Equal(t, 3, *prompts, "a rejected signature must not be requested again")

	stored, err := h.store.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, stored.Deployed)
	_, err = h.store.GetMapping(ctx, models.KindElection, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := h.tl.Ledger.ElectionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// candidate mappings survive and are reused on the next attempt
	_, err = h.store.GetMapping(ctx, models.KindCandidate, c1.ID)
	require.NoError(t, err)

	h.useSession(h.tl.Admin)
	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 2)
	for _, c := range resp.Candidates {
		assert.False(t, c.Created)
	}
}

func TestDeployResumesCreatedElection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	testutil.AddTestCandidate(t, h.store, e.ID, "S2101")
	testutil.AddTestCandidate(t, h.store, e.ID, "S2102")

	// two registrations, createElection and the first association are
	// approved; the second association is rejected
	limit := 4
	s, prompts := h.approvingSession(t, &limit)
	h.useSession(s)
	first, err := h.deployer.DeployElection(ctx, e.ID)
	assert.Equal(t, txsubmit.KindUserRejected, asTxError(t, err).Kind)
	assert.Equal(t, 5, *prompts)
	require.Equal(t, uint64(1), first.LedgerID)

	stored, err := h.store.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, stored.Deployed)

	limit = 100
	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.LedgerID, resp.LedgerID)
	assert.Equal(t, first.TxHash, resp.TxHash)
	assert.Equal(t, 6, *prompts, "only the missing association is signed")

	count, err := h.tl.Ledger.ElectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	onLedger, err := h.tl.Ledger.GetElectionCandidates(ctx, resp.LedgerID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, onLedger)

	id, err := h.resolver.ResolveElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.LedgerID, id)
}

func TestDeployAbandonsStartedElection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	testutil.AddTestCandidate(t, h.store, e.ID, "S2201")

	// registration and createElection are approved, the association is not
	limit := 2
	s, _ := h.approvingSession(t, &limit)
	h.useSession(s)
	first, err := h.deployer.DeployElection(ctx, e.ID)
	require.Error(t, err)

	// the leftover election was opened meanwhile and cannot take candidates
	require.NoError(t, h.tl.Ledger.Ledger().UpdateElectionStatus(h.tl.AdminID.Account(), first.LedgerID, ledger.Active))

	limit = 100
	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.LedgerID, resp.LedgerID)

	count, err := h.tl.Ledger.ElectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestDeployRevertKeepsElectionUndeployed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	testutil.AddTestCandidate(t, h.store, e.ID, "S3001")
	testutil.AddTestCandidate(t, h.store, e.ID, "S3002")

	// the ledger already knows the second student
	_, err := h.tl.Ledger.Ledger().RegisterCandidate(h.tl.AdminID.Account(), "S3002", "Science")
	require.NoError(t, err)

	_, err = h.deployer.DeployElection(ctx, e.ID)
	txErr := asTxError(t, err)
	assert.Equal(t, txsubmit.KindInvalidState, txErr.Kind)
	assert.Equal(t, ledger.ReasonDuplicateStudent, txErr.Reason)
	assert.NotEqual(t, common.Hash{}, txErr.TxHash)

	stored, err := h.store.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, stored.Deployed)
}

func TestDeployUnknownElection(t *testing.T) {
	h := newHarness(t)
	_, err := h.deployer.DeployElection(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConfirmDeployment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)

	err := h.deployer.ConfirmDeployment(ctx, e.ID, 99, "0xabc")
	assert.ErrorIs(t, err, txsubmit.ErrNotOnLedger)

	// an election created outside the deployer, e.g. signed in a browser
	w := h.tl.Ledger
	receipt, err := h.submitter.Submit(ctx, txsubmit.OpCreateElection, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return w.CreateElection(opts, ledger.Senator, e.StartTime, e.EndTime)
	})
	require.NoError(t, err)

	require.NoError(t, h.deployer.ConfirmDeployment(ctx, e.ID, receipt.LedgerID, receipt.TxHash.Hex()))

	id, err := h.resolver.ResolveElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.LedgerID, id)

	err = h.deployer.ConfirmDeployment(ctx, e.ID, receipt.LedgerID, receipt.TxHash.Hex())
	assert.ErrorIs(t, err, txsubmit.ErrAlreadyDeployed)
}

func TestConfirmDeploymentChecksTarget(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	senate := h.ledgerElection(t, ledger.Senator)

	pvp := testutil.CreateTestElection(t, h.store, models.TypePresidentVP)
	err := h.deployer.ConfirmDeployment(ctx, pvp.ID, senate, "0xabc")
	assert.ErrorIs(t, err, txsubmit.ErrTypeMismatch)

	first := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	second := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	require.NoError(t, h.deployer.ConfirmDeployment(ctx, first.ID, senate, "0xabc"))

	err = h.deployer.ConfirmDeployment(ctx, second.ID, senate, "0xabc")
	assert.ErrorIs(t, err, txsubmit.ErrLedgerIDTaken)

	for _, id := range []int64{pvp.ID, second.ID} {
		stored, err := h.store.GetElection(ctx, id)
		require.NoError(t, err)
		assert.False(t, stored.Deployed)
		_, err = h.store.GetMapping(ctx, models.KindElection, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestRemap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	second := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	undeployed := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	firstID := h.ledgerElection(t, ledger.Senator)
	secondID := h.ledgerElection(t, ledger.Senator)
	pvpID := h.ledgerElection(t, ledger.PresidentVP)
	spare := h.ledgerElection(t, ledger.Senator)
	require.NoError(t, h.deployer.ConfirmDeployment(ctx, first.ID, firstID, "0x01"))
	require.NoError(t, h.deployer.ConfirmDeployment(ctx, second.ID, secondID, "0x02"))

	_, err := h.deployer.Remap(ctx, undeployed.ID, spare)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.deployer.Remap(ctx, first.ID, 99)
	assert.ErrorIs(t, err, txsubmit.ErrNotOnLedger)
	_, err = h.deployer.Remap(ctx, first.ID, pvpID)
	assert.ErrorIs(t, err, txsubmit.ErrTypeMismatch)
	_, err = h.deployer.Remap(ctx, first.ID, secondID)
	assert.ErrorIs(t, err, txsubmit.ErrLedgerIDTaken)

	id, err := h.resolver.ResolveElection(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, firstID, id, "rejected remaps keep the mapping")

	m, err := h.deployer.Remap(ctx, first.ID, spare)
	require.NoError(t, err)
	assert.Equal(t, spare, m.LedgerID)
	assert.Equal(t, "0x01", m.TxHash)

	id, err = h.resolver.ResolveElection(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, spare, id)
}

func TestDeployWithoutSubmitter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	d := txsubmit.NewDeployer(h.store, h.tl.Ledger, nil, h.verifier, h.resolver)
	assert.False(t, d.CanSign())

	_, err := d.DeployElection(ctx, e.ID)
	assert.ErrorIs(t, err, txsubmit.ErrNoSubmitter)

	// confirmation does not need a signer
	receipt, err := h.submitter.Submit(ctx, txsubmit.OpCreateElection, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return h.tl.Ledger.CreateElection(opts, ledger.Senator, e.StartTime, e.EndTime)
	})
	require.NoError(t, err)
	require.NoError(t, d.ConfirmDeployment(ctx, e.ID, receipt.LedgerID, receipt.TxHash.Hex()))
}

func TestSubmitUnknownClass(t *testing.T) {
	h := newHarness(t)
	called := false
	_, err := h.submitter.Submit(context.Background(), "mint", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		called = true
		return nil, nil
	})
	assert.Equal(t, txsubmit.KindUnknown, asTxError(t, err).Kind)
	assert.False(t, called)
}

func TestSubmitDisconnectedSession(t *testing.T) {
	h := newHarness(t)
	h.useSession(wallet.NewSession(big.NewInt(chain.DefaultChainID)))
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)

	_, err := h.deployer.DeployElection(context.Background(), e.ID)
	assert.Equal(t, txsubmit.KindUserRejected, asTxError(t, err).Kind)
}
