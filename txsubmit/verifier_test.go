// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/testutil"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// droppingReader fails the first failures GetElection calls with a dial
// error, then reads through.
type droppingReader struct {
	chain.Reader
	failures int
	calls    int
}

func (r *droppingReader) GetElection(ctx context.Context, id uint64) (ledger.Election, error) {
	r.calls++
	if r.calls <= r.failures {
		return ledger.Election{}, errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	}
	return r.Reader.GetElection(ctx, id)
}

func TestCheckRetriesLedgerRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	testutil.AddTestCandidate(t, h.store, e.ID, "S4001")
	resp, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)

	reader := &droppingReader{Reader: h.tl.Ledger, failures: 1}
	retry, waits := recordingRetrier()
	v := txsubmit.NewVerifier(reader, retry)

	report, err := h.resolver.Check(ctx, v.ElectionState, e.ID)
	require.NoError(t, err)
	assert.True(t, report.OnLedger)
	assert.True(t, report.Consistent())
	require.NotNil(t, report.Election)
	assert.Equal(t, resp.LedgerID, report.Election.ID)
	assert.Equal(t, 2, reader.calls)
	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestCheckDoesNotRetryMissingElection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := testutil.CreateTestElection(t, h.store, models.TypeSenator)
	_, err := h.deployer.DeployElection(ctx, e.ID)
	require.NoError(t, err)
	_, err = h.store.Remap(ctx, models.KindElection, e.ID, 4242, chain.VariantSimulated)
	require.NoError(t, err)
	h.resolver.Forget(models.KindElection, e.ID)

	reader := &droppingReader{Reader: h.tl.Ledger}
	retry, waits := recordingRetrier()
	v := txsubmit.NewVerifier(reader, retry)

	report, err := h.resolver.Check(ctx, v.ElectionState, e.ID)
	require.NoError(t, err)
	assert.False(t, report.OnLedger)
	assert.Len(t, report.Problems, 1)
	assert.Equal(t, 1, reader.calls)
	assert.Empty(t, *waits)
}
