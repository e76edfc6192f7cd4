// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/stretchr/testify/assert"
)

func TestDecodeRevert(t *testing.T) {
	plain := errors.New("connection refused")

	tests := []struct {
		name   string
		err    error
		reason string
		want   error
	}{
		{"rpc data error", revertErr{data: revertData(ledger.ReasonOnlyAdmin)}, ledger.ReasonOnlyAdmin, ledger.ErrUnauthorized},
		{"message only", errors.New("execution reverted: Election is not active"), ledger.ReasonNotActive, ledger.ErrInvalidState},
		{"wrapped message", fmt.Errorf("estimate gas: %w", errors.New("execution reverted: Already voted")), ledger.ReasonAlreadyVoted, ledger.ErrDuplicateVote},
		{"already decoded", &ledger.RevertError{Reason: ledger.ReasonTicketNotFound}, ledger.ReasonTicketNotFound, ledger.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeRevert(tt.err)
			var rev *ledger.RevertError
			if assert.ErrorAs(t, got, &rev) {
				assert.Equal(t, tt.reason, rev.Reason)
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.Equal(t, plain, DecodeRevert(plain))
	assert.NoError(t, DecodeRevert(nil))
}
