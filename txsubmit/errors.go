// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Kind classifies a failed ledger interaction.
type Kind string

const (
	KindUserRejected      Kind = "user_rejected"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNetwork           Kind = "network"
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindDuplicateVote     Kind = "duplicate_vote"
	KindUnauthorized      Kind = "unauthorized"
	KindReverted          Kind = "reverted"
	KindUnknown           Kind = "unknown"
)

var messages = map[Kind]string{
	KindUserRejected:      "Transaction was rejected in the wallet",
	KindInsufficientFunds: "Insufficient funds to pay for this transaction",
	KindNetwork:           "Unable to reach the blockchain network, please try again",
	KindNotFound:          "The election, candidate or ticket does not exist on the blockchain",
	KindInvalidState:      "This action is not allowed in the election's current state",
	KindDuplicateVote:     "You have already voted in this election",
	KindUnauthorized:      "Only an election administrator can do this",
	KindReverted:          "The blockchain rejected this transaction",
	KindUnknown:           "Unknown blockchain error occurred",
}

// Message is the fixed user-facing text for kind.
func Message(kind Kind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[KindUnknown]
}

// Error is a classified submission or read failure. Error() returns only the
// user-facing message; the cause stays available through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	// Reason is the ledger's revert reason, when there was one.
	Reason string
	TxHash common.Hash
	Err    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Message: Message(kind), Reason: reason, Err: err}
}

// Classify maps any error from a wallet, node or ledger onto the failure
// taxonomy. It returns nil for nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	if errors.Is(err, wallet.ErrUserRejected) || errors.Is(err, wallet.ErrNotConnected) ||
		errors.Is(err, context.Canceled) || containsAny(err, "user rejected", "user denied") {
		return newError(KindUserRejected, "", err)
	}
	if containsAny(err, "insufficient funds") {
		return newError(KindInsufficientFunds, "", err)
	}

	var rev *ledger.RevertError
	if errors.As(chain.DecodeRevert(err), &rev) {
		return newError(revertKind(rev), rev.Reason, rev)
	}
	if errors.Is(err, chain.ErrTxFailed) {
		return newError(KindReverted, "", err)
	}

	if isNetwork(err) {
		return newError(KindNetwork, "", err)
	}
	return newError(KindUnknown, "", err)
}

func revertKind(rev *ledger.RevertError) Kind {
	switch {
	case errors.Is(rev, ledger.ErrNotFound):
		return KindNotFound
	case errors.Is(rev, ledger.ErrDuplicateVote):
		return KindDuplicateVote
	case errors.Is(rev, ledger.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(rev, ledger.ErrInvalidState),
		errors.Is(rev, ledger.ErrAlreadyFinalized),
		errors.Is(rev, ledger.ErrInvalidTicket),
		errors.Is(rev, ledger.ErrInvalidArgument):
		return KindInvalidState
	}
	return KindReverted
}

func isNetwork(err error) bool {
	var netErr net.Error
	var httpErr rpc.HTTPError
	switch {
	case errors.As(err, &netErr),
		errors.As(err, &httpErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return containsAny(err, "connection refused", "no such host", "timeout", "dial tcp")
}

func containsAny(err error, needles ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
