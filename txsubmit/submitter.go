// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/wallet"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

// SendFunc issues one ledger write with the prepared options.
type SendFunc func(opts *bind.TransactOpts) (*types.Transaction, error)

// Submitter sends ledger writes through a signing session and waits for
// them to be included.
type Submitter struct {
	ledger  chain.Ledger
	session *wallet.Session
	gas     GasTable
}

func NewSubmitter(l chain.Ledger, session *wallet.Session, gas GasTable) *Submitter {
	if gas == nil {
		gas = DefaultGasTable()
	}
	return &Submitter{ledger: l, session: session, gas: gas}
}

func (s *Submitter) Ledger() chain.Ledger { return s.ledger }

func (s *Submitter) Session() *wallet.Session { return s.session }

// Submit signs and sends one write using the class's gas parameters, then
// blocks until it is included. Every failure comes back as *Error. A failed
// write is not retried.
func (s *Submitter) Submit(ctx context.Context, class OpClass, send SendFunc) (*chain.Receipt, error) {
	params, err := s.gas.Params(class)
	if err != nil {
		return nil, newError(KindUnknown, "", err)
	}
	opts, err := s.session.TransactOpts(ctx, params.Wallet())
	if err != nil {
		return nil, Classify(err)
	}

	tx, err := send(opts)
	if err != nil {
		cerr := Classify(err)
		slog.Warn("transaction not sent", "op", class, "kind", cerr.Kind, "reason", cerr.Reason, "error", err)
		return nil, cerr
	}
	slog.Info("transaction sent",
		"op", class,
		"tx_hash", tx.Hash().Hex(),
		"from", opts.From.Hex(),
		"gas_limit", humanize.Comma(int64(tx.Gas())),
	)

	receipt, err := s.ledger.WaitMined(ctx, tx)
	if err != nil {
		cerr := Classify(err)
		cerr.TxHash = tx.Hash()
		slog.Warn("transaction failed", "op", class, "tx_hash", tx.Hash().Hex(), "kind", cerr.Kind, "reason", cerr.Reason, "error", err)
		return nil, cerr
	}
	slog.Info("transaction included",
		"op", class,
		"tx_hash", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber,
		"gas_used", humanize.Comma(int64(receipt.GasUsed)),
		"ledger_id", receipt.LedgerID,
	)
	return receipt, nil
}
