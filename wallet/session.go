// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gas is the static fee model applied to one submission.
type Gas struct {
	Limit       uint64
	PriorityFee *big.Int // wei
	MaxFee      *big.Int // wei
}

// Session is a user-authorized signing session. Create one per signer and
// pass it to whatever needs to submit transactions.
type Session struct {
	mu      sync.RWMutex
	chainID *big.Int
	wallet  Wallet
}

func NewSession(chainID *big.Int) *Session {
	return &Session{chainID: new(big.Int).Set(chainID)}
}

// Connect attaches w. Connecting an already connected session replaces the
// wallet. A wallet that reports its chain must sign for the session's chain.
func (s *Session) Connect(ctx context.Context, w Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w == nil {
		return ErrNoWallet
	}
	if c, ok := w.(interface{ ChainID() *big.Int }); ok && c.ChainID().Cmp(s.chainID) != 0 {
		return fmt.Errorf("%w: wallet chain %s, session chain %s", ErrWrongChain, c.ChainID(), s.chainID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = w
	slog.Info("wallet session connected", "account", w.Account().Hex(), "chain_id", s.chainID)
	return nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		slog.Info("wallet session disconnected", "account", s.wallet.Account().Hex())
	}
	s.wallet = nil
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet != nil
}

func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Account returns the connected account.
func (s *Session) Account() (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return common.Address{}, ErrNotConnected
	}
	return s.wallet.Account(), nil
}

// TransactOpts builds options for one write call. The signer refuses any
// account other than the connected one.
func (s *Session) TransactOpts(ctx context.Context, gas Gas) (*bind.TransactOpts, error) {
	s.mu.RLock()
	w := s.wallet
	s.mu.RUnlock()
	if w == nil {
		return nil, ErrNotConnected
	}

	account := w.Account()
	opts := &bind.TransactOpts{
		From: account,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if from != account {
				return nil, ErrWrongAccount
			}
			return w.SignTx(ctx, tx)
		},
		GasLimit: gas.Limit,
		Context:  ctx,
	}
	if gas.PriorityFee != nil {
		opts.GasTipCap = new(big.Int).Set(gas.PriorityFee)
	}
	if gas.MaxFee != nil {
		opts.GasFeeCap = new(big.Int).Set(gas.MaxFee)
	}
	return opts, nil
}
