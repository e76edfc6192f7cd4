// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrUserRejected is returned when the account holder declines to sign.
	ErrUserRejected = errors.New("user rejected the request")
	ErrNotConnected = errors.New("wallet session not connected")
	ErrWrongAccount = errors.New("signer does not control the sending account")
	ErrNoWallet     = errors.New("no wallet to connect")
	ErrWrongChain   = errors.New("wallet signs for a different chain")
)

// Wallet signs transactions for a single account.
type Wallet interface {
	Account() common.Address
	SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// KeyWallet holds a private key in memory.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	account common.Address
	chainID *big.Int
	signer  types.Signer
}

// NewKeyWallet parses a hex private key (with or without 0x).
func NewKeyWallet(hexKey string, chainID *big.Int) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newKeyWallet(key, chainID), nil
}

// NewRandomKeyWallet generates a throwaway key. Used by dev tooling and tests.
func NewRandomKeyWallet(chainID *big.Int) (*KeyWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newKeyWallet(key, chainID), nil
}

func newKeyWallet(key *ecdsa.PrivateKey, chainID *big.Int) *KeyWallet {
	return &KeyWallet{
		key:     key,
		account: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
		signer:  types.LatestSignerForChainID(chainID),
	}
}

func (w *KeyWallet) Account() common.Address { return w.account }

// ChainID is the chain the wallet's signatures are valid on.
func (w *KeyWallet) ChainID() *big.Int { return new(big.Int).Set(w.chainID) }

func (w *KeyWallet) SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.SignTx(tx, w.signer, w.key)
}

// ApproveFunc decides whether a transaction may be signed. Returning false
// is a user rejection.
type ApproveFunc func(ctx context.Context, tx *types.Transaction) bool

type approving struct {
	Wallet
	approve ApproveFunc
}

// Approving wraps w so that every signature first passes approve, the way a
// browser wallet shows a confirmation prompt.
func Approving(w Wallet, approve ApproveFunc) Wallet {
	return &approving{Wallet: w, approve: approve}
}

func (a *approving) SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if !a.approve(ctx, tx) {
		return nil, ErrUserRejected
	}
	return a.Wallet.SignTx(ctx, tx)
}
