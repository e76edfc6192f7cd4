// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Variant names, also persisted with every ID mapping.
const (
	VariantSimulated          = "simulated"
	VariantSimulatedTimestamp = "simulated-timestamp"
	VariantEVM                = "evm"
)

var (
	ErrUnknownTx   = errors.New("transaction not known to ledger")
	ErrTxFailed    = errors.New("transaction failed without a revert reason")
	ErrBadConfig   = errors.New("invalid ledger configuration")
	ErrNoCreatedID = errors.New("receipt carries no created ID")
)

//go:embed abi.json
var abiJSON string

// ContractABI is the ElectionLedger contract interface shared by both adapters.
var ContractABI = mustParseABI(abiJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid embedded ABI: %v", err))
	}
	return parsed
}

// Writer submits state-changing calls. Every call is signed through
// opts.Signer and returns the transaction to wait on.
type Writer interface {
	CreateElection(opts *bind.TransactOpts, typ ledger.ElectionType, start, end time.Time) (*types.Transaction, error)
	RegisterCandidate(opts *bind.TransactOpts, studentID, faculty string) (*types.Transaction, error)
	AddCandidateToElection(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error)
	CreateTicket(opts *bind.TransactOpts, presidentID, vpID uint64) (*types.Transaction, error)
	AddTicketToElection(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error)
	UpdateElectionStatus(opts *bind.TransactOpts, electionID uint64, status ledger.Status) (*types.Transaction, error)
	VoteForSenator(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error)
	VoteForPresidentVP(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error)
	FinalizeResults(opts *bind.TransactOpts, electionID uint64) (*types.Transaction, error)
}

// Reader exposes the ledger's read-only calls. Unknown IDs fail with an
// error that unwraps to ledger.ErrNotFound.
type Reader interface {
	GetElection(ctx context.Context, id uint64) (ledger.Election, error)
	GetCandidate(ctx context.Context, id uint64) (ledger.Candidate, error)
	GetTicket(ctx context.Context, id uint64) (ledger.Ticket, error)
	GetElectionCandidates(ctx context.Context, electionID uint64) ([]uint64, error)
	GetElectionTickets(ctx context.Context, electionID uint64) ([]uint64, error)
	GetResults(ctx context.Context, electionID uint64) ([]ledger.Tally, error)
	HasVoted(ctx context.Context, electionID uint64, voter common.Address) (bool, error)
	ElectionCount(ctx context.Context) (uint64, error)
}

// Ledger is one deployed election ledger.
type Ledger interface {
	Writer
	Reader
	// WaitMined blocks until tx is included. A failed inclusion returns
	// the revert as *ledger.RevertError when the reason is recoverable.
	WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error)
	Variant() string
}

// Receipt is the result of an included transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// LedgerID is the ID created by the transaction, zero for calls that
	// create nothing.
	LedgerID uint64
}

// Config selects and configures an adapter.
type Config struct {
	Variant  string // VariantSimulated (default) or VariantEVM
	IDScheme ledger.IDScheme
	ChainID  *big.Int

	// Owner is the simulated ledger's owner and first admin.
	Owner common.Address

	RPCURL          string
	ContractAddress string
}

// Open returns the adapter Config names.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	chainID := cfg.ChainID
	if chainID == nil {
		chainID = big.NewInt(DefaultChainID)
	}
	switch cfg.Variant {
	case "", VariantSimulated, VariantSimulatedTimestamp:
		var opts []ledger.Option
		if cfg.IDScheme == ledger.TimestampIDs || cfg.Variant == VariantSimulatedTimestamp {
			opts = append(opts, ledger.WithTimestampIDs())
		}
		return NewSimulated(chainID, ledger.New(cfg.Owner, opts...)), nil
	case VariantEVM:
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("%w: evm ledger requires an RPC URL", ErrBadConfig)
		}
		if !common.IsHexAddress(cfg.ContractAddress) {
			return nil, fmt.Errorf("%w: invalid contract address %q", ErrBadConfig, cfg.ContractAddress)
		}
		evm, err := DialEVM(ctx, cfg.RPCURL, common.HexToAddress(cfg.ContractAddress))
		if err != nil {
			return nil, err
		}
		return evm, nil
	default:
		return nil, fmt.Errorf("%w: unknown ledger variant %q", ErrBadConfig, cfg.Variant)
	}
}

// DefaultChainID matches a local development node.
const DefaultChainID = 31337

// createdEvents names the event whose first indexed topic is the ID a
// method creates.
var createdEvents = map[string]string{
	"createElection":    "ElectionCreated",
	"registerCandidate": "CandidateRegistered",
	"createTicket":      "TicketCreated",
}

// sortTallies orders most votes first, ties by ascending ID.
func sortTallies(t []ledger.Tally) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Votes != t[j].Votes {
			return t[i].Votes > t[j].Votes
		}
		return t[i].TargetID < t[j].TargetID
	})
}
