// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoSigner = errors.New("transact options carry no signer")

// SimulatedAddress is the contract address reported by simulated transactions.
var SimulatedAddress = common.HexToAddress("0x00000000000000000000000000000000000e1ec7")

const (
	simulatedDefaultGas = 1_000_000
	txGas               = 21_000
	txDataGas           = 16
)

type simResult struct {
	receipt *Receipt
	err     error
}

// Simulated runs transactions against an in-process ledger.Ledger. Every
// transaction is packed with the contract ABI, signed through the caller's
// TransactOpts and verified before it executes, then "mined" into its own
// block.
type Simulated struct {
	mu      sync.Mutex
	chainID *big.Int
	signer  types.Signer
	ledger  *ledger.Ledger
	nonces  map[common.Address]uint64
	block   uint64
	results map[common.Hash]simResult
}

func NewSimulated(chainID *big.Int, l *ledger.Ledger) *Simulated {
	return &Simulated{
		chainID: new(big.Int).Set(chainID),
		signer:  types.LatestSignerForChainID(chainID),
		ledger:  l,
		nonces:  make(map[common.Address]uint64),
		results: make(map[common.Hash]simResult),
	}
}

// Ledger returns the underlying state machine.
func (s *Simulated) Ledger() *ledger.Ledger { return s.ledger }

func (s *Simulated) Variant() string {
	if s.ledger.Scheme() == ledger.TimestampIDs {
		return VariantSimulatedTimestamp
	}
	return VariantSimulated
}

// submit signs and executes one call. A revert still consumes the nonce and
// is reported by WaitMined, as it would be on a chain.
func (s *Simulated) submit(opts *bind.TransactOpts, method string, exec func(from common.Address) (uint64, error), args ...any) (*types.Transaction, error) {
	if opts == nil || opts.Signer == nil {
		return nil, ErrNoSigner
	}
	if opts.Context != nil {
		if err := opts.Context.Err(); err != nil {
			return nil, err
		}
	}
	data, err := ContractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gas := opts.GasLimit
	if gas == 0 {
		gas = simulatedDefaultGas
	}
	tip, feeCap := big.NewInt(0), big.NewInt(0)
	if opts.GasTipCap != nil {
		tip = opts.GasTipCap
	}
	if opts.GasFeeCap != nil {
		feeCap = opts.GasFeeCap
	}
	to := SimulatedAddress
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     s.nonces[opts.From],
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signed, err := opts.Signer(opts.From, tx)
	if err != nil {
		return nil, err
	}
	from, err := types.Sender(s.signer, signed)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction signature: %w", err)
	}
	if from != opts.From {
		return nil, fmt.Errorf("signature from %s does not match sender %s", from.Hex(), opts.From.Hex())
	}

	s.nonces[from]++
	s.block++
	used := uint64(txGas + txDataGas*len(data))
	receipt := &Receipt{TxHash: signed.Hash(), BlockNumber: s.block, GasUsed: min(used, gas)}

	var execErr error
	if used > gas {
		execErr = fmt.Errorf("%w: out of gas", ErrTxFailed)
	} else {
		receipt.LedgerID, execErr = exec(from)
	}
	s.results[signed.Hash()] = simResult{receipt: receipt, err: execErr}
	return signed, nil
}

func (s *Simulated) WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	res, ok := s.results[tx.Hash()]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownTx
	}
	if res.err != nil {
		return nil, res.err
	}
	r := *res.receipt
	return &r, nil
}

func (s *Simulated) CreateElection(opts *bind.TransactOpts, typ ledger.ElectionType, start, end time.Time) (*types.Transaction, error) {
	return s.submit(opts, "createElection", func(from common.Address) (uint64, error) {
		return s.ledger.CreateElection(from, typ, start, end)
	}, uint8(typ), big.NewInt(start.Unix()), big.NewInt(end.Unix()))
}

func (s *Simulated) RegisterCandidate(opts *bind.TransactOpts, studentID, faculty string) (*types.Transaction, error) {
	return s.submit(opts, "registerCandidate", func(from common.Address) (uint64, error) {
		return s.ledger.RegisterCandidate(from, studentID, faculty)
	}, studentID, faculty)
}

func (s *Simulated) AddCandidateToElection(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error) {
	return s.submit(opts, "addCandidateToElection", func(from common.Address) (uint64, error) {
		return 0, s.ledger.AddCandidateToElection(from, electionID, candidateID)
	}, u256(electionID), u256(candidateID))
}

func (s *Simulated) CreateTicket(opts *bind.TransactOpts, presidentID, vpID uint64) (*types.Transaction, error) {
	return s.submit(opts, "createTicket", func(from common.Address) (uint64, error) {
		return s.ledger.CreateTicket(from, presidentID, vpID)
	}, u256(presidentID), u256(vpID))
}

func (s *Simulated) AddTicketToElection(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error) {
	return s.submit(opts, "addTicketToElection", func(from common.Address) (uint64, error) {
		return 0, s.ledger.AddTicketToElection(from, electionID, ticketID)
	}, u256(electionID), u256(ticketID))
}

func (s *Simulated) UpdateElectionStatus(opts *bind.TransactOpts, electionID uint64, status ledger.Status) (*types.Transaction, error) {
	return s.submit(opts, "updateElectionStatus", func(from common.Address) (uint64, error) {
		return 0, s.ledger.UpdateElectionStatus(from, electionID, status)
	}, u256(electionID), uint8(status))
}

func (s *Simulated) VoteForSenator(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error) {
	return s.submit(opts, "voteForSenator", func(from common.Address) (uint64, error) {
		return 0, s.ledger.VoteForSenator(from, electionID, candidateID)
	}, u256(electionID), u256(candidateID))
}

func (s *Simulated) VoteForPresidentVP(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error) {
	return s.submit(opts, "voteForPresidentVP", func(from common.Address) (uint64, error) {
		return 0, s.ledger.VoteForPresidentVP(from, electionID, ticketID)
	}, u256(electionID), u256(ticketID))
}

func (s *Simulated) FinalizeResults(opts *bind.TransactOpts, electionID uint64) (*types.Transaction, error) {
	return s.submit(opts, "finalizeResults", func(from common.Address) (uint64, error) {
		return 0, s.ledger.FinalizeResults(from, electionID)
	}, u256(electionID))
}

func (s *Simulated) GetElection(ctx context.Context, id uint64) (ledger.Election, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Election{}, err
	}
	return s.ledger.Election(id)
}

func (s *Simulated) GetCandidate(ctx context.Context, id uint64) (ledger.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Candidate{}, err
	}
	return s.ledger.Candidate(id)
}

func (s *Simulated) GetTicket(ctx context.Context, id uint64) (ledger.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Ticket{}, err
	}
	return s.ledger.Ticket(id)
}

func (s *Simulated) GetElectionCandidates(ctx context.Context, electionID uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.ElectionCandidates(electionID)
}

func (s *Simulated) GetElectionTickets(ctx context.Context, electionID uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.ElectionTickets(electionID)
}

func (s *Simulated) GetResults(ctx context.Context, electionID uint64) ([]ledger.Tally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.Results(electionID)
}

func (s *Simulated) HasVoted(ctx context.Context, electionID uint64, voter common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.ledger.HasVoted(electionID, voter)
}

func (s *Simulated) ElectionCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return uint64(s.ledger.ElectionCount()), nil
}

func u256(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
