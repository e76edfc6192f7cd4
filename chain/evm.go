// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is what the EVM adapter needs from a node; *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EVM talks to a deployed ElectionLedger contract.
type EVM struct {
	backend  Backend
	address  common.Address
	contract *bind.BoundContract
}

// DialEVM connects to rpcURL and binds the contract at address.
func DialEVM(ctx context.Context, rpcURL string, address common.Address) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	slog.Info("connected to evm ledger", "rpc_url", rpcURL, "contract", address.Hex())
	return NewEVM(client, address), nil
}

func NewEVM(backend Backend, address common.Address) *EVM {
	return &EVM{
		backend:  backend,
		address:  address,
		contract: bind.NewBoundContract(address, ContractABI, backend, backend, backend),
	}
}

func (e *EVM) Variant() string { return VariantEVM }

func (e *EVM) Address() common.Address { return e.address }

func (e *EVM) transact(opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	tx, err := e.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, DecodeRevert(err)
	}
	slog.Debug("transaction sent", "method", method, "tx_hash", tx.Hash().Hex(), "gas_limit", tx.Gas())
	return tx, nil
}

func (e *EVM) CreateElection(opts *bind.TransactOpts, typ ledger.ElectionType, start, end time.Time) (*types.Transaction, error) {
	return e.transact(opts, "createElection", uint8(typ), big.NewInt(start.Unix()), big.NewInt(end.Unix()))
}

func (e *EVM) RegisterCandidate(opts *bind.TransactOpts, studentID, faculty string) (*types.Transaction, error) {
	return e.transact(opts, "registerCandidate", studentID, faculty)
}

func (e *EVM) AddCandidateToElection(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error) {
	return e.transact(opts, "addCandidateToElection", u256(electionID), u256(candidateID))
}

func (e *EVM) CreateTicket(opts *bind.TransactOpts, presidentID, vpID uint64) (*types.Transaction, error) {
	return e.transact(opts, "createTicket", u256(presidentID), u256(vpID))
}

func (e *EVM) AddTicketToElection(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error) {
	return e.transact(opts, "addTicketToElection", u256(electionID), u256(ticketID))
}

func (e *EVM) UpdateElectionStatus(opts *bind.TransactOpts, electionID uint64, status ledger.Status) (*types.Transaction, error) {
	return e.transact(opts, "updateElectionStatus", u256(electionID), uint8(status))
}

func (e *EVM) VoteForSenator(opts *bind.TransactOpts, electionID, candidateID uint64) (*types.Transaction, error) {
	return e.transact(opts, "voteForSenator", u256(electionID), u256(candidateID))
}

func (e *EVM) VoteForPresidentVP(opts *bind.TransactOpts, electionID, ticketID uint64) (*types.Transaction, error) {
	return e.transact(opts, "voteForPresidentVP", u256(electionID), u256(ticketID))
}

func (e *EVM) FinalizeResults(opts *bind.TransactOpts, electionID uint64) (*types.Transaction, error) {
	return e.transact(opts, "finalizeResults", u256(electionID))
}

// WaitMined blocks until tx has a receipt. For failed receipts the call is
// replayed against the parent block to recover the revert reason.
func (e *EVM) WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, e.failureReason(ctx, tx, receipt)
	}

	r := &Receipt{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if len(tx.Data()) < 4 {
		return r, nil
	}
	method, err := ContractABI.MethodById(tx.Data()[:4])
	if err != nil {
		return r, nil
	}
	eventName, ok := createdEvents[method.Name]
	if !ok {
		return r, nil
	}
	id, err := e.createdID(receipt, ContractABI.Events[eventName])
	if err != nil {
		return nil, fmt.Errorf("%s in tx %s: %w", eventName, receipt.TxHash.Hex(), err)
	}
	r.LedgerID = id
	return r, nil
}

func (e *EVM) createdID(receipt *types.Receipt, event abi.Event) (uint64, error) {
	for _, log := range receipt.Logs {
		if log.Address != e.address || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		return new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, ErrNoCreatedID
}

func (e *EVM) failureReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) error {
	failed := fmt.Errorf("%w: tx %s", ErrTxFailed, receipt.TxHash.Hex())
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil || receipt.BlockNumber == nil {
		return failed
	}
	msg := ethereum.CallMsg{From: from, To: tx.To(), Gas: tx.Gas(), Value: tx.Value(), Data: tx.Data()}
	parent := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	if _, callErr := e.backend.CallContract(ctx, msg, parent); callErr != nil {
		var rev *ledger.RevertError
		if errors.As(DecodeRevert(callErr), &rev) {
			return rev
		}
	}
	return failed
}

func (e *EVM) call(ctx context.Context, out *[]any, method string, args ...any) error {
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...); err != nil {
		return DecodeRevert(err)
	}
	return nil
}

type electionOutput struct {
	Id               *big.Int
	ElectionType     uint8
	Status           uint8
	StartTime        *big.Int
	EndTime          *big.Int
	TotalVotes       *big.Int
	ResultsFinalized bool
	Creator          common.Address
}

func (e *EVM) GetElection(ctx context.Context, id uint64) (ledger.Election, error) {
	var o electionOutput
	out := []any{&o}
	if err := e.call(ctx, &out, "getElection", u256(id)); err != nil {
		return ledger.Election{}, err
	}
	return ledger.Election{
		ID:               o.Id.Uint64(),
		Type:             ledger.ElectionType(o.ElectionType),
		Status:           ledger.Status(o.Status),
		StartTime:        time.Unix(o.StartTime.Int64(), 0).UTC(),
		EndTime:          time.Unix(o.EndTime.Int64(), 0).UTC(),
		TotalVotes:       o.TotalVotes.Uint64(),
		ResultsFinalized: o.ResultsFinalized,
		Creator:          o.Creator,
	}, nil
}

type candidateOutput struct {
	Id        *big.Int
	StudentId string
	Faculty   string
	VoteCount *big.Int
}

func (e *EVM) GetCandidate(ctx context.Context, id uint64) (ledger.Candidate, error) {
	var o candidateOutput
	out := []any{&o}
	if err := e.call(ctx, &out, "getCandidate", u256(id)); err != nil {
		return ledger.Candidate{}, err
	}
	return ledger.Candidate{ID: o.Id.Uint64(), StudentID: o.StudentId, Faculty: o.Faculty, VoteCount: o.VoteCount.Uint64()}, nil
}

type ticketOutput struct {
	Id              *big.Int
	PresidentId     *big.Int
	VicePresidentId *big.Int
	VoteCount       *big.Int
}

func (e *EVM) GetTicket(ctx context.Context, id uint64) (ledger.Ticket, error) {
	var o ticketOutput
	out := []any{&o}
	if err := e.call(ctx, &out, "getTicket", u256(id)); err != nil {
		return ledger.Ticket{}, err
	}
	return ledger.Ticket{
		ID:              o.Id.Uint64(),
		PresidentID:     o.PresidentId.Uint64(),
		VicePresidentID: o.VicePresidentId.Uint64(),
		VoteCount:       o.VoteCount.Uint64(),
	}, nil
}

func (e *EVM) idList(ctx context.Context, method string, electionID uint64) ([]uint64, error) {
	var out []any
	if err := e.call(ctx, &out, method, u256(electionID)); err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, len(raw))
	for i, v := range raw {
		ids[i] = v.Uint64()
	}
	return ids, nil
}

func (e *EVM) uintCall(ctx context.Context, method string, args ...any) (uint64, error) {
	var out []any
	if err := e.call(ctx, &out, method, args...); err != nil {
		return 0, err
	}
	v := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return v.Uint64(), nil
}

func (e *EVM) GetElectionCandidates(ctx context.Context, electionID uint64) ([]uint64, error) {
	return e.idList(ctx, "getElectionCandidates", electionID)
}

func (e *EVM) GetElectionTickets(ctx context.Context, electionID uint64) ([]uint64, error) {
	return e.idList(ctx, "getElectionTickets", electionID)
}

// GetResults assembles the tallies from per-target vote reads.
func (e *EVM) GetResults(ctx context.Context, electionID uint64) ([]ledger.Tally, error) {
	election, err := e.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	list, votes := "getElectionCandidates", "getCandidateVotes"
	if election.Type == ledger.PresidentVP {
		list, votes = "getElectionTickets", "getTicketVotes"
	}
	ids, err := e.idList(ctx, list, electionID)
	if err != nil {
		return nil, err
	}
	results := make([]ledger.Tally, 0, len(ids))
	for _, id := range ids {
		n, err := e.uintCall(ctx, votes, u256(electionID), u256(id))
		if err != nil {
			return nil, err
		}
		results = append(results, ledger.Tally{TargetID: id, Votes: n})
	}
	sortTallies(results)
	return results, nil
}

func (e *EVM) HasVoted(ctx context.Context, electionID uint64, voter common.Address) (bool, error) {
	var out []any
	if err := e.call(ctx, &out, "hasVoted", u256(electionID), voter); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (e *EVM) ElectionCount(ctx context.Context) (uint64, error) {
	return e.uintCall(ctx, "electionCount")
}
