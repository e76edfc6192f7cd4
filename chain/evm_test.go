// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/wallet"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type callFunc func(args []any) ([]byte, error)

// fakeBackend answers contract calls by method name and mines every sent
// transaction through receiptFor. Methods it does not override panic.
type fakeBackend struct {
	Backend

	mu         sync.Mutex
	calls      map[string]callFunc
	sent       []*types.Transaction
	receiptFor func(tx *types.Transaction) *types.Receipt
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]callFunc)}
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := ContractABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	fn, ok := f.calls[method.Name]
	if !ok {
		return nil, revertErr{data: revertData("no handler for " + method.Name)}
	}
	return fn(args)
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(10), BaseFee: big.NewInt(1)}, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return f.receiptFor(tx), nil
		}
	}
	return nil, ethereum.NotFound
}

type revertErr struct{ data string }

func (e revertErr) Error() string  { return "execution reverted" }
func (e revertErr) ErrorData() any { return e.data }

func revertData(reason string) string {
	strType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: strType}}.Pack(reason)
	return hexutil.Encode(append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...))
}

func pack(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	out, err := ContractABI.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

func TestEVMGetElection(t *testing.T) {
	backend := newFakeBackend()
	creator := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	backend.calls["getElection"] = func(args []any) ([]byte, error) {
		if args[0].(*big.Int).Uint64() != 7 {
			return nil, revertErr{data: revertData(ledger.ReasonElectionNotFound)}
		}
		return pack(t, "getElection", big.NewInt(7), uint8(1), uint8(2),
			big.NewInt(1_700_000_000), big.NewInt(1_700_003_600), big.NewInt(42), true, creator), nil
	}
	evm := NewEVM(backend, contractAddr)
	ctx := context.Background()

	e, err := evm.GetElection(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ledger.Election{
		ID:               7,
		Type:             ledger.PresidentVP,
		Status:           ledger.Completed,
		StartTime:        time.Unix(1_700_000_000, 0).UTC(),
		EndTime:          time.Unix(1_700_003_600, 0).UTC(),
		TotalVotes:       42,
		ResultsFinalized: true,
		Creator:          creator,
	}, e)

	_, err = evm.GetElection(ctx, 8)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestEVMResultsSorted(t *testing.T) {
	backend := newFakeBackend()
	backend.calls["getElection"] = func([]any) ([]byte, error) {
		return pack(t, "getElection", big.NewInt(1), uint8(0), uint8(1),
			big.NewInt(1), big.NewInt(2), big.NewInt(6), false, common.Address{}), nil
	}
	backend.calls["getElectionCandidates"] = func([]any) ([]byte, error) {
		return pack(t, "getElectionCandidates", []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}), nil
	}
	votes := map[uint64]int64{1: 1, 2: 3, 3: 3}
	backend.calls["getCandidateVotes"] = func(args []any) ([]byte, error) {
		return pack(t, "getCandidateVotes", big.NewInt(votes[args[1].(*big.Int).Uint64()])), nil
	}
	evm := NewEVM(backend, contractAddr)

	results, err := evm.GetResults(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Tally{{TargetID: 2, Votes: 3}, {TargetID: 3, Votes: 3}, {TargetID: 1, Votes: 1}}, results)
}

func TestEVMReads(t *testing.T) {
	backend := newFakeBackend()
	backend.calls["getCandidate"] = func([]any) ([]byte, error) {
		return pack(t, "getCandidate", big.NewInt(3), "S300", "Science", big.NewInt(9)), nil
	}
	backend.calls["getTicket"] = func([]any) ([]byte, error) {
		return pack(t, "getTicket", big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)), nil
	}
	backend.calls["hasVoted"] = func([]any) ([]byte, error) {
		return pack(t, "hasVoted", true), nil
	}
	backend.calls["electionCount"] = func([]any) ([]byte, error) {
		return pack(t, "electionCount", big.NewInt(12)), nil
	}
	evm := NewEVM(backend, contractAddr)
	ctx := context.Background()

	c, err := evm.GetCandidate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, ledger.Candidate{ID: 3, StudentID: "S300", Faculty: "Science", VoteCount: 9}, c)

	tk, err := evm.GetTicket(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ledger.Ticket{ID: 2, PresidentID: 3, VicePresidentID: 4, VoteCount: 5}, tk)

	voted, err := evm.HasVoted(ctx, 1, common.Address{})
	require.NoError(t, err)
	assert.True(t, voted)

	n, err := evm.ElectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)
}

func TestEVMWaitMinedExtractsCreatedID(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptFor = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      tx.Hash(),
			BlockNumber: big.NewInt(11),
			GasUsed:     90_000,
			Logs: []*types.Log{{
				Address: contractAddr,
				Topics: []common.Hash{
					ContractABI.Events["ElectionCreated"].ID,
					common.BigToHash(big.NewInt(5)),
					common.BytesToHash(common.Address{}.Bytes()),
				},
			}},
		}
	}
	evm := NewEVM(backend, contractAddr)

	admin, err := wallet.NewRandomKeyWallet(testChainID)
	require.NoError(t, err)
	session := newSession(t, admin)
	ctx := context.Background()

	start := time.Now().Add(time.Hour)
	tx, err := evm.CreateElection(opts(t, session), ledger.Senator, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), tx.Gas())

	r, err := evm.WaitMined(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), r.LedgerID)
	assert.Equal(t, uint64(11), r.BlockNumber)
	assert.Equal(t, uint64(90_000), r.GasUsed)
}

func TestEVMWaitMinedRecoversRevertReason(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptFor = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash(), BlockNumber: big.NewInt(11)}
	}
	backend.calls["voteForSenator"] = func([]any) ([]byte, error) {
		return nil, revertErr{data: revertData(ledger.ReasonAlreadyVoted)}
	}
	evm := NewEVM(backend, contractAddr)

	voter, err := wallet.NewRandomKeyWallet(testChainID)
	require.NoError(t, err)
	tx, err := evm.VoteForSenator(opts(t, newSession(t, voter)), 1, 2)
	require.NoError(t, err)

	_, err = evm.WaitMined(context.Background(), tx)
	assert.ErrorIs(t, err, ledger.ErrDuplicateVote)
}

func TestEVMWaitMinedUnknownFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptFor = func(tx *types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash(), BlockNumber: big.NewInt(11)}
	}
	backend.calls["finalizeResults"] = func([]any) ([]byte, error) { return nil, nil }
	evm := NewEVM(backend, contractAddr)

	admin, err := wallet.NewRandomKeyWallet(testChainID)
	require.NoError(t, err)
	tx, err := evm.FinalizeResults(opts(t, newSession(t, admin)), 1)
	require.NoError(t, err)

	_, err = evm.WaitMined(context.Background(), tx)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestOpenValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Config{Variant: VariantEVM})
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = Open(ctx, Config{Variant: VariantEVM, RPCURL: "http://localhost:8545", ContractAddress: "nope"})
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = Open(ctx, Config{Variant: "fabric"})
	assert.ErrorIs(t, err, ErrBadConfig)

	l, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, VariantSimulated, l.Variant())
}
