// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGasTableCoversEveryClass(t *testing.T) {
	table := txsubmit.DefaultGasTable()
	for _, class := range txsubmit.OpClasses {
		p, err := table.Params(class)
		require.NoError(t, err, class)
		assert.NotZero(t, p.GasLimit, class)
		assert.LessOrEqual(t, p.PriorityFeeGwei, p.MaxFeeGwei, class)
	}

	_, err := table.Params("mint")
	assert.ErrorIs(t, err, txsubmit.ErrUnknownOpClass)
}

func TestGasParamsWallet(t *testing.T) {
	gas := txsubmit.GasParams{GasLimit: 150_000, PriorityFeeGwei: 30, MaxFeeGwei: 1.5}.Wallet()

	assert.Equal(t, uint64(150_000), gas.Limit)
	assert.Equal(t, 0, gas.PriorityFee.Cmp(big.NewInt(30_000_000_000)))
	assert.Equal(t, 0, gas.MaxFee.Cmp(big.NewInt(1_500_000_000)))
}

func TestParseGasTable(t *testing.T) {
	table, err := txsubmit.ParseGasTable([]byte(`
vote:
  gas_limit: 90000
  priority_fee_gwei: 2
  max_fee_gwei: 4
`))
	require.NoError(t, err)

	vote, err := table.Params(txsubmit.OpVote)
	require.NoError(t, err)
	assert.Equal(t, txsubmit.GasParams{GasLimit: 90_000, PriorityFeeGwei: 2, MaxFeeGwei: 4}, vote)

	// untouched classes keep their defaults
	create, err := table.Params(txsubmit.OpCreateElection)
	require.NoError(t, err)
	assert.Equal(t, txsubmit.DefaultGasTable()[txsubmit.OpCreateElection], create)
}

func TestParseGasTableErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown class", "mint:\n  gas_limit: 1\n"},
		{"unknown field", "vote:\n  gas_limit: 1\n  tip: 3\n"},
		{"zero limit", "vote:\n  gas_limit: 0\n"},
		{"max below priority", "vote:\n  gas_limit: 1\n  priority_fee_gwei: 5\n  max_fee_gwei: 1\n"},
		{"negative fee", "vote:\n  gas_limit: 1\n  priority_fee_gwei: -1\n"},
		{"not yaml", "vote: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := txsubmit.ParseGasTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadGasTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("finalize:\n  gas_limit: 123456\n  priority_fee_gwei: 1\n  max_fee_gwei: 2\n"), 0o600))

	table, err := txsubmit.LoadGasTable(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456), table[txsubmit.OpFinalize].GasLimit)

	_, err = txsubmit.LoadGasTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
