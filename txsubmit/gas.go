// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/danielhkuo/campus-vote/wallet"
	"github.com/ethereum/go-ethereum/params"
	"gopkg.in/yaml.v2"
)

// OpClass groups ledger writes that share gas parameters.
type OpClass string

const (
	OpCreateElection    OpClass = "create_election"
	OpRegisterCandidate OpClass = "register_candidate"
	OpAddCandidate      OpClass = "add_candidate"
	OpCreateTicket      OpClass = "create_ticket"
	OpAddTicket         OpClass = "add_ticket"
	OpUpdateStatus      OpClass = "update_status"
	OpVote              OpClass = "vote"
	OpFinalize          OpClass = "finalize"
)

// OpClasses lists every class in a stable order.
var OpClasses = []OpClass{
	OpCreateElection, OpRegisterCandidate, OpAddCandidate, OpCreateTicket,
	OpAddTicket, OpUpdateStatus, OpVote, OpFinalize,
}

var ErrUnknownOpClass = errors.New("unknown operation class")

// GasParams are the fixed fee settings for one operation class. Fees are in
// gwei.
type GasParams struct {
	GasLimit        uint64  `yaml:"gas_limit"`
	PriorityFeeGwei float64 `yaml:"priority_fee_gwei"`
	MaxFeeGwei      float64 `yaml:"max_fee_gwei"`
}

// Wallet converts the params to the session's wei-denominated form.
func (p GasParams) Wallet() wallet.Gas {
	return wallet.Gas{
		Limit:       p.GasLimit,
		PriorityFee: gweiToWei(p.PriorityFeeGwei),
		MaxFee:      gweiToWei(p.MaxFeeGwei),
	}
}

func gweiToWei(g float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(g), big.NewFloat(params.GWei)).Int(nil)
	return wei
}

func (p GasParams) validate() error {
	if p.GasLimit == 0 {
		return errors.New("gas_limit must be positive")
	}
	if p.PriorityFeeGwei < 0 || p.MaxFeeGwei < 0 {
		return errors.New("fees must not be negative")
	}
	if p.MaxFeeGwei < p.PriorityFeeGwei {
		return errors.New("max_fee_gwei must be at least priority_fee_gwei")
	}
	return nil
}

// GasTable is the static fee model. It is never adjusted from live network
// fee data.
type GasTable map[OpClass]GasParams

// DefaultGasTable is used when no GAS_TABLE file is configured.
func DefaultGasTable() GasTable {
	const priority, maxFee = 30, 60
	return GasTable{
		OpCreateElection:    {GasLimit: 500_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpRegisterCandidate: {GasLimit: 300_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpAddCandidate:      {GasLimit: 200_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpCreateTicket:      {GasLimit: 250_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpAddTicket:         {GasLimit: 200_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpUpdateStatus:      {GasLimit: 100_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpVote:              {GasLimit: 150_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
		OpFinalize:          {GasLimit: 100_000, PriorityFeeGwei: priority, MaxFeeGwei: maxFee},
	}
}

// LoadGasTable reads a YAML gas table. Classes missing from the file keep
// their defaults.
func LoadGasTable(path string) (GasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gas table: %w", err)
	}
	return ParseGasTable(data)
}

func ParseGasTable(data []byte) (GasTable, error) {
	var file map[string]GasParams
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse gas table: %w", err)
	}

	table := DefaultGasTable()
	for name, p := range file {
		class := OpClass(name)
		if _, ok := table[class]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOpClass, name)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("gas table %s: %w", name, err)
		}
		table[class] = p
	}
	return table, nil
}

// Params returns the parameters for class.
func (t GasTable) Params(class OpClass) (GasParams, error) {
	p, ok := t[class]
	if !ok {
		return GasParams{}, fmt.Errorf("%w: %q", ErrUnknownOpClass, class)
	}
	return p, nil
}
