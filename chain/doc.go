// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chain adapts election ledgers behind a single Ledger interface.

Two adapters exist:

  - Simulated runs the in-process ledger.Ledger. Transactions are packed with
    the ElectionLedger ABI and signed through bind.TransactOpts, so wallet
    behaviour (rejection, wrong account, wrong chain) is identical to a node.
  - EVM binds a deployed contracts/ElectionLedger.sol through ethclient.

Writes return the signed transaction; WaitMined turns it into a Receipt,
including the ID a create call assigned. Reverts surface as
*ledger.RevertError from either adapter, so callers classify failures with
errors.Is against the ledger sentinels.

Open picks the adapter from Config:

	l, err := chain.Open(ctx, chain.Config{Variant: chain.VariantEVM, RPCURL: url, ContractAddress: addr})
*/
package chain
