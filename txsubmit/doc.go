// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package txsubmit sends ledger writes and verifies ledger state.
//
// Every write goes through Submitter.Submit: gas comes from a static GasTable
// keyed by operation class, the transaction is signed through a
// wallet.Session, and Submit blocks until the transaction is included.
// Failures are returned as *Error, whose Kind selects a fixed user-facing
// message. Writes are never retried; reads go through a Retrier (three
// attempts, waiting 1s then 2s).
//
// Deployer turns an election from the external store into its ledger
// counterpart and records the ID mapping only once the whole deployment has
// succeeded. Voter and Admin run ballots and lifecycle changes against
// already deployed elections.
package txsubmit
