// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package wallet provides signing sessions for ledger writes.

A Session is created explicitly and passed to the components that submit
transactions; there is no package-level wallet state:

	session := wallet.NewSession(chainID)
	if err := session.Connect(ctx, w); err != nil {
		return err
	}
	defer session.Disconnect()

	opts, err := session.TransactOpts(ctx, wallet.Gas{Limit: 300000, ...})

Wallets sign for exactly one account. KeyWallet signs with an in-memory key;
Approving wraps any wallet with a confirmation step, and a declined
confirmation returns ErrUserRejected.
*/
package wallet
