// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconcile resolves external-store IDs to ledger IDs.

The ledger assigns its own IDs. Whatever ID a deployment's receipt reported
is written to the ledger_mapping table, and the Resolver only ever returns
that stored value; it does not guess between sequential and timestamp keys.
Elections deployed against the legacy timestamp-keyed ledger simply have
their timestamp stored as the ledger ID.

	r, err := reconcile.NewResolver(st, reconcile.DefaultCacheSize)
	id, err := r.ResolveElection(ctx, electionID)
	if errors.Is(err, reconcile.ErrNotDeployed) {
		// not an error for the user; the election is not on the ledger yet
	}

Lookups go through an LRU cache. Mappings are written once, so entries only
go stale after an explicit remap, which calls Forget.
*/
package reconcile
