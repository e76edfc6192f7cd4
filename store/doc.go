// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the external store: elections, candidates and tickets as the
university knows them, the mapping from their IDs to ledger IDs, and one-time
voting tokens.

	s := store.New(conn)
	e, err := s.CreateElection(ctx, req)

Queries use $N placeholders, which both lib/pq and modernc.org/sqlite accept.

Deployment state has two writers. Candidate and ticket mappings are saved
with SaveMapping as soon as their own ledger transaction confirms. The
election mapping and its deployed flag are only written by MarkDeployed, in a
single database transaction, after the whole deployment succeeded.
*/
package store
