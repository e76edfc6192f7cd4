// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cmd implements electionctl, the operator CLI for campus-vote.

	electionctl scan ids 1 500
	electionctl scan timestamps 2025-09-01 2025-10-01 --interval 1h
	electionctl status 12
	electionctl deploy 12
	electionctl set-status 12 active
	electionctl vote 12 40 --key $VOTER_KEY
	electionctl finalize 12
	electionctl remap 12 7

Commands read the server's configuration (.env, then the environment) and
need an evm ledger. deploy, set-status and finalize sign with DEPLOYER_KEY.
Ledger failures are printed as their kind and fixed message, e.g.

	duplicate_vote: You have already voted in this election
*/
package cmd
