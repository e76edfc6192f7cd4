// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and off-ledger domain types.

# Request Types

  - CreateElectionRequest: name, description, type, start_time, end_time
  - CreateCandidateRequest: student_id, name, faculty
  - CreateTicketRequest: president_id, vice_president_id
  - AddCandidateRequest / AddTicketRequest: associate with an election
  - ConfirmDeploymentRequest: ledger_id, tx_hash
  - RemapRequest: ledger_id
  - IssueTokenRequest, TokenRequest: voting tokens

# Response Types

  - DeployResponse: ledger IDs assigned during deployment
  - VerificationResponse: mapping and ledger state side by side
  - ScanResponse: elections found by a ledger scan
  - ErrorResponse: error, message, and kind for blockchain failures

# Domain Types

  - Election, Candidate, Ticket: the off-ledger system of record
  - Mapping: external ID to ledger ID, written once at deployment
  - VotingToken: one-time token, stored hashed

# Constants

Election types:

	TypeSenator     = "senator"
	TypePresidentVP = "president_vp"

Mapping kinds:

	KindElection  = "election"
	KindCandidate = "candidate"
	KindTicket    = "ticket"
*/
package models
