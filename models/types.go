package models

import (
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
)

// Election type values as stored off-ledger
const (
	TypeSenator     = "senator"
	TypePresidentVP = "president_vp"
)

// Mapping kinds
const (
	KindElection  = "election"
	KindCandidate = "candidate"
	KindTicket    = "ticket"
)

// Request types

type CreateElectionRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

type CreateCandidateRequest struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Faculty   string `json:"faculty"`
}

type CreateTicketRequest struct {
	PresidentID     int64 `json:"president_id"`
	VicePresidentID int64 `json:"vice_president_id"`
}

type AddCandidateRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

type AddTicketRequest struct {
	TicketID int64 `json:"ticket_id"`
}

// ConfirmDeploymentRequest reports a deployment signed outside the server.
type ConfirmDeploymentRequest struct {
	LedgerID uint64 `json:"ledger_id"`
	TxHash   string `json:"tx_hash"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

// LedgerTxResponse reports a server-signed ledger write.
type LedgerTxResponse struct {
	ElectionID  int64  `json:"election_id"`
	LedgerID    uint64 `json:"ledger_id"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

type RemapRequest struct {
	LedgerID uint64 `json:"ledger_id"`
}

type IssueTokenRequest struct {
	ElectionID int64  `json:"election_id"`
	StudentID  string `json:"student_id"`
}

type TokenRequest struct {
	ElectionID int64  `json:"election_id"`
	Token      string `json:"token"`
}

// Response types

// IssueTokenResponse carries the only plaintext copy of a voting token.
type IssueTokenResponse struct {
	Token      string `json:"token"`
	ElectionID int64  `json:"election_id"`
	StudentID  string `json:"student_id"`
}

type VerifyTokenResponse struct {
	Valid      bool   `json:"valid"`
	ElectionID int64  `json:"election_id"`
	StudentID  string `json:"student_id,omitempty"`
	Used       bool   `json:"used"`
}

// MappedID pairs an off-ledger ID with the ledger ID it resolved to.
type MappedID struct {
	ExternalID int64  `json:"external_id"`
	LedgerID   uint64 `json:"ledger_id"`
	Created    bool   `json:"created"`
}

type DeployResponse struct {
	ElectionID int64      `json:"election_id"`
	LedgerID   uint64     `json:"ledger_id"`
	TxHash     string     `json:"tx_hash"`
	Variant    string     `json:"ledger_variant"`
	Candidates []MappedID `json:"candidates"`
	Tickets    []MappedID `json:"tickets,omitempty"`
}

type VerificationResponse struct {
	ElectionID int64            `json:"election_id"`
	Deployed   bool             `json:"deployed"`
	Mapping    *Mapping         `json:"mapping,omitempty"`
	OnLedger   bool             `json:"on_ledger"`
	Ledger     *ledger.Election `json:"ledger,omitempty"`
	Results    []ledger.Tally   `json:"results"`
	Problems   []string         `json:"problems,omitempty"`
}

type ScanHit struct {
	Probe    uint64          `json:"probe"`
	Election ledger.Election `json:"election"`
	// ExternalID is set when some off-ledger election already maps to the hit.
	ExternalID *int64 `json:"external_id,omitempty"`
}

type ScanResponse struct {
	Mode   string    `json:"mode"`
	Probes int       `json:"probes"`
	Found  []ScanHit `json:"found"`
}

// Domain types

type Election struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Deployed    bool      `json:"deployed"`
	CreatedAt   time.Time `json:"created_at"`
}

type Candidate struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Faculty   string    `json:"faculty"`
	CreatedAt time.Time `json:"created_at"`
}

type Ticket struct {
	ID              int64     `json:"id"`
	PresidentID     int64     `json:"president_id"`
	VicePresidentID int64     `json:"vice_president_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type ElectionWithEntries struct {
	Election   Election    `json:"election"`
	Candidates []Candidate `json:"candidates"`
	Tickets    []Ticket    `json:"tickets"`
	Mapping    *Mapping    `json:"mapping,omitempty"`
}

// Mapping records the ledger ID an off-ledger record was deployed as.
type Mapping struct {
	Kind       string    `json:"kind"`
	ExternalID int64     `json:"external_id"`
	LedgerID   uint64    `json:"ledger_id"`
	TxHash     string    `json:"tx_hash"`
	Variant    string    `json:"ledger_variant"`
	DeployedAt time.Time `json:"deployed_at"`
}

type VotingToken struct {
	ElectionID int64      `json:"election_id"`
	StudentID  string     `json:"student_id"`
	TokenHash  string     `json:"-"` // Never expose in JSON
	CreatedAt  time.Time  `json:"created_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// LedgerType converts an off-ledger election type.
func LedgerType(t string) (ledger.ElectionType, bool) {
	switch t {
	case TypeSenator:
		return ledger.Senator, true
	case TypePresidentVP:
		return ledger.PresidentVP, true
	}
	return 0, false
}
