// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/db"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/reconcile"
	"github.com/danielhkuo/campus-vote/scan"
	"github.com/danielhkuo/campus-vote/store"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/danielhkuo/campus-vote/wallet"
)

// TestAdminKey is the admin API key in GetTestConfig
const TestAdminKey = "test-admin-key"

// SetupTestDB creates a fresh sqlite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "file::memory:",
		DatabaseType:  db.TypeSQLite,
		AdminAPIKey:   TestAdminKey,
		TokenSalt:     "test-token-salt",
		LedgerVariant: chain.VariantSimulated,
		ChainID:       big.NewInt(chain.DefaultChainID),
	}
}

// AdminHeaders returns the header set for admin endpoints
func AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": TestAdminKey}
}

// TestLedger bundles a simulated ledger with a connected admin session.
type TestLedger struct {
	Ledger  *chain.Simulated
	Admin   *wallet.Session
	AdminID *wallet.KeyWallet
}

// NewTestLedger creates a simulated ledger owned by a fresh admin key.
func NewTestLedger(t *testing.T) TestLedger {
	t.Helper()

	chainID := big.NewInt(chain.DefaultChainID)
	admin, err := wallet.NewRandomKeyWallet(chainID)
	if err != nil {
		t.Fatalf("Failed to create admin wallet: %v", err)
	}
	session := wallet.NewSession(chainID)
	if err := session.Connect(context.Background(), admin); err != nil {
		t.Fatalf("Failed to connect admin session: %v", err)
	}
	return TestLedger{
		Ledger:  chain.NewSimulated(chainID, ledger.New(admin.Account())),
		Admin:   session,
		AdminID: admin,
	}
}

// NewVoterSession returns a session connected to a fresh random key.
func NewVoterSession(t *testing.T) (*wallet.Session, *wallet.KeyWallet) {
	t.Helper()

	chainID := big.NewInt(chain.DefaultChainID)
	w, err := wallet.NewRandomKeyWallet(chainID)
	if err != nil {
		t.Fatalf("Failed to create voter wallet: %v", err)
	}
	s := wallet.NewSession(chainID)
	if err := s.Connect(context.Background(), w); err != nil {
		t.Fatalf("Failed to connect voter session: %v", err)
	}
	return s, w
}

// NoWaitRetrier is the default read retrier without real sleeps
func NoWaitRetrier() txsubmit.Retrier {
	r := txsubmit.DefaultRetrier()
	r.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return r
}

// TestServices wires a store and a simulated ledger the way main does, with
// the admin session as the server's signer.
type TestServices struct {
	TestLedger
	Store    *store.Store
	Resolver *reconcile.Resolver
	Verifier *txsubmit.Verifier
	Deployer *txsubmit.Deployer
	Admin    *txsubmit.Admin
	Scanner  *scan.Scanner
}

func NewTestServices(t *testing.T) TestServices {
	t.Helper()

	st := store.New(SetupTestDB(t))
	tl := NewTestLedger(t)
	resolver, err := reconcile.NewResolver(st, 0)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	verifier := txsubmit.NewVerifier(tl.Ledger, NoWaitRetrier())
	submitter := txsubmit.NewSubmitter(tl.Ledger, tl.Admin, nil)

	return TestServices{
		TestLedger: tl,
		Store:      st,
		Resolver:   resolver,
		Verifier:   verifier,
		Deployer:   txsubmit.NewDeployer(st, tl.Ledger, submitter, verifier, resolver),
		Admin:      txsubmit.NewAdmin(submitter, resolver),
		Scanner:    scan.NewScanner(tl.Ledger),
	}
}

// CreateTestElection inserts an election starting in one hour
func CreateTestElection(t *testing.T, s *store.Store, typ string) models.Election {
	t.Helper()

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	e, err := s.CreateElection(context.Background(), models.CreateElectionRequest{
		Name:        "Test Election",
		Description: "A test election",
		Type:        typ,
		StartTime:   start,
		EndTime:     start.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}
	return e
}

// CreateTestCandidate inserts a candidate with the given student ID
func CreateTestCandidate(t *testing.T, s *store.Store, studentID string) models.Candidate {
	t.Helper()

	c, err := s.CreateCandidate(context.Background(), models.CreateCandidateRequest{
		StudentID: studentID,
		Name:      "Student " + studentID,
		Faculty:   "Engineering",
	})
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}
	return c
}

// AddTestCandidate creates a candidate and associates it with an election
func AddTestCandidate(t *testing.T, s *store.Store, electionID int64, studentID string) models.Candidate {
	t.Helper()

	c := CreateTestCandidate(t, s, studentID)
	if err := s.AddCandidateToElection(context.Background(), electionID, c.ID); err != nil {
		t.Fatalf("Failed to add test candidate: %v", err)
	}
	return c
}

// AddTestTicket creates a ticket from two new candidates and associates it
// with a president/VP election
func AddTestTicket(t *testing.T, s *store.Store, electionID int64, presidentSID, vpSID string) models.Ticket {
	t.Helper()

	p := CreateTestCandidate(t, s, presidentSID)
	vp := CreateTestCandidate(t, s, vpSID)
	tk, err := s.CreateTicket(context.Background(), models.CreateTicketRequest{PresidentID: p.ID, VicePresidentID: vp.ID})
	if err != nil {
		t.Fatalf("Failed to create test ticket: %v", err)
	}
	if err := s.AddTicketToElection(context.Background(), electionID, tk.ID); err != nil {
		t.Fatalf("Failed to add test ticket: %v", err)
	}
	return tk
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
