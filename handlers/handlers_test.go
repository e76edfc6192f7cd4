// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/testutil"
)

// newLedger exposes test services the way main wires them
func newLedger(svc testutil.TestServices) Ledger {
	return Ledger{
		Resolver: svc.Resolver,
		Verifier: svc.Verifier,
		Deployer: svc.Deployer,
		Admin:    svc.Admin,
		Scanner:  svc.Scanner,
	}
}

// withID sets the {id} path value on a request
func withID(req *http.Request, id int64) *http.Request {
	req.SetPathValue("id", strconv.FormatInt(id, 10))
	return req
}

func TestRequireAdmin(t *testing.T) {
	cfg := testutil.GetTestConfig()

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"valid key", testutil.AdminHeaders(), true},
		{"wrong key", map[string]string{"X-Admin-Key": "nope"}, false},
		{"missing key", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/elections", nil, tt.headers)
			w := httptest.NewRecorder()

			if got := requireAdmin(w, req, cfg); got != tt.want {
				t.Errorf("requireAdmin() = %v, want %v", got, tt.want)
			}
			if !tt.want {
				testutil.AssertStatus(t, w, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAdminUnconfigured(t *testing.T) {
	cfg := cliparse.Config{}
	req := testutil.MakeRequest("POST", "/api/elections", nil, map[string]string{"X-Admin-Key": ""})
	w := httptest.NewRecorder()

	if requireAdmin(w, req, cfg) {
		t.Error("Expected an empty configured key to reject every request")
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"7", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/elections/"+tt.value, nil)
			req.SetPathValue("id", tt.value)
			w := httptest.NewRecorder()

			got, ok := pathID(w, req)
			if ok != tt.ok || got != tt.want {
				t.Errorf("pathID(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.ok)
			}
			if !ok {
				testutil.AssertStatus(t, w, http.StatusBadRequest)
			}
		})
	}
}

func TestStoreErrorUnknown(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/elections", nil)
	w := httptest.NewRecorder()

	storeError(w, req, http.ErrHandlerTimeout, "list elections")

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "Failed to list elections" {
		t.Errorf("Expected generic message, got %q", resp.Message)
	}
}
