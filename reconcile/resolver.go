// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/store"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotDeployed means the external record has no ledger counterpart yet.
var ErrNotDeployed = errors.New("not yet deployed")

// DefaultCacheSize bounds the resolver's in-memory mapping cache.
const DefaultCacheSize = 4096

// MappingStore is the part of the external store the resolver reads.
type MappingStore interface {
	GetMapping(ctx context.Context, kind string, externalID int64) (models.Mapping, error)
}

type cacheKey struct {
	kind string
	id   int64
}

// Resolver maps external IDs to the ledger IDs recorded at deployment. It
// never derives an ID: a record without a mapping is not deployed.
type Resolver struct {
	store MappingStore
	cache *lru.Cache[cacheKey, uint64]
}

func NewResolver(s MappingStore, size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, uint64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver cache: %w", err)
	}
	return &Resolver{store: s, cache: cache}, nil
}

// Resolve returns the ledger ID for (kind, externalID) or ErrNotDeployed.
func (r *Resolver) Resolve(ctx context.Context, kind string, externalID int64) (uint64, error) {
	key := cacheKey{kind, externalID}
	if id, ok := r.cache.Get(key); ok {
		return id, nil
	}

	m, err := r.store.GetMapping(ctx, kind, externalID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("%s %d: %w", kind, externalID, ErrNotDeployed)
	}
	if err != nil {
		return 0, err
	}
	r.cache.Add(key, m.LedgerID)
	return m.LedgerID, nil
}

func (r *Resolver) ResolveElection(ctx context.Context, externalID int64) (uint64, error) {
	return r.Resolve(ctx, models.KindElection, externalID)
}

func (r *Resolver) ResolveCandidate(ctx context.Context, externalID int64) (uint64, error) {
	return r.Resolve(ctx, models.KindCandidate, externalID)
}

func (r *Resolver) ResolveTicket(ctx context.Context, externalID int64) (uint64, error) {
	return r.Resolve(ctx, models.KindTicket, externalID)
}

// IsDeployed reports whether an election has a ledger mapping. Not being
// deployed is a normal answer here, not an error.
func (r *Resolver) IsDeployed(ctx context.Context, externalID int64) (bool, error) {
	_, err := r.ResolveElection(ctx, externalID)
	if errors.Is(err, ErrNotDeployed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remember caches a mapping that was just persisted.
func (r *Resolver) Remember(kind string, externalID int64, ledgerID uint64) {
	r.cache.Add(cacheKey{kind, externalID}, ledgerID)
}

// Forget drops a cached mapping, e.g. after a remap.
func (r *Resolver) Forget(kind string, externalID int64) {
	r.cache.Remove(cacheKey{kind, externalID})
}

// Report is the result of cross-checking one election's mapping against
// the ledger.
type Report struct {
	ExternalID int64
	Deployed   bool
	LedgerID   uint64
	OnLedger   bool
	Election   *ledger.Election
	Problems   []string
}

// Consistent is true for an undeployed election, or a deployed one whose
// mapped ledger ID exists on the ledger.
func (r Report) Consistent() bool {
	return len(r.Problems) == 0
}

// ElectionFunc reads one election from the ledger. Callers pass a retried
// read such as txsubmit.Verifier.ElectionState.
type ElectionFunc func(ctx context.Context, ledgerID uint64) (ledger.Election, error)

// Check compares an election's mapping with what the ledger holds.
func (r *Resolver) Check(ctx context.Context, getElection ElectionFunc, externalID int64) (Report, error) {
	report := Report{ExternalID: externalID}

	id, err := r.ResolveElection(ctx, externalID)
	if errors.Is(err, ErrNotDeployed) {
		return report, nil
	}
	if err != nil {
		return report, err
	}
	report.Deployed = true
	report.LedgerID = id

	e, err := getElection(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		report.Problems = append(report.Problems,
			fmt.Sprintf("ledger has no election %d; scan the ledger and remap", id))
		slog.Warn("mapping points at missing ledger election", "election_id", externalID, "ledger_id", id)
		return report, nil
	}
	if err != nil {
		return report, err
	}
	report.OnLedger = true
	report.Election = &e
	if e.ID != id {
		report.Problems = append(report.Problems,
			fmt.Sprintf("ledger returned election %d for id %d", e.ID, id))
	}
	return report, nil
}
