// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
)

// DefaultMaxProbes caps a single scan.
const DefaultMaxProbes = 10_000

var (
	ErrInvalidRange  = errors.New("invalid scan range")
	ErrRangeTooLarge = errors.New("scan range too large")
)

// Hit is a probed ID that resolved to an election.
type Hit struct {
	Probe    uint64          `json:"probe"`
	Election ledger.Election `json:"election"`
}

// Result lists the hits of a scan in probe order.
type Result struct {
	Probes int   `json:"probes"`
	Hits   []Hit `json:"hits"`
}

// Scanner probes ledger IDs one at a time. The ledger has no way to list
// elections, so a scan costs one read per probe.
type Scanner struct {
	reader    chain.Reader
	MaxProbes int
	// Progress, when set, is called after every probe.
	Progress func(done, total int)
}

func NewScanner(reader chain.Reader) *Scanner {
	return &Scanner{reader: reader, MaxProbes: DefaultMaxProbes}
}

// ScanIDs probes every ID in [from, to].
func (s *Scanner) ScanIDs(ctx context.Context, from, to uint64) (Result, error) {
	if to < from {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	span := to - from
	if err := s.checkSize(span); err != nil {
		return Result{}, err
	}

	probes := make([]uint64, 0, span+1)
	for id := from; ; id++ {
		probes = append(probes, id)
		if id == to {
			break
		}
	}
	return s.run(ctx, probes)
}

// ScanTimestamps probes the unix timestamps from, from+interval, ... up to
// and including to. Elections keyed between two samples are not found.
func (s *Scanner) ScanTimestamps(ctx context.Context, from, to time.Time, interval time.Duration) (Result, error) {
	if interval < time.Second {
		return Result{}, fmt.Errorf("%w: interval must be at least one second", ErrInvalidRange)
	}
	if to.Before(from) {
		return Result{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if from.Unix() < 0 {
		return Result{}, fmt.Errorf("%w: timestamps before 1970", ErrInvalidRange)
	}
	span := uint64(to.Sub(from) / interval)
	if err := s.checkSize(span); err != nil {
		return Result{}, err
	}

	probes := make([]uint64, 0, span+1)
	for t := from; !t.After(to); t = t.Add(interval) {
		probes = append(probes, uint64(t.Unix()))
	}
	return s.run(ctx, probes)
}

// checkSize rejects a scan of span+1 probes over the limit. Taking the span
// keeps [0, MaxUint64] from wrapping around to zero.
func (s *Scanner) checkSize(span uint64) error {
	limit := s.MaxProbes
	if limit <= 0 {
		limit = DefaultMaxProbes
	}
	if span >= uint64(limit) {
		return fmt.Errorf("%w: more than %d probes", ErrRangeTooLarge, limit)
	}
	return nil
}

// run probes sequentially. A failed probe is skipped; cancellation returns
// the hits found so far with the context's error.
func (s *Scanner) run(ctx context.Context, probes []uint64) (Result, error) {
	res := Result{Hits: []Hit{}}
	for i, id := range probes {
		if err := ctx.Err(); err != nil {
			slog.Info("scan interrupted", "probes", res.Probes, "found", len(res.Hits))
			return res, err
		}
		e, err := s.reader.GetElection(ctx, id)
		res.Probes++
		if err == nil {
			res.Hits = append(res.Hits, Hit{Probe: id, Election: e})
		} else if !errors.Is(err, ledger.ErrNotFound) {
			slog.Debug("scan probe failed", "probe", id, "error", err)
		}
		if s.Progress != nil {
			s.Progress(i+1, len(probes))
		}
	}
	slog.Info("scan finished", "probes", res.Probes, "found", len(res.Hits))
	return res, nil
}
