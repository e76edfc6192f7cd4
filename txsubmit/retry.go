// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package txsubmit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/campus-vote/ledger"
)

// Retrier retries read-only ledger calls with linear backoff: attempt n is
// followed by a wait of n*Backoff. Writes are never retried.
type Retrier struct {
	Attempts int
	Backoff  time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetrier makes 3 attempts, waiting 1s then 2s.
func DefaultRetrier() Retrier {
	return Retrier{Attempts: 3, Backoff: time.Second, Sleep: SleepContext}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn until it succeeds, attempts run out, or the error is permanent.
// Ledger reverts are permanent: a missing ID stays missing.
func (r Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := max(r.Attempts, 1)
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var rev *ledger.RevertError
		if errors.As(err, &rev) || ctx.Err() != nil {
			return err
		}
		if attempt == attempts {
			break
		}
		wait := time.Duration(attempt) * r.Backoff
		slog.Debug("ledger read failed, retrying", "call", name, "attempt", attempt, "wait", wait, "error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}

// Read runs a retried read and returns its value.
func Read[T any](ctx context.Context, r Retrier, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// ReadOr runs a retried read and returns fallback once it fails for good.
func ReadOr[T any](ctx context.Context, r Retrier, name string, fallback T, fn func(ctx context.Context) (T, error)) T {
	v, err := Read(ctx, r, name, fn)
	if err != nil {
		slog.Warn("ledger read gave up", "call", name, "error", err)
		return fallback
	}
	return v
}
