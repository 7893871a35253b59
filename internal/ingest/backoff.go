package ingest

import (
	"context"
	"time"
)

// BackoffConfig contains the exponential backoff policy for reconnection.
//
// The delay starts at InitialDelay, doubles after every failed connect
// attempt, and is capped at MaxDelay. It resets to InitialDelay only when
// a connection is successfully established, not on a successful decode.
type BackoffConfig struct {
	InitialDelay time.Duration // Delay before the first retry (default: 1 second)
	MaxDelay     time.Duration // Delay ceiling (default: 16 seconds)
}

// DefaultBackoffConfig returns the default backoff policy.
//
// Schedule: 1s, 2s, 4s, 8s, 16s, 16s, ... (indefinitely, the engine has no
// retry cap — a camera that comes back after an hour is still picked up).
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
	}
}

// Backoff tracks the current retry delay across connect attempts.
//
// Not safe for concurrent use; owned exclusively by the ingestion loop.
type Backoff struct {
	cfg  BackoffConfig
	next time.Duration
}

// NewBackoff creates a Backoff at its floor delay.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{cfg: cfg, next: cfg.InitialDelay}
}

// Next returns the delay to sleep before the upcoming connect attempt and
// advances the schedule (doubling, capped at MaxDelay).
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.cfg.MaxDelay {
		b.next = b.cfg.MaxDelay
	}
	return d
}

// Reset returns the schedule to its floor delay.
//
// Called on successful connection establishment only.
func (b *Backoff) Reset() {
	b.next = b.cfg.InitialDelay
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
//
// Returns false if the context was cancelled, so a stop request issued
// mid-backoff is honored promptly instead of after the full sleep.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
