package fetch

import (
	"context"
	"fmt"
	"time"
)

// DefaultCooldown is how long reads stay suspended after a read rate limit.
const DefaultCooldown = 10 * time.Minute

// BlockStore persists the cooldown deadline.
type BlockStore interface {
	ReadBlockUntil() time.Time
	SetReadBlockUntil(ctx context.Context, until time.Time) error
}

// CooldownGate suspends read calls process-wide after a rate limit. The
// deadline lives in the progress document, so it also carries across runs.
type CooldownGate struct {
	store    BlockStore
	duration time.Duration
	now      func() time.Time
}

// NewCooldownGate creates a gate that blocks reads for duration once tripped.
func NewCooldownGate(store BlockStore, duration time.Duration, now func() time.Time) *CooldownGate {
	if duration <= 0 {
		duration = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &CooldownGate{store: store, duration: duration, now: now}
}

// Active reports whether reads are currently suspended.
func (g *CooldownGate) Active() bool {
	until := g.store.ReadBlockUntil()
	return !until.IsZero() && g.now().Before(until)
}

// Until returns the current deadline, zero if never tripped.
func (g *CooldownGate) Until() time.Time {
	return g.store.ReadBlockUntil()
}

// Trip starts a new cooldown window from now and persists it.
func (g *CooldownGate) Trip(ctx context.Context) (time.Time, error) {
	until := g.now().Add(g.duration)
	if err := g.store.SetReadBlockUntil(ctx, until); err != nil {
		return time.Time{}, fmt.Errorf("failed to activate read cooldown: %w", err)
	}
	return until, nil
}
