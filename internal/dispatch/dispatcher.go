// Package dispatch posts generated replies and paces successive posts.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/replybot/internal/social"
)

// DefaultDelay is the pause between two dispatches.
const DefaultDelay = 1500 * time.Millisecond

// Replier posts a reply to an existing post.
type Replier interface {
	PostReply(ctx context.Context, inReplyTo, text string) (string, error)
}

// Result is the outcome of a single dispatch.
type Result int

const (
	Posted Result = iota
	DryRun
	Skipped
)

func (r Result) String() string {
	switch r {
	case Posted:
		return "posted"
	case DryRun:
		return "dry_run"
	default:
		return "skip"
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher sends replies through a Replier, or only logs them in dry-run mode.
type Dispatcher struct {
	replier Replier
	dryRun  bool
	delay   time.Duration
	sleep   SleepFunc
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil sleep uses a context-aware timer.
func NewDispatcher(replier Replier, dryRun bool, delay time.Duration, sleep SleepFunc, logger *slog.Logger) *Dispatcher {
	if sleep == nil {
		sleep = Sleep
	}
	return &Dispatcher{
		replier: replier,
		dryRun:  dryRun,
		delay:   delay,
		sleep:   sleep,
		logger:  logger,
	}
}

// Post replies to postID with text. A write rate limit is logged and reported
// as Skipped; any other failure is returned.
func (d *Dispatcher) Post(ctx context.Context, postID, text string) (Result, error) {
	if d.dryRun {
		d.logger.Info("dry run, reply not posted",
			"event", "dry_run",
			"in_reply_to", postID,
			"text", text)
		return DryRun, nil
	}

	replyID, err := d.replier.PostReply(ctx, postID, text)
	switch social.Classify(err) {
	case social.OutcomeOK:
		d.logger.Info("reply posted",
			"event", "posted",
			"in_reply_to", postID,
			"reply_id", replyID)
		return Posted, nil
	case social.OutcomeRateLimited:
		attrs := []any{
			"event", "rate_limit",
			"op", social.OpWrite,
			"in_reply_to", postID,
		}
		if reset, ok := social.ResetHint(err); ok {
			attrs = append(attrs, "reset_at", reset.UTC().Format(time.RFC3339))
		}
		d.logger.Warn("write rate limited, skipping post", attrs...)
		return Skipped, nil
	default:
		return Skipped, fmt.Errorf("failed to post reply to %s: %w", postID, err)
	}
}

// Pause waits the configured delay between dispatches.
func (d *Dispatcher) Pause(ctx context.Context) error {
	if d.delay <= 0 {
		return nil
	}
	return d.sleep(ctx, d.delay)
}

// Sleep blocks for dur or until ctx is cancelled.
func Sleep(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
