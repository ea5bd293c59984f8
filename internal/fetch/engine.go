package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/STRATINT/replybot/internal/models"
	"github.com/STRATINT/replybot/internal/social"
)

// PageSize is the number of posts requested per read call.
const PageSize = 10

// Unbounded disables the freshness filter.
const Unbounded time.Duration = 0

// Reader is the read side of the social API.
type Reader interface {
	UserTimeline(ctx context.Context, userID string, opts social.TimelineOptions) ([]models.Post, error)
	SearchAuthor(ctx context.Context, handle string, opts social.TimelineOptions) ([]models.Post, error)
}

// Strategy fetches fresh, unseen original posts for one target, oldest first.
// Rate limits are absorbed into an empty result; any returned error is fatal.
type Strategy interface {
	Name() string
	FetchFreshSince(ctx context.Context, sinceID string, window time.Duration) ([]models.Post, error)
}

// Engine builds per-target strategies that share the cooldown gate, the
// freshness filter and the ordering contract.
type Engine struct {
	reader Reader
	gate   *CooldownGate
	now    func() time.Time
	logger *slog.Logger
}

// NewEngine creates a fetch engine.
func NewEngine(reader Reader, gate *CooldownGate, now func() time.Time, logger *slog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{reader: reader, gate: gate, now: now, logger: logger}
}

// For picks the by-id strategy when the target id is known, by-handle otherwise.
func (e *Engine) For(target models.Target) Strategy {
	if target.HasID() {
		return &byID{engine: e, target: target}
	}
	return &byHandle{engine: e, target: target}
}

type byID struct {
	engine *Engine
	target models.Target
}

func (s *byID) Name() string { return "by_id" }

func (s *byID) FetchFreshSince(ctx context.Context, sinceID string, window time.Duration) ([]models.Post, error) {
	return s.engine.fetch(ctx, s.Name(), s.target, sinceID, window, func(opts social.TimelineOptions) ([]models.Post, error) {
		return s.engine.reader.UserTimeline(ctx, s.target.ID, opts)
	})
}

type byHandle struct {
	engine *Engine
	target models.Target
}

func (s *byHandle) Name() string { return "by_handle" }

func (s *byHandle) FetchFreshSince(ctx context.Context, sinceID string, window time.Duration) ([]models.Post, error) {
	return s.engine.fetch(ctx, s.Name(), s.target, sinceID, window, func(opts social.TimelineOptions) ([]models.Post, error) {
		return s.engine.reader.SearchAuthor(ctx, s.target.Handle, opts)
	})
}

func (e *Engine) fetch(
	ctx context.Context,
	strategy string,
	target models.Target,
	sinceID string,
	window time.Duration,
	call func(social.TimelineOptions) ([]models.Post, error),
) ([]models.Post, error) {
	if e.gate.Active() {
		e.logger.Info("read cooldown active, skipping fetch",
			"event", "cooldown",
			"handle", target.Handle,
			"until", e.gate.Until().UTC().Format(time.RFC3339))
		return nil, nil
	}

	posts, err := call(social.TimelineOptions{SinceID: sinceID, MaxResults: PageSize})
	switch social.Classify(err) {
	case social.OutcomeOK:
	case social.OutcomeRateLimited:
		until, tripErr := e.gate.Trip(ctx)
		if tripErr != nil {
			return nil, tripErr
		}
		e.logger.Warn("read rate limited, pausing reads",
			"event", "rate_limit",
			"handle", target.Handle,
			"strategy", strategy,
			"until", until.UTC().Format(time.RFC3339))
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to fetch posts for @%s (%s): %w", target.Handle, strategy, err)
	}

	fresh := FilterFresh(posts, sinceID, window, e.now())
	e.logger.Debug("fetched posts",
		"handle", target.Handle,
		"strategy", strategy,
		"since_id", sinceID,
		"returned", len(posts),
		"fresh", len(fresh))
	return fresh, nil
}

// FilterFresh keeps posts newer than sinceID and created within window of
// now (boundary inclusive), ordered oldest first. A zero window keeps every
// post regardless of age.
func FilterFresh(posts []models.Post, sinceID string, window time.Duration, now time.Time) []models.Post {
	cutoff := now.Add(-window)
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if sinceID != "" && models.CompareIDs(p.ID, sinceID) <= 0 {
			continue
		}
		if window > 0 && p.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.CompareIDs(out[i].ID, out[j].ID) < 0
	})
	return out
}
