package targets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/STRATINT/replybot/internal/models"
	"github.com/STRATINT/replybot/internal/social"
)

// Lookup resolves handles to numeric ids in a single batched call. Results
// are keyed by lower-cased handle.
type Lookup interface {
	LookupUsers(ctx context.Context, handles []string) (map[string]string, error)
}

// Cache is the persisted handle to id mapping.
type Cache interface {
	Get(handle string) (string, bool)
	Merge(ctx context.Context, resolved map[string]string) error
}

// Resolver turns configured handles into targets.
type Resolver struct {
	cache  Cache
	lookup Lookup
	logger *slog.Logger
}

// NewResolver creates a target resolver.
func NewResolver(cache Cache, lookup Lookup, logger *slog.Logger) *Resolver {
	return &Resolver{cache: cache, lookup: lookup, logger: logger}
}

// Resolve returns one target per handle, in input order. When explicitIDs
// pairs positionally with handles no lookup is made at all. A rate-limited
// lookup leaves the unresolved ids empty so those targets fall back to
// handle search; any other lookup failure is returned.
func (r *Resolver) Resolve(ctx context.Context, handles, explicitIDs []string) ([]models.Target, error) {
	targets := make([]models.Target, len(handles))
	for i, h := range handles {
		targets[i] = models.Target{Handle: models.NormalizeHandle(h)}
	}

	if len(explicitIDs) > 0 && len(explicitIDs) == len(handles) {
		for i := range targets {
			targets[i].ID = strings.TrimSpace(explicitIDs[i])
		}
		r.logger.Info("using explicit target ids", "event", "resolve", "count", len(targets))
		return targets, nil
	}

	var missing []string
	seen := make(map[string]bool)
	for i := range targets {
		if id, ok := r.cache.Get(targets[i].Handle); ok {
			targets[i].ID = id
			continue
		}
		key := strings.ToLower(targets[i].Handle)
		if !seen[key] {
			seen[key] = true
			missing = append(missing, targets[i].Handle)
		}
	}

	if len(missing) == 0 {
		r.logger.Debug("all targets resolved from cache", "count", len(targets))
		return targets, nil
	}

	resolved, err := r.lookup.LookupUsers(ctx, missing)
	switch social.Classify(err) {
	case social.OutcomeOK:
	case social.OutcomeRateLimited:
		attrs := []any{
			"event", "rate_limit",
			"unresolved", missing,
			"hint", "set TARGET_IDS to the numeric account ids to skip lookups",
		}
		if reset, ok := social.ResetHint(err); ok {
			attrs = append(attrs, "reset_at", reset.UTC().Format(time.RFC3339))
		}
		r.logger.Warn("handle lookup rate limited, falling back to search by handle", attrs...)
		return targets, nil
	default:
		return nil, fmt.Errorf("failed to resolve target handles: %w", err)
	}

	if err := r.cache.Merge(ctx, resolved); err != nil {
		return nil, err
	}

	for i := range targets {
		if targets[i].HasID() {
			continue
		}
		if id, ok := resolved[strings.ToLower(targets[i].Handle)]; ok {
			targets[i].ID = id
		} else {
			r.logger.Warn("handle not found, using search by handle", "event", "resolve", "handle", targets[i].Handle)
		}
	}

	r.logger.Info("resolved target ids", "event", "resolve", "looked_up", len(missing), "resolved", len(resolved))
	return targets, nil
}
