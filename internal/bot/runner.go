// Package bot drives a single polling run over all configured targets.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/replybot/internal/dispatch"
	"github.com/STRATINT/replybot/internal/fetch"
	"github.com/STRATINT/replybot/internal/models"
	"github.com/STRATINT/replybot/internal/reply"
)

// Progress is the watermark store. A target is read at the highest
// watermark across its keys and advanced under all of them.
type Progress interface {
	WatermarkFor(keys []string) (string, bool)
	AdvanceAll(ctx context.Context, keys []string, id string) (bool, error)
}

// Fetcher selects the fetch strategy for a target.
type Fetcher interface {
	For(target models.Target) fetch.Strategy
}

// Composer produces reply text for a post; "" means skip.
type Composer interface {
	Generate(ctx context.Context, req reply.Request) (string, error)
}

// Sender posts replies and paces consecutive posts.
type Sender interface {
	Post(ctx context.Context, postID, text string) (dispatch.Result, error)
	Pause(ctx context.Context) error
}

// Options bounds a run.
type Options struct {
	FreshWindow         time.Duration
	MaxRepliesPerTarget int
}

// Summary counts what a run did.
type Summary struct {
	Targets   int
	Fetched   int
	Processed int
	Posted    int
	DryRun    int
	Skipped   int
	Seeded    int
}

// Runner processes targets sequentially.
type Runner struct {
	progress Progress
	fetcher  Fetcher
	composer Composer
	sender   Sender
	opts     Options
	logger   *slog.Logger
}

// NewRunner creates a run controller.
func NewRunner(progress Progress, fetcher Fetcher, composer Composer, sender Sender, opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		progress: progress,
		fetcher:  fetcher,
		composer: composer,
		sender:   sender,
		opts:     opts,
		logger:   logger,
	}
}

// Run replies to up to MaxRepliesPerTarget fresh posts per target, oldest
// first. Every processed post advances the target watermark whether or not a
// reply went out; posts beyond the cap stay unseen for the next run.
func (r *Runner) Run(ctx context.Context, targets []models.Target) (Summary, error) {
	summary := Summary{Targets: len(targets)}
	started := false

	for _, target := range targets {
		keys := target.WatermarkKeys()
		sinceID, _ := r.progress.WatermarkFor(keys)

		strategy := r.fetcher.For(target)
		posts, err := strategy.FetchFreshSince(ctx, sinceID, r.opts.FreshWindow)
		if err != nil {
			return summary, fmt.Errorf("failed to fetch posts for %s: %w", target.Handle, err)
		}
		summary.Fetched += len(posts)

		if len(posts) == 0 {
			r.logger.Debug("no fresh posts", "handle", target.Handle, "strategy", strategy.Name(), "since_id", sinceID)
			continue
		}
		if len(posts) > r.opts.MaxRepliesPerTarget {
			r.logger.Info("per-target cap reached, deferring remaining posts",
				"handle", target.Handle,
				"fresh", len(posts),
				"cap", r.opts.MaxRepliesPerTarget)
			posts = posts[:r.opts.MaxRepliesPerTarget]
		}

		for _, post := range posts {
			if started {
				if err := r.sender.Pause(ctx); err != nil {
					return summary, err
				}
			}
			started = true

			if err := r.process(ctx, target, keys, post, &summary); err != nil {
				return summary, err
			}
		}
	}

	r.logger.Info("run complete",
		"targets", summary.Targets,
		"fetched", summary.Fetched,
		"processed", summary.Processed,
		"posted", summary.Posted,
		"dry_run", summary.DryRun,
		"skipped", summary.Skipped)
	return summary, nil
}

func (r *Runner) process(ctx context.Context, target models.Target, keys []string, post models.Post, summary *Summary) error {
	permalink := models.Permalink(target.Handle, post.ID)

	text, err := r.composer.Generate(ctx, reply.Request{
		Author:    target.Handle,
		Text:      post.Text,
		Permalink: permalink,
		Lang:      post.Lang,
	})
	if err != nil {
		return fmt.Errorf("failed to compose reply for %s: %w", permalink, err)
	}

	result := dispatch.Skipped
	if text != "" {
		result, err = r.sender.Post(ctx, post.ID, text)
		if err != nil {
			return err
		}
	}

	switch result {
	case dispatch.Posted:
		summary.Posted++
	case dispatch.DryRun:
		summary.DryRun++
	default:
		summary.Skipped++
	}
	summary.Processed++

	if _, err := r.progress.AdvanceAll(ctx, keys, post.ID); err != nil {
		return err
	}
	r.logger.Debug("watermark advanced", "key", keys[0], "post_id", post.ID, "result", result.String())
	return nil
}

// Seed sets each target's watermark to its most recent original post without
// replying, so a new target starts from now instead of its backlog.
func (r *Runner) Seed(ctx context.Context, targets []models.Target) (Summary, error) {
	summary := Summary{Targets: len(targets)}

	for _, target := range targets {
		keys := target.WatermarkKeys()
		key := keys[0]
		posts, err := r.fetcher.For(target).FetchFreshSince(ctx, "", fetch.Unbounded)
		if err != nil {
			return summary, fmt.Errorf("failed to fetch posts for %s: %w", target.Handle, err)
		}
		summary.Fetched += len(posts)

		newest := models.NewestID(posts)
		if newest == "" {
			r.logger.Info("nothing to seed", "event", "skip", "handle", target.Handle, "key", key)
			continue
		}

		if _, err := r.progress.AdvanceAll(ctx, keys, newest); err != nil {
			return summary, err
		}
		summary.Seeded++
		r.logger.Info("watermark seeded", "event", "seed", "handle", target.Handle, "key", key, "post_id", newest)
	}

	r.logger.Info("seed complete", "targets", summary.Targets, "seeded", summary.Seeded)
	return summary, nil
}
