package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/STRATINT/replybot/internal/config"
	"github.com/STRATINT/replybot/internal/logging"
	"github.com/STRATINT/replybot/internal/social"
)

type fakeReplier struct {
	id    string
	err   error
	calls int
}

func (f *fakeReplier) PostReply(ctx context.Context, inReplyTo, text string) (string, error) {
	f.calls++
	return f.id, f.err
}

func TestPostDryRunMakesNoCall(t *testing.T) {
	replier := &fakeReplier{id: "1"}
	d := NewDispatcher(replier, true, DefaultDelay, nil, logging.Discard())

	result, err := d.Post(context.Background(), "555", "hello")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if result != DryRun {
		t.Errorf("expected dry run result, got %s", result)
	}
	if replier.calls != 0 {
		t.Errorf("expected no write call, got %d", replier.calls)
	}
}

func TestPostSuccess(t *testing.T) {
	replier := &fakeReplier{id: "777"}
	d := NewDispatcher(replier, false, DefaultDelay, nil, logging.Discard())

	result, err := d.Post(context.Background(), "555", "hello")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if result != Posted || replier.calls != 1 {
		t.Errorf("expected one successful post, got result=%s calls=%d", result, replier.calls)
	}
}

func TestPostWriteRateLimitIsSkip(t *testing.T) {
	reset := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	replier := &fakeReplier{err: &social.RateLimitError{Op: social.OpWrite, Status: 429, Reset: reset, Err: errors.New("429")}}

	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(config.LoggingConfig{Level: slog.LevelInfo, Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}
	d := NewDispatcher(replier, false, DefaultDelay, nil, logger)

	result, err := d.Post(context.Background(), "555", "hello")
	if err != nil {
		t.Fatalf("expected rate limit to be absorbed, got %v", err)
	}
	if result != Skipped {
		t.Errorf("expected skip, got %s", result)
	}
	if !strings.Contains(buf.String(), "2026-10-20T00:00:00Z") {
		t.Errorf("expected reset hint in log, got %s", buf.String())
	}
}

func TestPostOtherErrorIsFatal(t *testing.T) {
	replier := &fakeReplier{err: errors.New("twitter API error: duplicate content")}
	d := NewDispatcher(replier, false, DefaultDelay, nil, logging.Discard())

	if _, err := d.Post(context.Background(), "555", "hello"); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestPauseUsesInjectedSleep(t *testing.T) {
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	d := NewDispatcher(&fakeReplier{}, false, DefaultDelay, sleep, logging.Discard())

	if err := d.Pause(context.Background()); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 1500*time.Millisecond {
		t.Errorf("expected a single 1.5s pause, got %v", slept)
	}

	none := NewDispatcher(&fakeReplier{}, false, 0, sleep, logging.Discard())
	if err := none.Pause(context.Background()); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if len(slept) != 1 {
		t.Errorf("expected zero delay to skip sleeping, got %v", slept)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
