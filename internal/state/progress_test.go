package state

import (
	"context"
	"testing"
	"time"
)

func TestProgressAdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store, err := OpenProgress(ctx, backend)
	if err != nil {
		t.Fatalf("OpenProgress returned error: %v", err)
	}

	if _, ok := store.Watermark("id:1"); ok {
		t.Fatal("expected no watermark on a fresh store")
	}

	steps := []struct {
		id       string
		changed  bool
		expected string
	}{
		{id: "100", changed: true, expected: "100"},
		{id: "105", changed: true, expected: "105"},
		{id: "105", changed: false, expected: "105"},
		{id: "99", changed: false, expected: "105"},
		{id: "1000", changed: true, expected: "1000"},
	}

	for _, step := range steps {
		changed, err := store.Advance(ctx, "id:1", step.id)
		if err != nil {
			t.Fatalf("Advance(%s) returned error: %v", step.id, err)
		}
		if changed != step.changed {
			t.Errorf("Advance(%s) changed = %t, want %t", step.id, changed, step.changed)
		}
		got, _ := store.Watermark("id:1")
		if got != step.expected {
			t.Errorf("after Advance(%s) watermark = %s, want %s", step.id, got, step.expected)
		}
	}

	if backend.Saves[ProgressDocument] != 3 {
		t.Errorf("expected one save per change, got %d", backend.Saves[ProgressDocument])
	}
}

func TestProgressPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend returned error: %v", err)
	}

	store, err := OpenProgress(ctx, backend)
	if err != nil {
		t.Fatalf("OpenProgress returned error: %v", err)
	}
	until := time.UnixMilli(time.Now().Add(10 * time.Minute).UnixMilli())
	if _, err := store.Advance(ctx, "u:jack", "42"); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if err := store.SetReadBlockUntil(ctx, until); err != nil {
		t.Fatalf("SetReadBlockUntil returned error: %v", err)
	}

	reopened, err := OpenProgress(ctx, backend)
	if err != nil {
		t.Fatalf("OpenProgress returned error: %v", err)
	}
	if id, ok := reopened.Watermark("u:jack"); !ok || id != "42" {
		t.Errorf("expected watermark 42 after reopen, got %q", id)
	}
	if !reopened.ReadBlockUntil().Equal(until) {
		t.Errorf("expected read block until %v, got %v", until, reopened.ReadBlockUntil())
	}
}

func TestProgressReadBlockUntilZeroWhenUnset(t *testing.T) {
	store, err := OpenProgress(context.Background(), NewMemoryBackend())
	if err != nil {
		t.Fatalf("OpenProgress returned error: %v", err)
	}
	if !store.ReadBlockUntil().IsZero() {
		t.Errorf("expected zero deadline, got %v", store.ReadBlockUntil())
	}
}

func TestProgressAdvanceIgnoresEmptyID(t *testing.T) {
	backend := NewMemoryBackend()
	store, _ := OpenProgress(context.Background(), backend)

	changed, err := store.Advance(context.Background(), "id:1", "")
	if err != nil || changed {
		t.Fatalf("expected no-op, changed=%t err=%v", changed, err)
	}
	if backend.Saves[ProgressDocument] != 0 {
		t.Error("expected no save for empty id")
	}
}

func TestProgressWatermarkForTakesHighestKey(t *testing.T) {
	ctx := context.Background()
	store, _ := OpenProgress(ctx, NewMemoryBackend())

	if _, ok := store.WatermarkFor([]string{"id:12", "u:jack"}); ok {
		t.Fatal("expected no watermark on a fresh store")
	}

	if _, err := store.Advance(ctx, "u:jack", "100"); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if id, _ := store.WatermarkFor([]string{"id:12", "u:jack"}); id != "100" {
		t.Errorf("expected handle watermark 100 as floor, got %q", id)
	}

	if _, err := store.Advance(ctx, "id:12", "250"); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if id, _ := store.WatermarkFor([]string{"id:12", "u:jack"}); id != "250" {
		t.Errorf("expected highest watermark 250, got %q", id)
	}
}

func TestProgressAdvanceAllSavesOnce(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store, _ := OpenProgress(ctx, backend)
	keys := []string{"id:12", "u:jack"}

	if _, err := store.Advance(ctx, "u:jack", "300"); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	changed, err := store.AdvanceAll(ctx, keys, "200")
	if err != nil || !changed {
		t.Fatalf("expected change, changed=%t err=%v", changed, err)
	}
	if id, _ := store.Watermark("id:12"); id != "200" {
		t.Errorf("expected id:12 at 200, got %q", id)
	}
	if id, _ := store.Watermark("u:jack"); id != "300" {
		t.Errorf("expected u:jack to stay at 300, got %q", id)
	}
	if backend.Saves[ProgressDocument] != 2 {
		t.Errorf("expected a single save for AdvanceAll, got %d total", backend.Saves[ProgressDocument])
	}

	changed, err = store.AdvanceAll(ctx, keys, "150")
	if err != nil || changed {
		t.Errorf("expected backwards AdvanceAll to be a no-op, changed=%t err=%v", changed, err)
	}
}
