package state

import (
	"context"
	"fmt"
	"time"

	"github.com/STRATINT/replybot/internal/models"
)

// progressDoc is the persisted shape of the progress document.
type progressDoc struct {
	LastSeen       map[string]string `json:"last_seen"`
	ReadBlockUntil int64             `json:"read_block_until,omitempty"` // epoch ms, 0 when unset
}

// ProgressStore holds per-target watermarks and the read cooldown deadline.
// It is not safe for concurrent use; the bot mutates it from a single flow.
type ProgressStore struct {
	backend Backend
	doc     progressDoc
}

// OpenProgress loads the progress document, starting empty if absent.
func OpenProgress(ctx context.Context, backend Backend) (*ProgressStore, error) {
	s := &ProgressStore{backend: backend}
	if _, err := backend.Load(ctx, ProgressDocument, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if s.doc.LastSeen == nil {
		s.doc.LastSeen = make(map[string]string)
	}
	return s, nil
}

// Watermark returns the last processed post id stored under key.
func (s *ProgressStore) Watermark(key string) (string, bool) {
	id, ok := s.doc.LastSeen[key]
	return id, ok && id != ""
}

// Advance moves the watermark for key to id and persists immediately.
// Moving backwards is refused; it reports whether the value changed.
func (s *ProgressStore) Advance(ctx context.Context, key, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	if current, ok := s.Watermark(key); ok && models.CompareIDs(id, current) <= 0 {
		return false, nil
	}

	s.doc.LastSeen[key] = id
	if err := s.save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// WatermarkFor returns the highest watermark stored under any of keys.
func (s *ProgressStore) WatermarkFor(keys []string) (string, bool) {
	var best string
	for _, key := range keys {
		if id, ok := s.Watermark(key); ok && (best == "" || models.CompareIDs(id, best) > 0) {
			best = id
		}
	}
	return best, best != ""
}

// AdvanceAll moves every key in keys up to id and persists once. Keys already
// at or past id are left alone; it reports whether anything changed.
func (s *ProgressStore) AdvanceAll(ctx context.Context, keys []string, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	changed := false
	for _, key := range keys {
		if current, ok := s.Watermark(key); ok && models.CompareIDs(id, current) <= 0 {
			continue
		}
		s.doc.LastSeen[key] = id
		changed = true
	}
	if !changed {
		return false, nil
	}
	if err := s.save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ReadBlockUntil returns the cooldown deadline, zero when none was set.
func (s *ProgressStore) ReadBlockUntil() time.Time {
	if s.doc.ReadBlockUntil == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.doc.ReadBlockUntil)
}

// SetReadBlockUntil records a new cooldown deadline and persists it.
func (s *ProgressStore) SetReadBlockUntil(ctx context.Context, until time.Time) error {
	s.doc.ReadBlockUntil = until.UnixMilli()
	return s.save(ctx)
}

func (s *ProgressStore) save(ctx context.Context) error {
	if err := s.backend.Save(ctx, ProgressDocument, s.doc); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}
