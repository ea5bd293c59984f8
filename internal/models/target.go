package models

import "strings"

// Target identifies one monitored account. ID is empty when the numeric id
// could not be resolved, in which case fetches fall back to handle search.
type Target struct {
	Handle string `json:"handle"`
	ID     string `json:"id,omitempty"`
}

// HasID reports whether the numeric account id is known.
func (t Target) HasID() bool {
	return t.ID != ""
}

// WatermarkKey derives the key the watermark for this target is stored under.
// Handles are case-insensitive, so the handle key is lower-cased.
func (t Target) WatermarkKey() string {
	if t.HasID() {
		return "id:" + t.ID
	}
	return t.handleKey()
}

// WatermarkKeys lists every key the same account may have been tracked under,
// the primary key first. A target resolved by id in one run can fall back to
// handle search in the next, so both keys are read and written.
func (t Target) WatermarkKeys() []string {
	if !t.HasID() {
		return []string{t.handleKey()}
	}
	if NormalizeHandle(t.Handle) == "" {
		return []string{"id:" + t.ID}
	}
	return []string{"id:" + t.ID, t.handleKey()}
}

func (t Target) handleKey() string {
	return "u:" + strings.ToLower(NormalizeHandle(t.Handle))
}

// NormalizeHandle strips whitespace and a leading @ from a configured handle.
func NormalizeHandle(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}
