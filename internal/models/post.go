package models

import (
	"fmt"
	"strings"
	"time"
)

// Post represents an original post fetched from a monitored account.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id,omitempty"`
	Lang      string    `json:"lang,omitempty"` // BCP47 tag reported by the API, may be empty
	CreatedAt time.Time `json:"created_at"`
}

// Permalink returns the public URL of a post authored by handle.
func Permalink(handle, postID string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", strings.TrimPrefix(handle, "@"), postID)
}

// CompareIDs orders two numeric post ids without parsing them.
// Snowflake ids grow monotonically, so a longer id is always newer.
// Returns -1, 0 or 1.
func CompareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return strings.Compare(a, b)
}

// NewestID returns the highest id in posts, or "" when posts is empty.
func NewestID(posts []Post) string {
	var latest string
	for _, p := range posts {
		if latest == "" || CompareIDs(p.ID, latest) > 0 {
			latest = p.ID
		}
	}
	return latest
}
