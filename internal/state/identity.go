package state

import (
	"context"
	"fmt"
	"strings"
)

// IdentityCache maps account handles to numeric ids. Entries are only ever
// added. Handles are matched case-insensitively.
type IdentityCache struct {
	backend Backend
	ids     map[string]string
}

// OpenIdentityCache loads the identity document, starting empty if absent.
func OpenIdentityCache(ctx context.Context, backend Backend) (*IdentityCache, error) {
	c := &IdentityCache{backend: backend}
	if _, err := backend.Load(ctx, IdentityDocument, &c.ids); err != nil {
		return nil, fmt.Errorf("failed to load identity cache: %w", err)
	}
	if c.ids == nil {
		c.ids = make(map[string]string)
	}
	return c, nil
}

// Get returns the cached id for handle.
func (c *IdentityCache) Get(handle string) (string, bool) {
	id, ok := c.ids[cacheKey(handle)]
	return id, ok && id != ""
}

// Merge adds resolved ids that are not cached yet and persists once.
// Existing entries are never overwritten.
func (c *IdentityCache) Merge(ctx context.Context, resolved map[string]string) error {
	added := 0
	for handle, id := range resolved {
		key := cacheKey(handle)
		if id == "" || key == "" {
			continue
		}
		if _, exists := c.ids[key]; exists {
			continue
		}
		c.ids[key] = id
		added++
	}
	if added == 0 {
		return nil
	}
	if err := c.backend.Save(ctx, IdentityDocument, c.ids); err != nil {
		return fmt.Errorf("failed to persist identity cache: %w", err)
	}
	return nil
}

// Len returns the number of cached handles.
func (c *IdentityCache) Len() int {
	return len(c.ids)
}

func cacheKey(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
