// Package state persists the bot's cross-run documents: the progress document
// (per-target watermarks and the read cooldown) and the identity cache.
// Each document is loaded wholesale once and overwritten wholesale on every
// mutation.
package state

import "context"

// Document names.
const (
	ProgressDocument = "state"
	IdentityDocument = "user_ids"
)

// Backend loads and saves named JSON documents.
type Backend interface {
	// Load decodes the named document into out. It reports false, with no
	// error, when the document does not exist yet.
	Load(ctx context.Context, name string, out any) (bool, error)

	// Save replaces the named document with v.
	Save(ctx context.Context, name string, v any) error
}
