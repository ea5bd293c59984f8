package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresBackend stores each document as a JSONB row in replybot_state.
// The table is created by database.RunMigrations.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Load implements Backend.
func (b *PostgresBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx, `SELECT doc FROM replybot_state WHERE name = $1`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load state document %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode state document %s: %w", name, err)
	}
	return true, nil
}

// Save implements Backend.
func (b *PostgresBackend) Save(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode state document %s: %w", name, err)
	}

	query := `
		INSERT INTO replybot_state (name, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`
	if _, err := b.db.ExecContext(ctx, query, name, string(raw)); err != nil {
		return fmt.Errorf("failed to save state document %s: %w", name, err)
	}
	return nil
}
