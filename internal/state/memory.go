package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// MemoryBackend keeps documents in memory as encoded JSON. Intended for
// tests and dry experiments; nothing survives the process.
type MemoryBackend struct {
	docs  map[string][]byte
	Saves map[string]int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:  make(map[string][]byte),
		Saves: make(map[string]int),
	}
}

// Load implements Backend.
func (m *MemoryBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	data, ok := m.docs[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return true, nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	m.docs[name] = data
	m.Saves[name]++
	return nil
}
