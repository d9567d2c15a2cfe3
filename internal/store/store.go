// Package store persists per-conversation memory snapshots in SQLite.
package store

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Load when the snapshot file does not exist.
var ErrNoSnapshot = errors.New("no snapshot")

// Record is one persisted memory entry. Tags are kept in wire form, so the
// creation time travels inside the DATETIME tag.
type Record struct {
	ID      string   `json:"id"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Snapshot is the full durable state of one conversation: the ordered
// entries and the tag index (tags listed by id).
type Snapshot struct {
	Records  []Record `json:"records"`
	TagIndex []string `json:"tag_index"`
}

// Store defines snapshot persistence.
type Store interface {
	// Load reads the snapshot at path. A missing file yields ErrNoSnapshot.
	Load(ctx context.Context, path string) (*Snapshot, error)

	// Save replaces the snapshot at path atomically.
	Save(ctx context.Context, path string, snap *Snapshot) error
}
