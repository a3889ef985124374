// Package snapshot persists the room table between process runs.
package snapshot

import (
	"context"
	"encoding/json"
)

// Store is a durable home for room snapshots. Save replaces the whole previous
// snapshot; Load returns an empty map when nothing has been saved yet.
type Store interface {
	Save(ctx context.Context, rooms map[string]json.RawMessage) error
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	Close() error
}
