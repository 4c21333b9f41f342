// Package state persists the tracker's seen set and price history between
// runs.
package state

import (
	"context"

	"otomoto-watcher/internal/tracker"
)

// Store loads and saves tracker state. Load never fails because of missing
// or unreadable data; that is treated as an empty state.
type Store interface {
	Load(ctx context.Context) (*tracker.State, error)
	Save(ctx context.Context, s *tracker.State) error
}
