package state

import (
	"context"
	"fmt"

	"otomoto-watcher/internal/database"
	"otomoto-watcher/internal/tracker"
)

// SQLStore keeps state in Postgres. Save only ever inserts, matching the
// append-only shape of tracker.State.
type SQLStore struct {
	db *database.DB
}

func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Load(ctx context.Context) (*tracker.State, error) {
	db := &database.DB{DB: s.db.WithContext(ctx)}
	st := tracker.NewState()

	ids, err := db.GetSeenListings()
	if err != nil {
		return nil, fmt.Errorf("failed to load seen listings: %w", err)
	}
	for _, id := range ids {
		st.Seen.Add(id)
	}

	observations, err := db.GetPriceObservations()
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	for _, o := range observations {
		st.History[o.ListingID] = append(st.History[o.ListingID], tracker.PriceObservation{
			Timestamp: o.ObservedAt.UTC(),
			Price:     o.Price,
		})
	}

	return st, nil
}

func (s *SQLStore) Save(ctx context.Context, st *tracker.State) error {
	db := &database.DB{DB: s.db.WithContext(ctx)}

	var observations []*database.PriceObservation
	for id, history := range st.History {
		for _, o := range history {
			observations = append(observations, &database.PriceObservation{
				ListingID:  id,
				ObservedAt: o.Timestamp.UTC(),
				Price:      o.Price,
			})
		}
	}

	if err := db.SaveState(st.Seen.IDs(), observations); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
