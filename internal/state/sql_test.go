package state

import (
	"context"
	"os"
	"testing"
	"time"

	"otomoto-watcher/internal/database"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/tracker"
)

func TestSQLStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatal("Failed to connect to DB:", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	listingID := id + "?sql"
	defer db.DeleteListing(listingID)

	store := NewSQLStore(db)
	s := tracker.NewState()
	s.Observe(scraper.Listing{ID: listingID, Price: 70000}, loadTime)
	s.Observe(scraper.Listing{ID: listingID, Price: 68000}, loadTime.Add(time.Minute))

	if err := store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatal("Saving twice should be harmless:", err)
	}

	reloaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Seen.Has(listingID) {
		t.Error("Expected listing in seen set")
	}
	obs := reloaded.History[listingID]
	if len(obs) != 2 || obs[1].Price != 68000 {
		t.Errorf("Expected two observations ending at 68000, got %+v", obs)
	}
}
