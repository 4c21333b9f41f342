package kafka

import (
	"time"

	"otomoto-watcher/internal/tracker"
)

const (
	EventListing       = "listing_event"
	EventRunSummary    = "run_summary"
	EventScrapeRequest = "scrape_request"
)

type ListingEvent struct {
	EventType string        `json:"event_type"`
	Event     tracker.Event `json:"event"`
	FoundAt   time.Time     `json:"found_at"`
}

type RunSummaryEvent struct {
	EventType    string    `json:"event_type"`
	RunID        string    `json:"run_id"`
	Listings     int       `json:"listings"`
	NewListings  int       `json:"new_listings"`
	PriceChanges int       `json:"price_changes"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

type ScrapeRequestEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}
