package tracker

import (
	"time"

	"otomoto-watcher/internal/scraper"
)

type EventKind string

const (
	EventNewListing   EventKind = "new_listing"
	EventPriceChanged EventKind = "price_changed"
)

type Direction string

const (
	Increased Direction = "increased"
	Decreased Direction = "decreased"
)

// Event is one notification-worthy change. PreviousPrice, Delta, Percent
// and Direction are only set for EventPriceChanged.
type Event struct {
	Kind          EventKind       `json:"kind"`
	Listing       scraper.Listing `json:"listing"`
	PreviousPrice int             `json:"previous_price,omitempty"`
	Delta         int             `json:"delta,omitempty"`
	Percent       float64         `json:"percent,omitempty"`
	Direction     Direction       `json:"direction,omitempty"`
}

// Decision is the outcome of comparing one listing against stored state.
type Decision struct {
	Events   []Event
	Append   *PriceObservation
	MarkSeen bool
}

// Detect classifies a listing. Price history absence decides whether a
// listing is new; the seen set only suppresses a repeated announcement when
// the two stores disagree. A zero price means the price could not be parsed
// and is never reported as a change.
func Detect(listing scraper.Listing, history []PriceObservation, seen bool, now time.Time) Decision {
	obs := &PriceObservation{Timestamp: now.UTC().Truncate(time.Second), Price: listing.Price}

	if len(history) == 0 {
		d := Decision{Append: obs, MarkSeen: true}
		if !seen {
			d.Events = []Event{{Kind: EventNewListing, Listing: listing}}
		}
		return d
	}

	last := history[len(history)-1].Price
	if listing.Price == last || listing.Price == 0 {
		return Decision{}
	}

	if last == 0 {
		return Decision{Append: obs}
	}

	return Decision{
		Events: []Event{PriceChange(listing, last)},
		Append: obs,
	}
}

func PriceChange(listing scraper.Listing, previous int) Event {
	delta := listing.Price - previous

	abs := delta
	direction := Increased
	if delta < 0 {
		abs = -delta
		direction = Decreased
	}

	return Event{
		Kind:          EventPriceChanged,
		Listing:       listing,
		PreviousPrice: previous,
		Delta:         delta,
		Percent:       float64(abs) * 100 / float64(previous),
		Direction:     direction,
	}
}

// Observe runs Detect against s and applies the result.
func (s *State) Observe(listing scraper.Listing, now time.Time) []Event {
	d := Detect(listing, s.History[listing.ID], s.Seen.Has(listing.ID), now)
	s.Apply(listing.ID, d)
	return d.Events
}
