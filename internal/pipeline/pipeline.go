// Package pipeline runs one watch cycle: crawl, detect, persist, notify and
// report.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/report"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/state"
	"otomoto-watcher/internal/tracker"

	"github.com/google/uuid"
)

type CardSource interface {
	Cards(ctx context.Context) iter.Seq2[scraper.Card, error]
}

type ListingNormalizer interface {
	Normalize(ctx context.Context, card scraper.Card) (scraper.Listing, bool)
}

// Dispatcher delivers one event. Failures are logged and never retried.
type Dispatcher interface {
	Dispatch(ctx context.Context, event tracker.Event) error
}

type Reporter interface {
	Run(ctx context.Context, runID string, listings []scraper.Listing, at time.Time) (report.Summary, error)
}

type SummaryPublisher interface {
	PublishRunSummary(ctx context.Context, event kafka.RunSummaryEvent) error
}

type Options struct {
	Source      CardSource
	Normalizer  ListingNormalizer
	Store       state.Store
	Dispatchers []Dispatcher

	// Optional.
	Reporter  Reporter
	Summaries SummaryPublisher
	Now       func() time.Time
}

type Pipeline struct {
	source      CardSource
	normalizer  ListingNormalizer
	store       state.Store
	dispatchers []Dispatcher
	reporter    Reporter
	summaries   SummaryPublisher
	now         func() time.Time
}

func New(opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		source:      opts.Source,
		normalizer:  opts.Normalizer,
		store:       opts.Store,
		dispatchers: opts.Dispatchers,
		reporter:    opts.Reporter,
		summaries:   opts.Summaries,
		now:         now,
	}
}

type Result struct {
	RunID     string
	Listings  []scraper.Listing
	Skipped   int
	Events    []tracker.Event
	Saved     bool
	Delivered int
	Failed    int
	Report    *report.Summary
}

func (r *Result) count(kind tracker.EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Run executes one cycle. The whole batch is crawled before anything is
// detected, so a page failure leaves state untouched and sends nothing.
// State is saved before dispatch; if saving fails nothing is sent either.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	res := &Result{RunID: uuid.NewString()}
	log.Printf("▶️ Run %s started", res.RunID)

	st, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	for card, err := range p.source.Cards(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to crawl listings: %w", err)
		}

		listing, ok := p.normalizer.Normalize(ctx, card)
		if !ok {
			res.Skipped++
			continue
		}
		res.Listings = append(res.Listings, listing)
	}
	log.Printf("Collected %d listings (%d cards skipped)", len(res.Listings), res.Skipped)

	observedAt := p.now()
	for _, listing := range res.Listings {
		res.Events = append(res.Events, st.Observe(listing, observedAt)...)
	}

	if st.Dirty() {
		if err := p.store.Save(ctx, st); err != nil {
			return nil, fmt.Errorf("failed to save state: %w", err)
		}
		res.Saved = true
	}

	for _, event := range res.Events {
		logEvent(event)
		for _, d := range p.dispatchers {
			if err := d.Dispatch(ctx, event); err != nil {
				log.Printf("❌ Dispatch failed for %s: %v", event.Listing.ID, err)
				res.Failed++
				continue
			}
			res.Delivered++
		}
	}

	if p.reporter != nil {
		summary, err := p.reporter.Run(ctx, res.RunID, res.Listings, p.now())
		if err != nil {
			log.Printf("❌ Report failed: %v", err)
		}
		res.Report = &summary
	}

	if p.summaries != nil {
		event := kafka.RunSummaryEvent{
			RunID:        res.RunID,
			Listings:     len(res.Listings),
			NewListings:  res.count(tracker.EventNewListing),
			PriceChanges: res.count(tracker.EventPriceChanged),
			StartedAt:    started.UTC(),
			FinishedAt:   p.now().UTC(),
		}
		if err := p.summaries.PublishRunSummary(ctx, event); err != nil {
			log.Printf("❌ Run summary not published: %v", err)
		}
	}

	log.Printf("✅ Run %s done in %v: %d listings, %d new, %d price changes, %d delivered, %d failed",
		res.RunID, p.now().Sub(started).Round(time.Millisecond), len(res.Listings),
		res.count(tracker.EventNewListing), res.count(tracker.EventPriceChanged), res.Delivered, res.Failed)

	return res, nil
}

func logEvent(e tracker.Event) {
	switch e.Kind {
	case tracker.EventNewListing:
		log.Printf("🆕 %s (%d) %s", e.Listing.Title, e.Listing.Price, e.Listing.ID)
	case tracker.EventPriceChanged:
		icon := "📈"
		if e.Direction == tracker.Decreased {
			icon = "📉"
		}
		log.Printf("%s %s %d -> %d (%.1f%%) %s", icon, e.Listing.Title, e.PreviousPrice, e.Listing.Price, e.Percent, e.Listing.ID)
	}
}
