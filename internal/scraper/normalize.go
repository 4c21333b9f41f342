package scraper

import (
	"context"
	"log"

	"otomoto-watcher/internal/geo"
)

type DetailSource interface {
	FetchDetails(ctx context.Context, listingURL string) (Details, error)
}

type DistanceResolver interface {
	Resolve(ctx context.Context, place string) geo.Distance
}

// Normalizer turns cards into complete Listings. Details and distances are
// optional; a nil source leaves the corresponding fields Unknown.
type Normalizer struct {
	extractor *Extractor
	details   DetailSource
	distances DistanceResolver
}

func NewNormalizer(extractor *Extractor, details DetailSource, distances DistanceResolver) *Normalizer {
	return &Normalizer{
		extractor: extractor,
		details:   details,
		distances: distances,
	}
}

func (n *Normalizer) Normalize(ctx context.Context, card Card) (Listing, bool) {
	listing, ok := n.extractor.Extract(card)
	if !ok {
		return Listing{}, false
	}

	if n.details != nil {
		d, err := n.details.FetchDetails(ctx, listing.ID)
		if err != nil {
			log.Printf("Detail enrichment skipped for %s: %v", listing.ID, err)
			d = UnknownDetails()
		}
		listing.VIN = d.VIN
		listing.FirstRegistration = d.FirstRegistration
		listing.Plate = d.Plate
	}

	if n.distances != nil && IsKnown(listing.Location) && listing.Location != "" {
		listing.Distance = n.distances.Resolve(ctx, listing.Location)
	}

	return listing, true
}
