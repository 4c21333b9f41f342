package geo

import (
	"context"
	"errors"
	"log"
	"math"
)

const earthRadiusKm = 6371.0

type Tier string

const (
	TierUnknown  Tier = "unknown"
	TierNear     Tier = "near"
	TierModerate Tier = "moderate"
	TierFar      Tier = "far"
)

const (
	nearLimitKm     = 100.0
	moderateLimitKm = 300.0
)

// Marker is the emoji shown next to the distance in notifications.
func (t Tier) Marker() string {
	switch t {
	case TierNear:
		return "🟢"
	case TierModerate:
		return "🟡"
	case TierFar:
		return "🔴"
	default:
		return ""
	}
}

type Distance struct {
	Km   float64 `json:"km"`
	Tier Tier    `json:"tier"`
}

var UnknownDistance = Distance{Tier: TierUnknown}

func (d Distance) Known() bool {
	return d.Tier != TierUnknown && d.Tier != ""
}

func TierFor(km float64) Tier {
	switch {
	case km <= nearLimitKm:
		return TierNear
	case km <= moderateLimitKm:
		return TierModerate
	default:
		return TierFar
	}
}

// Haversine returns the great-circle distance between two points in kilometers.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Locator turns location text into a distance tier relative to a fixed origin.
type Locator struct {
	geocoder Geocoder
	cache    Cache
	origin   Point
}

func NewLocator(geocoder Geocoder, cache Cache, origin Point) *Locator {
	if geocoder == nil {
		geocoder = Noop{}
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Locator{geocoder: geocoder, cache: cache, origin: origin}
}

// Resolve never fails: anything that prevents a lookup yields UnknownDistance.
func (l *Locator) Resolve(ctx context.Context, place string) Distance {
	entry, ok := l.cache.Get(ctx, place)
	if !ok {
		point, err := l.geocoder.Geocode(ctx, place)
		switch {
		case errors.Is(err, ErrUnavailable):
			entry = Entry{}
		case err != nil:
			// Transient failures are retried on the next lookup.
			log.Printf("Geocoding %q failed: %v", place, err)
			return UnknownDistance
		default:
			entry = Entry{Point: point, Found: true}
		}
		l.cache.Set(ctx, place, entry)
	}

	if !entry.Found {
		return UnknownDistance
	}

	km := Haversine(l.origin, entry.Point)
	return Distance{Km: math.Round(km*10) / 10, Tier: TierFor(km)}
}
