package geo

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a place has no coordinates: the geocoder
// found nothing or none is configured. Only these misses are cached.
var ErrUnavailable = errors.New("geocoding unavailable")

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves free-form place names to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Point, error)
}

// Noop is used when geocoding is not configured.
type Noop struct{}

func (Noop) Geocode(ctx context.Context, place string) (Point, error) {
	return Point{}, ErrUnavailable
}
