package geo

import "context"

// Entry is a cached lookup outcome. Found is false for places the geocoder
// could not resolve, so failed lookups are not repeated either.
type Entry struct {
	Point Point `json:"point"`
	Found bool  `json:"found"`
}

type Cache interface {
	Get(ctx context.Context, place string) (Entry, bool)
	Set(ctx context.Context, place string, entry Entry)
}

// MemoryCache memoizes lookups for the lifetime of one run. Not safe for
// concurrent use.
type MemoryCache struct {
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (m *MemoryCache) Get(ctx context.Context, place string) (Entry, bool) {
	e, ok := m.entries[place]
	return e, ok
}

func (m *MemoryCache) Set(ctx context.Context, place string, entry Entry) {
	m.entries[place] = entry
}

// LayeredCache consults its layers in order and backfills the faster layers
// on a hit in a slower one.
type LayeredCache struct {
	layers []Cache
}

func NewLayeredCache(layers ...Cache) *LayeredCache {
	var nonNil []Cache
	for _, l := range layers {
		if l != nil {
			nonNil = append(nonNil, l)
		}
	}
	return &LayeredCache{layers: nonNil}
}

func (l *LayeredCache) Get(ctx context.Context, place string) (Entry, bool) {
	for i, layer := range l.layers {
		if e, ok := layer.Get(ctx, place); ok {
			for _, upper := range l.layers[:i] {
				upper.Set(ctx, place, e)
			}
			return e, true
		}
	}
	return Entry{}, false
}

func (l *LayeredCache) Set(ctx context.Context, place string, entry Entry) {
	for _, layer := range l.layers {
		layer.Set(ctx, place, entry)
	}
}
