package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"otomoto-watcher/internal/geo"

	"github.com/go-redis/redis/v8"
)

// Misses are places the geocoder found nothing for; transport failures
// never reach the cache.
const (
	foundTTL    = 30 * 24 * time.Hour
	notFoundTTL = 6 * time.Hour
)

// RedisCache keeps geocoding results across runs so that recurring
// locations are looked up once per TTL instead of once per run.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func geoKey(place string) string {
	return fmt.Sprintf("geocode:%s", place)
}

func (r *RedisCache) Get(ctx context.Context, place string) (geo.Entry, bool) {
	data, err := r.client.Get(ctx, geoKey(place)).Result()
	if err == redis.Nil {
		return geo.Entry{}, false
	}
	if err != nil {
		log.Printf("Redis get failed for %q: %v", place, err)
		return geo.Entry{}, false
	}

	var entry geo.Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return geo.Entry{}, false
	}

	return entry, true
}

func (r *RedisCache) Set(ctx context.Context, place string, entry geo.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	ttl := foundTTL
	if !entry.Found {
		ttl = notFoundTTL
	}

	if err := r.client.Set(ctx, geoKey(place), data, ttl).Err(); err != nil {
		log.Printf("Redis set failed for %q: %v", place, err)
	}
}
