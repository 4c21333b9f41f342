package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// otomoto renders locations as "Kraków (Małopolskie)"; the voivodeship in
// parentheses confuses the search, so it is moved after a comma.
var regionSuffix = regexp.MustCompile(`\s*\(([^)]*)\)\s*$`)

type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNominatim returns a geocoder for an OSM Nominatim instance. Requests are
// throttled to one per second as required by the public instance's usage policy.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, place string) (Point, error) {
	query := regionSuffix.ReplaceAllString(strings.TrimSpace(place), ", $1")
	if query == "" {
		return Point{}, ErrUnavailable
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("failed to geocode %q: %w", place, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("failed to geocode %q: status %d", place, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrUnavailable
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	return Point{Lat: lat, Lon: lon}, nil
}
