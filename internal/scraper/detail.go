package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ErrDetailUnavailable = errors.New("detail page unavailable")

type Details struct {
	VIN               string
	FirstRegistration string
	Plate             string
}

func UnknownDetails() Details {
	return Details{VIN: Unknown, FirstRegistration: Unknown, Plate: Unknown}
}

var (
	vinKeys          = keySet("vin", "vehicleIdentificationNumber")
	registrationKeys = keySet("dateVehicleFirstRegistered", "date_registration", "firstRegistration", "first_registration")
	plateKeys        = keySet("registration", "registrationNumber", "licensePlate", "plate")
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = true
	}
	return set
}

// FetchDetails loads a listing's own page for the fields the search card
// does not show.
func (s *PageCrawler) FetchDetails(ctx context.Context, listingURL string) (Details, error) {
	if err := ctx.Err(); err != nil {
		return UnknownDetails(), err
	}

	doc, _, err := s.fetch(listingURL)
	if err != nil {
		return UnknownDetails(), fmt.Errorf("%w: %v", ErrDetailUnavailable, err)
	}

	return ParseDetails(doc, s.selectors), nil
}

// ParseDetails reads embedded structured data first (JSON-LD or the page's
// state blob) and falls back to dedicated markup regions.
func ParseDetails(doc *goquery.Selection, selectors Selectors) Details {
	d := UnknownDetails()

	doc.Find("script[type='application/ld+json'], script#__NEXT_DATA__").Each(func(_ int, script *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			return
		}
		walkStructured(data, &d)
	})

	if !IsKnown(d.VIN) {
		d.VIN = detailText(doc, selectors.DetailVIN)
	}
	if !IsKnown(d.FirstRegistration) {
		d.FirstRegistration = detailText(doc, selectors.DetailFirstRegistration)
	}
	if !IsKnown(d.Plate) {
		d.Plate = detailText(doc, selectors.DetailPlate)
	}

	return d
}

// walkStructured fills unknown fields from both {"vin": "..."} objects and
// {"key": "vin", "value": "..."} parameter lists. Object keys are visited in
// sorted order, string values before nested ones, so the first match is
// the same on every run.
func walkStructured(node any, d *Details) {
	switch v := node.(type) {
	case map[string]any:
		if key, ok := v["key"].(string); ok {
			if value, ok := v["value"].(string); ok {
				assignDetail(d, key, value)
			}
		}
		keys := slices.Sorted(maps.Keys(v))
		for _, key := range keys {
			if value, ok := v[key].(string); ok {
				assignDetail(d, key, value)
			}
		}
		for _, key := range keys {
			if _, ok := v[key].(string); !ok {
				walkStructured(v[key], d)
			}
		}
	case []any:
		for _, child := range v {
			walkStructured(child, d)
		}
	}
}

func assignDetail(d *Details, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	key = strings.ToLower(key)
	switch {
	case vinKeys[key] && !IsKnown(d.VIN):
		d.VIN = value
	case registrationKeys[key] && !IsKnown(d.FirstRegistration):
		d.FirstRegistration = value
	case plateKeys[key] && !IsKnown(d.Plate):
		d.Plate = value
	}
}

func detailText(doc *goquery.Selection, selector string) string {
	region := doc.Find(selector).First()
	if region.Length() == 0 {
		return Unknown
	}

	// Regions are usually "<p>label</p><p>value</p>"
	if values := region.Find("p"); values.Length() > 1 {
		return cleanText(values.Last().Text())
	}
	return cleanText(region.Text())
}
