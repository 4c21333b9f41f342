package scraper

import (
	"net/url"

	"otomoto-watcher/internal/geo"

	"github.com/PuerkitoBio/goquery"
)

// Unknown marks a field the markup did not yield. It is distinct from an
// empty string, which is a legitimately empty value.
const Unknown = "❓ unknown"

// Listing is one observation of an ad at crawl time. Every field is always
// set; missing values carry Unknown.
type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	PriceText    string       `json:"price_text"`
	Price        int          `json:"price"`
	Year         string       `json:"year"`
	FuelType     string       `json:"fuel_type"`
	Gearbox      string       `json:"gearbox"`
	Mileage      string       `json:"mileage"`
	Location     string       `json:"location"`
	Power        string       `json:"power"`
	Displacement string       `json:"displacement"`
	ImageURL     string       `json:"image_url"`
	Distance     geo.Distance `json:"distance"`

	VIN               string `json:"vin"`
	FirstRegistration string `json:"first_registration"`
	Plate             string `json:"plate"`
}

// Card is the markup of a single listing on a search result page.
type Card struct {
	Page    int
	PageURL *url.URL
	Sel     *goquery.Selection
}

func IsKnown(value string) bool {
	return value != Unknown
}
