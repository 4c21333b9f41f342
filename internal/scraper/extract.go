package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"otomoto-watcher/internal/geo"

	"github.com/PuerkitoBio/goquery"
)

var (
	// Leftovers of inline <style> blocks that end up in Text() output
	cssRuleRegex     = regexp.MustCompile(`\.css-[^;]+;|\.css-[^}]+}`)
	cssPropertyRegex = regexp.MustCompile(`[a-zA-Z-]+:\s*[^;]+;`)
	spaceRegex       = regexp.MustCompile(`[\s\x{00a0}]+`)
	nonDigitRegex    = regexp.MustCompile(`\D`)

	powerRegex        = regexp.MustCompile(`\b(\d{2,4})[\s\x{00a0}]?KM\b`)
	displacementRegex = regexp.MustCompile(`\b(\d{1,2}[\s\x{00a0}]\d{3}|\d{2,5})[\s\x{00a0}]?cm[3³]`)
)

// Selectors locate listing fields in search result and detail markup.
type Selectors struct {
	Card       string `yaml:"card"`
	Pagination string `yaml:"pagination"`
	TitleLink  string `yaml:"title_link"`
	Price      string `yaml:"price"`
	Year       string `yaml:"year"`
	FuelType   string `yaml:"fuel_type"`
	Gearbox    string `yaml:"gearbox"`
	Mileage    string `yaml:"mileage"`
	Location   string `yaml:"location"`
	Spec       string `yaml:"spec"`
	Image      string `yaml:"image"`

	DetailVIN               string `yaml:"detail_vin"`
	DetailFirstRegistration string `yaml:"detail_first_registration"`
	DetailPlate             string `yaml:"detail_plate"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Card:       "article",
		Pagination: "li.ooa-6ysn8b, li[data-testid='pagination-list-item']",
		TitleLink:  "h2 a[href]",
		Price:      "div[class*='rz87wg'] h3",
		Year:       "dd[data-parameter='year']",
		FuelType:   "dd[data-parameter='fuel_type']",
		Gearbox:    "dd[data-parameter='gearbox']",
		Mileage:    "dd[data-parameter='mileage']",
		Location:   "dd > p",
		Spec:       "p[class*='w3crlp']",
		Image:      "img",

		DetailVIN:               "[data-testid='vin']",
		DetailFirstRegistration: "[data-testid='date_registration']",
		DetailPlate:             "[data-testid='registration']",
	}
}

// Merge fills empty selectors from defaults.
func (s Selectors) Merge(defaults Selectors) Selectors {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Selectors{
		Card:                    pick(s.Card, defaults.Card),
		Pagination:              pick(s.Pagination, defaults.Pagination),
		TitleLink:               pick(s.TitleLink, defaults.TitleLink),
		Price:                   pick(s.Price, defaults.Price),
		Year:                    pick(s.Year, defaults.Year),
		FuelType:                pick(s.FuelType, defaults.FuelType),
		Gearbox:                 pick(s.Gearbox, defaults.Gearbox),
		Mileage:                 pick(s.Mileage, defaults.Mileage),
		Location:                pick(s.Location, defaults.Location),
		Spec:                    pick(s.Spec, defaults.Spec),
		Image:                   pick(s.Image, defaults.Image),
		DetailVIN:               pick(s.DetailVIN, defaults.DetailVIN),
		DetailFirstRegistration: pick(s.DetailFirstRegistration, defaults.DetailFirstRegistration),
		DetailPlate:             pick(s.DetailPlate, defaults.DetailPlate),
	}
}

// cleanText strips CSS artifacts and collapses whitespace.
func cleanText(text string) string {
	text = cssRuleRegex.ReplaceAllString(text, "")
	text = cssPropertyRegex.ReplaceAllString(text, "")
	text = spaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// ParsePrice keeps only the digits of a price text. Text without digits
// yields 0, which callers treat as "unparseable".
func ParsePrice(priceText string) int {
	digits := nonDigitRegex.ReplaceAllString(priceText, "")
	if digits == "" {
		return 0
	}

	price, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return price
}

// ParsePowerAndDisplacement pulls "190 KM" and "1969 cm³" out of a spec
// line such as "190 KM • 1 969 cm3". Field order and separators vary
// between listings, so the tokens are matched by unit.
func ParsePowerAndDisplacement(spec string) (power, displacement string) {
	power, displacement = Unknown, Unknown

	if m := powerRegex.FindStringSubmatch(spec); m != nil {
		power = m[1] + " KM"
	}
	if m := displacementRegex.FindStringSubmatch(spec); m != nil {
		displacement = spaceRegex.ReplaceAllString(m[1], "") + " cm³"
	}

	return power, displacement
}

// CanonicalID resolves href against the page it was found on and drops the
// query string and fragment, which carry tracking parameters.
func CanonicalID(pageURL *url.URL, href string) (string, error) {
	var (
		u   *url.URL
		err error
	)
	if pageURL != nil {
		u, err = pageURL.Parse(strings.TrimSpace(href))
	} else {
		u, err = url.Parse(strings.TrimSpace(href))
	}
	if err != nil {
		return "", fmt.Errorf("invalid listing link %q: %w", href, err)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

type Extractor struct {
	selectors Selectors
}

func NewExtractor(selectors Selectors) *Extractor {
	return &Extractor{selectors: selectors.Merge(DefaultSelectors())}
}

// Extract builds a Listing from a card. It reports false only when the card
// has no usable link, since a listing cannot be identified without one.
func (x *Extractor) Extract(card Card) (Listing, bool) {
	link := card.Sel.Find(x.selectors.TitleLink).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Listing{}, false
	}

	id, err := CanonicalID(card.PageURL, href)
	if err != nil {
		return Listing{}, false
	}

	priceText := textOf(card.Sel, x.selectors.Price)
	power, displacement := Unknown, Unknown
	if spec := textOf(card.Sel, x.selectors.Spec); IsKnown(spec) {
		power, displacement = ParsePowerAndDisplacement(spec)
	}

	title := cleanText(link.Text())
	if title == "" {
		title = Unknown
	}

	return Listing{
		ID:           id,
		Title:        title,
		PriceText:    priceText,
		Price:        ParsePrice(priceText),
		Year:         textOf(card.Sel, x.selectors.Year),
		FuelType:     textOf(card.Sel, x.selectors.FuelType),
		Gearbox:      textOf(card.Sel, x.selectors.Gearbox),
		Mileage:      textOf(card.Sel, x.selectors.Mileage),
		Location:     textOf(card.Sel, x.selectors.Location),
		Power:        power,
		Displacement: displacement,
		ImageURL:     imageOf(card, x.selectors.Image),

		Distance:          geo.UnknownDistance,
		VIN:               Unknown,
		FirstRegistration: Unknown,
		Plate:             Unknown,
	}, true
}

func textOf(sel *goquery.Selection, selector string) string {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return Unknown
	}
	return cleanText(found.Text())
}

func imageOf(card Card, selector string) string {
	img := card.Sel.Find(selector).First()
	if img.Length() == 0 {
		return Unknown
	}

	src, ok := img.Attr("src")
	if !ok || strings.TrimSpace(src) == "" || strings.HasPrefix(src, "data:") {
		src, ok = img.Attr("data-src")
	}
	if !ok || strings.TrimSpace(src) == "" {
		return Unknown
	}

	if card.PageURL != nil {
		if abs, err := card.PageURL.Parse(strings.TrimSpace(src)); err == nil {
			return abs.String()
		}
	}
	return strings.TrimSpace(src)
}
