package scraper

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"otomoto-watcher/internal/geo"

	"github.com/PuerkitoBio/goquery"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func loadCards(t *testing.T, name, pageURL string) []Card {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(loadFixture(t, name)))
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	u, _ := url.Parse(pageURL)

	var cards []Card
	doc.Find(DefaultSelectors().Card).Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, Card{Page: 1, PageURL: u, Sel: s})
	})
	return cards
}

func TestExtractFullCard(t *testing.T) {
	cards := loadCards(t, "search_page1.html", "https://www.otomoto.pl/osobowe/volvo")
	x := NewExtractor(Selectors{})

	l, ok := x.Extract(cards[0])
	if !ok {
		t.Fatal("Expected card to be extracted")
	}

	checks := map[string][2]string{
		"ID":           {l.ID, "https://www.otomoto.pl/osobowe/oferta/volvo-v60-b4-d-ID6Gv601.html"},
		"Title":        {l.Title, "Volvo V60 B4 D Momentum Pro"},
		"PriceText":    {l.PriceText, "129 900"},
		"Year":         {l.Year, "2021"},
		"FuelType":     {l.FuelType, "Diesel"},
		"Gearbox":      {l.Gearbox, "Automatyczna"},
		"Mileage":      {l.Mileage, "85 000 km"},
		"Location":     {l.Location, "Kraków (Małopolskie)"},
		"Power":        {l.Power, "190 KM"},
		"Displacement": {l.Displacement, "1969 cm³"},
		"ImageURL":     {l.ImageURL, "https://ireland.apollo.olxcdn.com/v1/files/v60-1/image;s=320x240"},
		"VIN":          {l.VIN, Unknown},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: expected %q, got %q", field, c[1], c[0])
		}
	}

	if l.Price != 129900 {
		t.Errorf("Expected price 129900, got %d", l.Price)
	}
	if l.Distance != geo.UnknownDistance {
		t.Errorf("Expected unknown distance, got %+v", l.Distance)
	}
}

func TestExtractMissingFieldsUseSentinel(t *testing.T) {
	cards := loadCards(t, "search_page1.html", "https://www.otomoto.pl/osobowe/volvo")
	x := NewExtractor(Selectors{})

	l, ok := x.Extract(cards[1])
	if !ok {
		t.Fatal("Expected card to be extracted")
	}

	if l.Mileage != Unknown {
		t.Errorf("Expected mileage %q, got %q", Unknown, l.Mileage)
	}
	if l.Location != Unknown {
		t.Errorf("Expected location %q, got %q", Unknown, l.Location)
	}
	if l.ImageURL != Unknown {
		t.Errorf("Expected image %q, got %q", Unknown, l.ImageURL)
	}
	if l.ID != "https://www.otomoto.pl/osobowe/oferta/volvo-v90-cross-country-ID6Gv902.html" {
		t.Errorf("Expected relative link to be resolved, got %q", l.ID)
	}
	if l.Displacement != "1969 cm³" {
		t.Errorf("Expected accented unit to be accepted, got %q", l.Displacement)
	}
}

func TestExtractSkipsCardWithoutLink(t *testing.T) {
	cards := loadCards(t, "search_page1.html", "https://www.otomoto.pl/osobowe/volvo")
	x := NewExtractor(Selectors{})

	if _, ok := x.Extract(cards[2]); ok {
		t.Error("Card without a link should not produce a listing")
	}
}

func TestExtractEmptyValueIsNotSentinel(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(bytes.NewReader([]byte(
		`<article><h2><a href="/oferta/x-ID1.html">X</a></h2><dd data-parameter="gearbox"></dd></article>`)))
	x := NewExtractor(Selectors{})

	l, ok := x.Extract(Card{Sel: doc.Find("article")})
	if !ok {
		t.Fatal("Expected card to be extracted")
	}
	if l.Gearbox != "" {
		t.Errorf("Expected empty gearbox, got %q", l.Gearbox)
	}
	if l.FuelType != Unknown {
		t.Errorf("Expected unknown fuel type, got %q", l.FuelType)
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]int{
		"129 900 PLN":    129900,
		"139 500":        139500,
		"99,900 zł":      99900,
		"Zapytaj o cenę": 0,
		"":               0,
		Unknown:          0,
	}

	for in, want := range cases {
		if got := ParsePrice(in); got != want {
			t.Errorf("ParsePrice(%q): expected %d, got %d", in, want, got)
		}
	}
}

func TestParsePowerAndDisplacement(t *testing.T) {
	cases := []struct {
		spec, power, displacement string
	}{
		{"190 KM • 1969 cm3", "190 KM", "1969 cm³"},
		{"1 969 cm3 • 197 KM", "197 KM", "1969 cm³"},
		{"250KM • 1969cm³", "250 KM", "1969 cm³"},
		{"Elektryczny • 408 KM", "408 KM", Unknown},
		{"998 cm3", Unknown, "998 cm³"},
		{"no numbers here", Unknown, Unknown},
	}

	for _, c := range cases {
		power, displacement := ParsePowerAndDisplacement(c.spec)
		if power != c.power {
			t.Errorf("%q: expected power %q, got %q", c.spec, c.power, power)
		}
		if displacement != c.displacement {
			t.Errorf("%q: expected displacement %q, got %q", c.spec, c.displacement, displacement)
		}
	}
}

func TestCanonicalID(t *testing.T) {
	page, _ := url.Parse("https://www.otomoto.pl/osobowe/volvo?page=2")

	cases := map[string]string{
		"/osobowe/oferta/a-ID1.html?reason=promoted": "https://www.otomoto.pl/osobowe/oferta/a-ID1.html",
		"https://www.otomoto.pl/oferta/b-ID2.html#x": "https://www.otomoto.pl/oferta/b-ID2.html",
		"https://www.otomoto.pl/oferta/c-ID3.html":   "https://www.otomoto.pl/oferta/c-ID3.html",
	}

	for href, want := range cases {
		got, err := CanonicalID(page, href)
		if err != nil {
			t.Fatalf("CanonicalID(%q) failed: %v", href, err)
		}
		if got != want {
			t.Errorf("CanonicalID(%q): expected %q, got %q", href, want, got)
		}
	}
}

func TestSelectorsMerge(t *testing.T) {
	s := Selectors{Card: "div.offer"}.Merge(DefaultSelectors())

	if s.Card != "div.offer" {
		t.Errorf("Expected override to be kept, got %q", s.Card)
	}
	if s.Mileage != DefaultSelectors().Mileage {
		t.Errorf("Expected default mileage selector, got %q", s.Mileage)
	}
}
