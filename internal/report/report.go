// Package report summarises one crawl and ships the full batch as CSV.
package report

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"otomoto-watcher/internal/geo"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/utils"
)

// Summary holds batch statistics. Price figures only consider listings whose
// price could be parsed.
type Summary struct {
	Count    int
	Priced   int
	Mean     float64
	Min      int
	Max      int
	Cheapest *scraper.Listing
	ByTier   map[geo.Tier]int
}

func Generate(listings []scraper.Listing) Summary {
	s := Summary{
		Count:  len(listings),
		ByTier: make(map[geo.Tier]int),
	}

	var total float64
	for i := range listings {
		l := &listings[i]
		if l.Distance.Known() {
			s.ByTier[l.Distance.Tier]++
		}
		if l.Price <= 0 {
			continue
		}

		if s.Priced == 0 || l.Price < s.Min {
			s.Min = l.Price
			s.Cheapest = l
		}
		if l.Price > s.Max {
			s.Max = l.Price
		}
		total += float64(l.Price)
		s.Priced++
	}

	if s.Priced > 0 {
		s.Mean = math.Round(total/float64(s.Priced)*100) / 100
	}
	return s
}

func (s Summary) Render(at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Report %s*\n", utils.FormatLocalTime(at))
	fmt.Fprintf(&b, "🚗 Listings: %d\n", s.Count)
	if s.Priced == 0 {
		b.WriteString("💰 No parsable prices")
		return b.String()
	}

	fmt.Fprintf(&b, "💰 Mean: %s\n", utils.FormatPrice(int(math.Round(s.Mean))))
	fmt.Fprintf(&b, "⬇️ Min: %s\n", utils.FormatPrice(s.Min))
	fmt.Fprintf(&b, "⬆️ Max: %s", utils.FormatPrice(s.Max))

	if len(s.ByTier) > 0 {
		fmt.Fprintf(&b, "\n%s %d | %s %d | %s %d",
			geo.TierNear.Marker(), s.ByTier[geo.TierNear],
			geo.TierModerate.Marker(), s.ByTier[geo.TierModerate],
			geo.TierFar.Marker(), s.ByTier[geo.TierFar])
	}
	return b.String()
}

type Sender interface {
	SendText(text string) error
	SendDocument(path string) error
}

type Archiver interface {
	Archive(ctx context.Context, localPath string) (string, error)
}

// Generator writes the CSV for a batch and sends the summary followed by the
// file. Sender and Archiver are optional.
type Generator struct {
	dir     string
	sender  Sender
	archive Archiver
}

func NewGenerator(dir string, sender Sender, archive Archiver) *Generator {
	return &Generator{dir: dir, sender: sender, archive: archive}
}

// Run never fails the crawl; problems are returned for logging only.
func (g *Generator) Run(ctx context.Context, runID string, listings []scraper.Listing, at time.Time) (Summary, error) {
	summary := Generate(listings)

	path := filepath.Join(g.dir, fmt.Sprintf("otomoto-%s-%s.csv", at.UTC().Format("20060102-150405"), shortID(runID)))
	if err := WriteCSV(path, listings); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	log.Printf("📄 Report written to %s", path)

	if g.sender != nil {
		if err := g.sender.SendText(summary.Render(at)); err != nil {
			return summary, fmt.Errorf("failed to send report summary: %w", err)
		}
		if len(listings) > 0 {
			if err := g.sender.SendDocument(path); err != nil {
				return summary, fmt.Errorf("failed to send report file: %w", err)
			}
		}
	}

	if g.archive != nil {
		key, err := g.archive.Archive(ctx, path)
		if err != nil {
			return summary, fmt.Errorf("failed to archive report: %w", err)
		}
		log.Printf("☁️ Report archived as %s", key)
	}

	return summary, nil
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
