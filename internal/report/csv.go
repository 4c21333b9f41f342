package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"otomoto-watcher/internal/scraper"
)

var csvHeader = []string{
	"id", "title", "price_text", "price", "year", "fuel_type", "gearbox", "mileage",
	"location", "distance_km", "distance_tier", "power", "displacement", "image_url",
	"vin", "first_registration", "plate",
}

// WriteCSV creates (or truncates) path and writes the whole batch.
func WriteCSV(path string, listings []scraper.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, l := range listings {
		distance := ""
		if l.Distance.Known() {
			distance = strconv.FormatFloat(l.Distance.Km, 'f', 1, 64)
		}

		row := []string{
			l.ID,
			l.Title,
			l.PriceText,
			strconv.Itoa(l.Price),
			l.Year,
			l.FuelType,
			l.Gearbox,
			l.Mileage,
			l.Location,
			distance,
			string(l.Distance.Tier),
			l.Power,
			l.Displacement,
			l.ImageURL,
			l.VIN,
			l.FirstRegistration,
			l.Plate,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return f.Close()
}
