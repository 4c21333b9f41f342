package utils

import (
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	cases := map[int]string{
		0:       "0 PLN",
		950:     "950 PLN",
		1000:    "1 000 PLN",
		129900:  "129 900 PLN",
		1250000: "1 250 000 PLN",
	}
	for in, want := range cases {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestGroupThousandsNegative(t *testing.T) {
	if got := GroupThousands(-5000); got != "-5 000" {
		t.Errorf("Expected -5 000, got %q", got)
	}
}

func TestFormatSignedPercent(t *testing.T) {
	if got := FormatSignedPercent(-5000, 5.0); got != "-5.0%" {
		t.Errorf("Expected -5.0%%, got %q", got)
	}
	if got := FormatSignedPercent(12500, 12.5); got != "+12.5%" {
		t.Errorf("Expected +12.5%%, got %q", got)
	}
}

func TestFormatLocalTime(t *testing.T) {
	winter := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	if got := FormatLocalTime(winter); got != "2025-01-15 13:00" {
		t.Errorf("Expected CET time, got %s", got)
	}

	summer := time.Date(2025, 7, 15, 23, 30, 0, 0, time.UTC)
	if got := FormatLocalTime(summer); got != "2025-07-16 01:30" {
		t.Errorf("Expected CEST time across midnight, got %s", got)
	}
}
