package utils

import (
	"time"
	_ "time/tzdata"
)

const localZone = "Europe/Warsaw"

// ToLocalTime converts a stored UTC timestamp to marketplace local time.
// Falls back to UTC if the zone database is unavailable.
func ToLocalTime(t time.Time) time.Time {
	loc, err := time.LoadLocation(localZone)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

func FormatLocalTime(t time.Time) string {
	return ToLocalTime(t).Format("2006-01-02 15:04")
}
