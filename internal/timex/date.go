package timex

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultZone is the reference zone used to name dated archive folders.
const DefaultZone = "America/Los_Angeles"

// LoadZone resolves an IANA zone name, falling back to DefaultZone when the
// name is empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// DateFolder renders t as YYYY-MM-DD in loc.
func DateFolder(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// ISO renders t as an ISO-8601 timestamp with millisecond precision in UTC.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
