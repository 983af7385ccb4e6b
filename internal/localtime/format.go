// Package localtime renders appointment timestamps in the clinic's zone.
package localtime

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DefaultZone = "America/Argentina/Buenos_Aires"

	dateLayout  = "2/1/2006"
	clockLayout = "15:04"
)

// LoadZone resolves an IANA zone name; empty means DefaultZone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// FormatLocal returns the calendar date (d/m/yyyy) and the 24h time of day
// (HH:mm) of t as seen in loc.
func FormatLocal(t time.Time, loc *time.Location) (date, clock string) {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return lt.Format(dateLayout), lt.Format(clockLayout)
}
