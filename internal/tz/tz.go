// Package tz converts between wall-clock strings in IANA zones and UTC instants.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// Embedded zoneinfo so conversions do not depend on the host tz database.
	_ "time/tzdata"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDateTime = errors.New("invalid datetime")
)

// Go reference layouts used across the app.
const (
	DisplayLayout = "2006-01-02 15:04"
	NowLayout     = "2006-01-02 15:04:05"
	PayloadLayout = "2006-01-02T15:04:05-07:00"
	InputLayout   = "2006-01-02T15:04"
)

// accepted wall-clock inputs, most specific first
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadLocation resolves an IANA zone name. Empty and "Local" are rejected so
// the host zone never leaks into stored schedules.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// ValidTimezone reports whether name is a loadable IANA zone.
func ValidTimezone(name string) bool {
	_, err := LoadLocation(name)
	return err == nil
}

// LocalToUTC interprets local (no offset) as wall-clock time in timezone.
func LocalToUTC(local, timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}

	local = strings.TrimSpace(local)
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, local, loc)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, local)
}

// UTCToLocal renders instant in timezone using a Go layout (DisplayLayout when empty).
func UTCToLocal(instant time.Time, timezone, layout string) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	if layout == "" {
		layout = DisplayLayout
	}
	return instant.In(loc).Format(layout), nil
}

// NowIn renders the current time in timezone (NowLayout when empty).
func NowIn(timezone, layout string) (string, error) {
	if layout == "" {
		layout = NowLayout
	}
	return UTCToLocal(time.Now(), timezone, layout)
}
