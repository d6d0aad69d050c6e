package availability

import (
	"fmt"
	"time"
)

// All wall-clock conversions in the engine go through these helpers so DST
// semantics live in exactly one place.

// LoadZone resolves an IANA zone name.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// ToInstant converts a local wall-clock time in loc to an instant.
//
// On a spring-forward day some wall times do not exist; those return
// ok=false. On a fall-back day some wall times occur twice; those resolve to
// the earlier instant.
func ToInstant(year int, month time.Month, day, hour, minute int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		// time.Date normalised the value away: the wall time does not exist.
		return time.Time{}, false
	}
	// If the same wall clock also occurs one hour earlier, the time is
	// ambiguous and the earlier instant wins.
	earlier := t.Add(-time.Hour)
	e := earlier.In(loc)
	if e.Year() == year && e.Month() == month && e.Day() == day && e.Hour() == hour && e.Minute() == minute {
		return earlier, true
	}
	return t, true
}

// IsValidLocal reports whether the wall time exists in loc.
func IsValidLocal(year int, month time.Month, day, hour, minute int, loc *time.Location) bool {
	_, ok := ToInstant(year, month, day, hour, minute, loc)
	return ok
}

// ToLocalWall converts an instant to its wall-clock representation in loc.
func ToLocalWall(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// LocalMidnight returns the instant at which the given local date begins.
// On days where 00:00 does not exist the first existing instant of the day
// is used.
func LocalMidnight(year int, month time.Month, day int, loc *time.Location) time.Time {
	if t, ok := ToInstant(year, month, day, 0, 0, loc); ok {
		return t
	}
	// Rare zones skip midnight on DST transitions; fall back to the
	// normalised value.
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
