package availability

import (
	"testing"
	"time"

	"schedly/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadZone("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestToInstantNonexistentWallTime(t *testing.T) {
	loc := newYork(t)

	// 2026-03-08 02:30 does not exist: clocks jump 02:00 -> 03:00.
	_, ok := ToInstant(2026, time.March, 8, 2, 30, loc)
	assert.False(t, ok)

	_, ok = ToInstant(2026, time.March, 8, 3, 0, loc)
	assert.True(t, ok)
}

func TestToInstantAmbiguousResolvesEarlier(t *testing.T) {
	loc := newYork(t)

	// 2026-11-01 01:30 occurs twice: once in EDT, once in EST.
	got, ok := ToInstant(2026, time.November, 1, 1, 30, loc)
	require.True(t, ok)

	// The earlier occurrence is still on daylight time (UTC-4).
	assert.Equal(t, time.Date(2026, time.November, 1, 5, 30, 0, 0, time.UTC), got.UTC())
}

func TestToInstantOrdinaryDay(t *testing.T) {
	loc := newYork(t)

	got, ok := ToInstant(2026, time.June, 15, 9, 0, loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.June, 15, 13, 0, 0, 0, time.UTC), got.UTC())
}

func TestEnumerateDaySkipsSpringForwardGap(t *testing.T) {
	loc := newYork(t)
	hours := []models.WorkingHours{{DayOfWeek: 0, Start: "01:00", End: "04:00"}}

	slots := EnumerateDay(2026, time.March, 8, hours, 30*time.Minute, 30*time.Minute, loc)

	for _, s := range slots {
		local := s.Start.In(loc)
		assert.False(t, local.Hour() == 2, "no slot may start inside the 02:00 gap, got %v", local)
	}
	// 01:00, 01:30, then 03:00..03:30 — the 02:00 hour is gone entirely.
	require.Len(t, slots, 4)
	assert.Equal(t, 1, slots[0].Start.In(loc).Hour())
	assert.Equal(t, 3, slots[2].Start.In(loc).Hour())
}

func TestLocalMidnight(t *testing.T) {
	loc := newYork(t)

	got := LocalMidnight(2026, time.June, 15, loc)
	assert.Equal(t, 0, got.In(loc).Hour())
	assert.Equal(t, 15, got.In(loc).Day())
}

func TestLoadZoneRejectsGarbage(t *testing.T) {
	_, err := LoadZone("Not/AZone")
	assert.Error(t, err)
}
