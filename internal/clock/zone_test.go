package clock

import (
	"testing"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FallsBackToUTC(t *testing.T) {
	r := NewResolver("UTC")
	for _, id := range []string{"Not/AZone", "", "   ", "Local", "../etc/passwd"} {
		assert.Equal(t, time.UTC, r.Resolve(id), "zone %q", id)
		assert.False(t, r.Valid(id), "zone %q", id)
	}
}

func TestResolve_KnownZone(t *testing.T) {
	r := NewResolver("UTC")
	loc := r.Resolve("America/New_York")
	require.NotNil(t, loc)
	assert.Equal(t, "America/New_York", loc.String())
	assert.True(t, r.Valid(" America/New_York "))
	// cached lookups return the same location
	assert.Same(t, loc, r.Resolve("America/New_York"))
}

func TestNewResolver_InvalidDefault(t *testing.T) {
	r := NewResolver("Nowhere/Special")
	assert.Equal(t, time.UTC, r.Default)

	r = NewResolver("Asia/Tokyo")
	assert.Equal(t, "Asia/Tokyo", r.Resolve("bogus").String())
}

func TestLocalDateAndWeekday(t *testing.T) {
	r := NewResolver("UTC")
	// Monday 2026-03-02 03:30 UTC is still Sunday evening in New York.
	instant := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-02", LocalDate(instant, r.Resolve("UTC")))
	assert.Equal(t, internal.Monday, LocalWeekday(instant, r.Resolve("UTC")))

	ny := r.Resolve("America/New_York")
	assert.Equal(t, "2026-03-01", LocalDate(instant, ny))
	assert.Equal(t, internal.Sunday, LocalWeekday(instant, ny))

	tokyo := r.Resolve("Asia/Tokyo")
	assert.Equal(t, "2026-03-02", LocalDate(instant, tokyo))
	assert.Equal(t, internal.Monday, LocalWeekday(instant, tokyo))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	instant := time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC) // 01:00 on May 11 local

	start, end := DayBounds(instant, loc, 0)
	assert.Equal(t, time.Date(2026, 5, 10, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 5, 11, 22, 0, 0, 0, time.UTC), end)

	yStart, yEnd := DayBounds(instant, loc, -1)
	assert.Equal(t, time.Date(2026, 5, 9, 22, 0, 0, 0, time.UTC), yStart)
	assert.Equal(t, start, yEnd)
}

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC) // 15:00 local
	next := NextMidnight(instant, loc)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, loc), next)
	assert.True(t, next.After(instant))
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}
