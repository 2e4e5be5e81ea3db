package clock

import (
	"strings"
	"sync"
	"time"

	"github.com/daftuyda/Igris/internal"
)

// Resolver turns user supplied zone identifiers into locations. Unknown or malformed
// identifiers resolve to the default zone; a bad zone never blocks an evaluation.
type Resolver struct {
	Default *time.Location

	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewResolver uses defaultZone as the fallback, or UTC when defaultZone is itself invalid.
func NewResolver(defaultZone string) *Resolver {
	r := &Resolver{Default: time.UTC, cache: make(map[string]*time.Location)}
	if loc, ok := r.load(defaultZone); ok {
		r.Default = loc
	}
	return r
}

func (r *Resolver) Resolve(zoneID string) *time.Location {
	if loc, ok := r.load(zoneID); ok {
		return loc
	}
	return r.Default
}

// Valid reports whether zoneID names a loadable zone, without falling back.
func (r *Resolver) Valid(zoneID string) bool {
	_, ok := r.load(zoneID)
	return ok
}

func (r *Resolver) load(zoneID string) (*time.Location, bool) {
	id := strings.TrimSpace(zoneID)
	// time.LoadLocation maps "" and "Local" to non-IANA zones; neither is a user setting.
	if id == "" || id == "Local" {
		return nil, false
	}
	r.mu.RLock()
	loc, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return loc, loc != nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		loc = nil
	}
	r.mu.Lock()
	r.cache[id] = loc
	r.mu.Unlock()
	return loc, loc != nil
}

// LocalDate returns the YYYY-MM-DD calendar date of instant in loc.
func LocalDate(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(internal.DateLayout)
}

func LocalWeekday(instant time.Time, loc *time.Location) internal.Weekday {
	return internal.WeekdayOf(instant.In(loc).Weekday())
}

// DayBounds returns the UTC start and end of the local day containing instant,
// shifted by offsetDays (-1 is yesterday).
func DayBounds(instant time.Time, loc *time.Location, offsetDays int) (time.Time, time.Time) {
	local := instant.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day()+offsetDays, 0, 0, 0, 0, loc)
	end := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// NextMidnight returns the next local midnight after instant, in loc.
func NextMidnight(instant time.Time, loc *time.Location) time.Time {
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
