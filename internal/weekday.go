package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday uses Monday=0 ... Sunday=6, unlike time.Weekday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func (w Weekday) IsValid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.IsValid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// WeekdayOf converts a standard library weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// WeekdaySet is a 7-bit mask, bit i set when Weekday(i) is active.
type WeekdaySet uint8

const AllWeekdays WeekdaySet = 0x7f

func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) With(w Weekday) WeekdaySet {
	if !w.IsValid() {
		return s
	}
	return s | 1<<uint(w)
}

func (s WeekdaySet) Has(w Weekday) bool {
	return w.IsValid() && s&(1<<uint(w)) != 0
}

func (s WeekdaySet) Days() []Weekday {
	days := make([]Weekday, 0, 7)
	for w := Monday; w <= Sunday; w++ {
		if s.Has(w) {
			days = append(days, w)
		}
	}
	return days
}

// String renders the set as "0,2,4".
func (s WeekdaySet) String() string {
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	days := s.Days()
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	return json.Marshal(ints)
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return fmt.Errorf("weekday set: %w", err)
	}
	var set WeekdaySet
	for _, n := range ints {
		w := Weekday(n)
		if !w.IsValid() {
			return fmt.Errorf("weekday %d out of range 0-6", n)
		}
		set = set.With(w)
	}
	*s = set
	return nil
}
