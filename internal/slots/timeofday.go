package slots

import (
	"fmt"
	"strconv"
	"strings"

	"tutorportal/internal/model"
)

// MinutesPerDay is the end-of-day bound; "24:00" parses to it.
const MinutesPerDay = 24 * 60

// TimeOfDay is a clock time stored as minutes since midnight, so comparisons
// never depend on string ordering.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (an optional ":SS" suffix is accepted and
// must be zero). "24:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec != 0 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustParse is ParseTimeOfDay for literals known to be valid.
func MustParse(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MinutesToTime formats minutes since midnight as "HH:MM".
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (t TimeOfDay) String() string {
	return MinutesToTime(int(t))
}

// Minutes returns t as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Add returns t shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// TimeRange is a half-open [Start, End) interval on the 24h clock.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether [start, start+duration) lies within r.
func (r TimeRange) Contains(start TimeOfDay, duration int) bool {
	return r.Start <= start && start.Add(duration) <= r.End
}

// Overlaps reports whether [start, start+duration) intersects r. Intervals
// that only touch do not overlap.
func (r TimeRange) Overlaps(start TimeOfDay, duration int) bool {
	return start < r.End && start.Add(duration) > r.Start
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// ParseRange parses a start/end pair. The end must be after the start.
func ParseRange(start, end string) (TimeRange, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeRange{}, err
	}
	if s >= MinutesPerDay {
		return TimeRange{}, fmt.Errorf("range starts at end of day: %q", start)
	}
	if e <= s {
		return TimeRange{}, fmt.Errorf("range end %s is not after start %s", e, s)
	}
	return TimeRange{Start: s, End: e}, nil
}

// FromTimeSlots converts API time slots into ranges.
func FromTimeSlots(slots []model.TimeSlot) ([]TimeRange, error) {
	ranges := make([]TimeRange, 0, len(slots))
	for _, ts := range slots {
		r, err := ParseRange(ts.StartTime, ts.EndTime)
		if err != nil {
			return nil, fmt.Errorf("parse slot %s-%s: %w", ts.StartTime, ts.EndTime, err)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}
