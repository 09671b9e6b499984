// Package slots computes bookable appointment start times and durations from
// a teacher's availability ranges and the slots already booked for the day.
package slots

import "sort"

const (
	// Step between offered start times, in minutes.
	Step = 30
	// MinDuration is the shortest bookable appointment, in minutes.
	MinDuration = 30
)

// DurationChoices are the appointment lengths offered to the user, in minutes.
var DurationChoices = []int{30, 60, 90, 120, 150, 180, 210, 240}

// SlotInfo is a simplified representation for UI.
type SlotInfo struct {
	Start     string `json:"start"` // "10:00"
	End       string `json:"end"`   // "10:30"
	Available bool   `json:"available"`
}

// GenerateStartTimes returns every Step-aligned start offset of each range that
// still leaves room for MinDuration before the range end. Ranges are handled
// independently; the result is de-duplicated and sorted ascending.
func GenerateStartTimes(ranges []TimeRange) []TimeOfDay {
	seen := make(map[TimeOfDay]struct{})
	out := make([]TimeOfDay, 0)

	for _, r := range ranges {
		for cursor := r.Start; cursor.Add(MinDuration) <= r.End; cursor = cursor.Add(Step) {
			if _, ok := seen[cursor]; ok {
				continue
			}
			seen[cursor] = struct{}{}
			out = append(out, cursor)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSlotAvailable reports whether an appointment of durationMinutes starting at
// start fits entirely in one availability range and overlaps no booked slot.
func IsSlotAvailable(start TimeOfDay, durationMinutes int, ranges, booked []TimeRange) bool {
	if durationMinutes <= 0 {
		return false
	}

	contained := false
	for _, r := range ranges {
		if r.Contains(start, durationMinutes) {
			contained = true
			break
		}
	}
	if !contained {
		return false
	}

	for _, b := range booked {
		if b.Overlaps(start, durationMinutes) {
			return false
		}
	}
	return true
}

// IsValidDuration checks one of the offered durations against a chosen start.
func IsValidDuration(start TimeOfDay, durationMinutes int, ranges, booked []TimeRange) bool {
	return IsSlotAvailable(start, durationMinutes, ranges, booked)
}

// AvailableDurations filters DurationChoices down to the ones bookable at start.
func AvailableDurations(start TimeOfDay, ranges, booked []TimeRange) []int {
	options := make([]int, 0, len(DurationChoices))
	for _, d := range DurationChoices {
		if IsValidDuration(start, d, ranges, booked) {
			options = append(options, d)
		}
	}
	return options
}

// Slots lists every candidate start time with the availability of the
// minimum-length appointment at that time.
func Slots(ranges, booked []TimeRange) []SlotInfo {
	starts := GenerateStartTimes(ranges)
	result := make([]SlotInfo, len(starts))
	for i, s := range starts {
		result[i] = SlotInfo{
			Start:     s.String(),
			End:       s.Add(MinDuration).String(),
			Available: IsSlotAvailable(s, MinDuration, ranges, booked),
		}
	}
	return result
}
