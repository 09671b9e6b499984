package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatDuration formats duration in minutes to human-readable string.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

// ParseDuration parses a label produced by FormatDuration (or a bare number of
// minutes) back to minutes. It returns 0 when nothing can be parsed.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	total := 0
	if strings.Contains(s, "h") {
		parts := strings.SplitN(s, "h", 2)
		h, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		total += h * 60
		s = parts[1]
	}
	if strings.Contains(s, "min") {
		m, _ := strconv.Atoi(strings.TrimSpace(strings.Replace(s, "min", "", 1)))
		total += m
	}
	return total
}
