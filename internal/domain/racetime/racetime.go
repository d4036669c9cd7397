// Package racetime converts between clock-formatted race durations and numbers.
package racetime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	fieldCount       = 3
	fieldLimit       = 60
)

// Zero is the display form of an absent prediction.
const Zero = "0:00:00"

// ParseSeconds parses an H:MM:SS duration into seconds. Hours are unbounded;
// minutes and seconds must lie in [0, 60). Every field must be a finite,
// non-negative decimal number. Failures wrap ErrUnparseable.
func ParseSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrUnparseable)
	}
	parts := strings.Split(s, ":")
	if len(parts) != fieldCount {
		return 0, fmt.Errorf("%w: %q is not H:MM:SS", ErrUnparseable, s)
	}

	var fields [fieldCount]float64
	for i, p := range parts {
		v, err := parseField(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrUnparseable, s, err)
		}
		fields[i] = v
	}
	if fields[1] >= fieldLimit || fields[2] >= fieldLimit {
		return 0, fmt.Errorf("%w: %q: minutes and seconds must be below 60", ErrUnparseable, s)
	}
	return fields[0]*secondsPerHour + fields[1]*secondsPerMinute + fields[2], nil
}

func parseField(p string) (float64, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not a number", p)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("field %q out of range", p)
	}
	return v, nil
}

// FormatMinutes renders minutes as H:MM:SS rounded to the nearest second.
// Non-finite and non-positive values render as Zero.
func FormatMinutes(minutes float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return Zero
	}
	// Float arithmetic keeps arbitrarily large hour counts intact.
	total := math.Round(minutes * secondsPerMinute)
	rem := math.Mod(total, secondsPerHour)
	h := (total - rem) / secondsPerHour
	m := math.Floor(rem / secondsPerMinute)
	sec := math.Mod(rem, secondsPerMinute)
	return fmt.Sprintf("%.0f:%02.0f:%02.0f", h, m, sec)
}

// FormatSeconds renders seconds as H:MM:SS.
func FormatSeconds(seconds float64) string {
	return FormatMinutes(seconds / secondsPerMinute)
}
