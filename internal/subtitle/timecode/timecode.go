package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RangeSeparator joins the two sides of a canonical range id
const RangeSeparator = " --> "

const normErrorPrefix = "ERROR_NORM_"

// ParseError reports a display timestamp that could not be parsed
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %s", e.Input, e.Reason)
}

// ToDisplay formats seconds as HH:MM:SS,mmm. Hours are not capped at 24.
func ToDisplay(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	whole := math.Floor(seconds)
	ms := int64(math.Round((seconds - whole) * 1000))
	total := int64(whole)
	if ms >= 1000 {
		total++
		ms -= 1000
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FromDisplay parses H:MM:SS,mmm, MM:SS,mmm or SS,mmm into seconds.
// A '.' millisecond separator is accepted when no comma is present (WebVTT).
func FromDisplay(s string) (float64, error) {
	in := strings.TrimSpace(s)
	sep := ","
	if !strings.Contains(in, ",") {
		sep = "."
	}
	parts := strings.Split(in, sep)
	if len(parts) != 2 {
		return 0, &ParseError{Input: s, Reason: "expected exactly one millisecond separator"}
	}

	ms, err := component(parts[1], 999)
	if err != nil {
		return 0, &ParseError{Input: s, Reason: "milliseconds: " + err.Error()}
	}

	clock := strings.Split(parts[0], ":")
	if len(clock) == 0 || len(clock) > 3 {
		return 0, &ParseError{Input: s, Reason: "expected 1 to 3 clock components"}
	}

	// hours, minutes, seconds aligned from the right
	limits := []int{99, 59, 59}[3-len(clock):]
	values := make([]int, 3)
	for i, c := range clock {
		v, err := component(c, limits[i])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: err.Error()}
		}
		values[3-len(clock)+i] = v
	}

	return float64(values[0]*3600+values[1]*60+values[2]) + float64(ms)/1000.0, nil
}

func component(s string, max int) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not an integer", s)
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("%d out of range (max %d)", v, max)
	}
	return v, nil
}

// RangeID renders a canonical "start --> end" id
func RangeID(start, end float64) string {
	return ToDisplay(start) + RangeSeparator + ToDisplay(end)
}

// NormalizeRangeID canonicalizes a "start --> end" string so that textually different
// but equal ranges compare equal. Failures return a sentinel string, see IsNormError.
func NormalizeRangeID(s string) string {
	parts := strings.Split(s, "-->")
	if len(parts) != 2 {
		return normErrorPrefix + "NO_ARROW_SEPARATOR__" + s
	}
	start, err := FromDisplay(parts[0])
	if err != nil {
		return normErrorPrefix + "START_PARSE_FAILED__" + s
	}
	end, err := FromDisplay(parts[1])
	if err != nil {
		return normErrorPrefix + "END_PARSE_FAILED__" + s
	}
	return RangeID(start, end)
}

// IsNormError reports whether s is a NormalizeRangeID failure sentinel
func IsNormError(s string) bool {
	return strings.HasPrefix(s, normErrorPrefix)
}
