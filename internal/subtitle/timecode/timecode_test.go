package timecode

import (
	"errors"
	"math"
	"testing"
)

func TestToDisplay(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.001, "00:01:01,001"},
		{3661.25, "01:01:01,250"},
		{0.9996, "00:00:01,000"},
		{59.9999, "00:01:00,000"},
		{90000, "25:00:00,000"},
		{-3, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := ToDisplay(tt.in); got != tt.want {
			t.Errorf("ToDisplay(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:00:01,500", 1.5},
		{"1:02:03,004", 3723.004},
		{"02:03,100", 123.1},
		{"07,250", 7.25},
		{" 00:00:10,000 ", 10},
		{"00:00:01.500", 1.5},
	}
	for _, tt := range tests {
		got, err := FromDisplay(tt.in)
		if err != nil {
			t.Errorf("FromDisplay(%q) error: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FromDisplay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromDisplayErrors(t *testing.T) {
	bad := []string{
		"",
		"00:00:01",
		"00:00:01,500,1",
		"100:00:00,000",
		"00:60:00,000",
		"00:00:60,000",
		"00:00:01,1000",
		"1:2:3:4,000",
		"aa:00:01,000",
		"00:-1:01,000",
		"00:00:01,5x",
	}
	for _, in := range bad {
		_, err := FromDisplay(in)
		if err == nil {
			t.Errorf("FromDisplay(%q) expected error", in)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("FromDisplay(%q) error type = %T, want *ParseError", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []float64{0, 0.001, 0.5, 1.2345, 59.999, 3599.9994, 7322.777, 356400.5} {
		got, err := FromDisplay(ToDisplay(s))
		if err != nil {
			t.Fatalf("round trip %v: %v", s, err)
		}
		if math.Abs(got-s) > 0.001 {
			t.Errorf("round trip %v = %v", s, got)
		}
	}
}

func TestNormalizeRangeID(t *testing.T) {
	a := NormalizeRangeID("00:00:01,000-->00:00:02,500")
	b := NormalizeRangeID("  0:00:01,000 -->   00:02,500 ")
	if a != b {
		t.Errorf("normalized ids differ: %q vs %q", a, b)
	}
	if a != "00:00:01,000 --> 00:00:02,500" {
		t.Errorf("NormalizeRangeID = %q", a)
	}

	tests := []struct {
		in     string
		prefix string
	}{
		{"00:00:01,000 00:00:02,000", "ERROR_NORM_NO_ARROW_SEPARATOR__"},
		{"00:00:01,000 --> 00:00:02,000 --> 00:00:03,000", "ERROR_NORM_NO_ARROW_SEPARATOR__"},
		{"xx --> 00:00:02,000", "ERROR_NORM_START_PARSE_FAILED__"},
		{"00:00:01,000 --> yy", "ERROR_NORM_END_PARSE_FAILED__"},
	}
	for _, tt := range tests {
		got := NormalizeRangeID(tt.in)
		if !IsNormError(got) {
			t.Errorf("NormalizeRangeID(%q) = %q, want error sentinel", tt.in, got)
		}
		if got != tt.prefix+tt.in {
			t.Errorf("NormalizeRangeID(%q) = %q, want prefix %q", tt.in, got, tt.prefix)
		}
	}
}
