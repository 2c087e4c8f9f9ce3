package timeutil

import "testing"

func TestFormatClock(t *testing.T) {
	trimmed := ClockOptions{TrimHours: true, TrimLeadingZeros: true}
	tests := []struct {
		name     string
		seconds  float64
		opts     ClockOptions
		expected string
	}{
		{"Zero", 0, ClockOptions{}, "00:00:00"},
		{"One minute", 60, ClockOptions{}, "00:01:00"},
		{"Complex time", 3661, ClockOptions{}, "01:01:01"},
		{"Large time", 86400, ClockOptions{}, "24:00:00"},
		{"Trim hours", 90, ClockOptions{TrimHours: true}, "01:30"},
		{"Trim hours keeps non-zero", 3661, trimmed, "1:01:01"},
		{"Trim leading zeros", 90, trimmed, "1:30"},
		{"Seconds only", 5, trimmed, "0:05"},
		{"Trim minutes", 5, ClockOptions{TrimHours: true, TrimMinutes: true, TrimLeadingZeros: true}, "5"},
		{"Trim minutes zero", 0, ClockOptions{TrimHours: true, TrimMinutes: true, TrimLeadingZeros: true}, "0"},
		{"Trim minutes keeps non-zero", 75, ClockOptions{TrimHours: true, TrimMinutes: true}, "01:15"},
		{"Fractional seconds", 30.53, ClockOptions{ShowDecimals: true, Decimals: 2}, "00:00:30.53"},
		{"Trailing zeros trimmed", 30.5, ClockOptions{ShowDecimals: true, Decimals: 3}, "00:00:30.5"},
		{"Rounding check", 1.9996, ClockOptions{ShowDecimals: true, Decimals: 3}, "00:00:02.0"},
		{"Sub-second trimmed", 0.25, ClockOptions{TrimHours: true, TrimMinutes: true, TrimLeadingZeros: true, ShowDecimals: true, Decimals: 3}, "0.25"},
		{"Hour with fraction", 3661.123, ClockOptions{ShowDecimals: true, Decimals: 2}, "01:01:01.12"},
		{"Decimals hidden", 90.75, trimmed, "1:31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatClock(tt.seconds, tt.opts)
			if result != tt.expected {
				t.Errorf("FormatClock(%.3f) = %s; want %s", tt.seconds, result, tt.expected)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	c := Split(3661.5, 2)
	if c.Hours != 1 || c.Minutes != 1 || c.Seconds != 1 || c.Fraction != 50 {
		t.Errorf("Split(3661.5) = %+v", c)
	}

	c = Split(-4, 3)
	if c.Hours != 0 || c.Minutes != 0 || c.Seconds != 0 || c.Fraction != 0 {
		t.Errorf("Split(-4) should clamp to zero, got %+v", c)
	}
}

func TestFormatPlain(t *testing.T) {
	tests := []struct {
		seconds  float64
		decimals int
		expected string
	}{
		{90, 3, "90"},
		{90.5, 3, "90.5"},
		{1.23456, 3, "1.235"},
		{1.23456, 2, "1.23"},
	}

	for _, tt := range tests {
		if got := FormatPlain(tt.seconds, tt.decimals); got != tt.expected {
			t.Errorf("FormatPlain(%v, %d) = %s; want %s", tt.seconds, tt.decimals, got, tt.expected)
		}
	}
}
