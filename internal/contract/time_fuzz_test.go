package contract

import (
	"testing"
	"time"
)

// FuzzParseTimeValue fuzzes ParseTimeValue with random inputs.
func FuzzParseTimeValue(f *testing.F) {
	seeds := []string{
		"now",
		"2024-01-01T00:00:00Z",
		"1700000000",
		"-5",
		"3 weeks ago",
		"6 minutes ago",
		"0 years ago", // edge case
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	now := time.Unix(1_700_000_000, 0).UTC()
	f.Fuzz(func(_ *testing.T, input string) {
		// We don't assert on the result, just that it doesn't panic
		_, err := ParseTimeValue(input, now)
		_ = err
	})
}

// FuzzParseLookbackDuration fuzzes ParseLookbackDuration.
func FuzzParseLookbackDuration(f *testing.F) {
	seeds := []string{
		"1 year",
		"2 months",
		"30d",
		"720h",
		"6 minutes",
		"0 years", // edge case
		"-1h",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		d, err := ParseLookbackDuration(input)
		if err == nil && d <= 0 {
			t.Errorf("non-positive duration %v accepted for %q", d, input)
		}
	})
}
