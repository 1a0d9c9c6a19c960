package ui

import "testing"

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{5.9, "00:05"},
		{65, "01:05"},
		{600, "10:00"},
		{3725, "62:05"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.seconds); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
