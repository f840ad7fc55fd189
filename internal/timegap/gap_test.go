package timegap

import (
	"testing"
	"time"
)

func TestHours_UnderThresholdIsNotABoundary(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hours, ok := Hours(base, base.Add(10*time.Minute), 30*time.Minute)
	if ok {
		t.Fatal("10 minute gap should not be a boundary")
	}
	if hours != 0 {
		t.Errorf("hours = %v, want 0", hours)
	}
}

func TestHours_AtAndAboveThreshold(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		gap   time.Duration
		hours float64
	}{
		{"exactly threshold", 30 * time.Minute, 0.5},
		{"forty five minutes", 45 * time.Minute, 0.75},
		{"two days", 48 * time.Hour, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hours, ok := Hours(base, base.Add(tt.gap), 30*time.Minute)
			if !ok {
				t.Fatalf("%v gap should be a boundary", tt.gap)
			}
			if hours != tt.hours {
				t.Errorf("hours = %v, want %v", hours, tt.hours)
			}
		})
	}
}

func TestHours_ZeroThresholdUsesDefault(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, ok := Hours(base, base.Add(20*time.Minute), 0); ok {
		t.Error("20 minutes is under the default threshold")
	}
	if _, ok := Hours(base, base.Add(31*time.Minute), 0); !ok {
		t.Error("31 minutes is over the default threshold")
	}
}

func TestFormatMarker(t *testing.T) {
	t.Parallel()
	tests := []struct {
		hours float64
		want  string
	}{
		{0.75, "[0.8 hours have passed. A new session begins.]"},
		{5, "[5.0 hours have passed. A new session begins.]"},
		{23.9, "[23.9 hours have passed. A new session begins.]"},
		{24, "[1.0 days have passed. A new session begins.]"},
		{60, "[2.5 days have passed. A new session begins.]"},
	}
	for _, tt := range tests {
		if got := FormatMarker(tt.hours); got != tt.want {
			t.Errorf("FormatMarker(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}
