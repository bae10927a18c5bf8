package kfc

import (
	"testing"
	"time"
)

func TestInQuietHoursWraparound(t *testing.T) {
	tests := []struct {
		name        string
		hour, min   int
		start, end  string
		wantInside  bool
	}{
		{"well before quiet hours", 20, 0, "23:00", "07:00", false},
		{"inside wraparound, late night", 23, 30, "23:00", "07:00", true},
		{"inside wraparound, early morning", 3, 0, "23:00", "07:00", true},
		{"just after quiet hours end", 7, 0, "23:00", "07:00", false},
		{"non-wrapping interval inside", 12, 0, "09:00", "17:00", true},
		{"non-wrapping interval outside", 18, 0, "09:00", "17:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 1, 1, tt.hour, tt.min, 0, 0, time.Local)
			if got := inQuietHours(now, tt.start, tt.end); got != tt.wantInside {
				t.Errorf("inQuietHours(%02d:%02d, %s, %s) = %v, want %v", tt.hour, tt.min, tt.start, tt.end, got, tt.wantInside)
			}
		})
	}
}
