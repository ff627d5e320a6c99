package config

import (
	"testing"
	"time"
)

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{
			name:  "unset uses fallback",
			value: "",
			want:  5 * time.Minute,
		},
		{
			name:  "valid value wins",
			value: "90s",
			want:  90 * time.Second,
		},
		{
			name:  "malformed value falls back instead of zero",
			value: "not-a-duration",
			want:  5 * time.Minute,
		},
		{
			name:  "bare number is not a duration",
			value: "300",
			want:  5 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			}
			if got := getDuration("TEST_DURATION", "5m"); got != tt.want {
				t.Errorf("getDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
