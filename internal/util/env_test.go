package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PARCELPIPE_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("PARCELPIPE_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 3},
		{"5", 5},
		{" 7 ", 7},
		{"0", 0},
		{"-1", 3},
		{"three", 3},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PARCELPIPE_TEST_INT", tt.value)
			if got := ParseIntEnv("PARCELPIPE_TEST_INT", 3); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"24h", 24 * time.Hour},
		{"0s", time.Minute},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PARCELPIPE_TEST_DURATION", tt.value)
			if got := ParseDurationEnv("PARCELPIPE_TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("PARCELPIPE_TEST_STR", "  ")
	if got := GetenvDefault("PARCELPIPE_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for blank value, got %q", got)
	}
	t.Setenv("PARCELPIPE_TEST_STR", " value ")
	if got := GetenvDefault("PARCELPIPE_TEST_STR", "fallback"); got != "value" {
		t.Errorf("Expected trimmed value, got %q", got)
	}
}
