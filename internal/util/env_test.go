package util

import (
	"testing"
	"time"
)

func TestGetenvDefault(t *testing.T) {
	t.Setenv("UTIL_TEST_STR", "")
	if got := GetenvDefault("UTIL_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("UTIL_TEST_STR", "value")
	if got := GetenvDefault("UTIL_TEST_STR", "fallback"); got != "value" {
		t.Errorf("expected value, got %q", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{"0", true, false},
		{"off", true, false},
		{"banana", true, true},
	}
	for _, tc := range cases {
		t.Setenv("UTIL_TEST_BOOL", tc.val)
		if got := ParseBoolEnv("UTIL_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("UTIL_TEST_DUR", "")
	if got := ParseDurationEnv("UTIL_TEST_DUR", 5*time.Minute); got != 5*time.Minute {
		t.Errorf("expected default, got %v", got)
	}
	t.Setenv("UTIL_TEST_DUR", "90s")
	if got := ParseDurationEnv("UTIL_TEST_DUR", 5*time.Minute); got != 90*time.Second {
		t.Errorf("expected 90s, got %v", got)
	}
	t.Setenv("UTIL_TEST_DUR", "soon")
	if got := ParseDurationEnv("UTIL_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("expected default on invalid, got %v", got)
	}
}
