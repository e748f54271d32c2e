package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := map[string]bool{
		"true": true, "1": true, "YES": true, "on": true,
		"false": false, "0": false, "No": false, "off": false,
	}
	for val, want := range cases {
		t.Setenv("TEST_BOOL", val)
		if got := ParseBoolEnv("TEST_BOOL", !want); got != want {
			t.Errorf("ParseBoolEnv(%q) = %v, want %v", val, got, want)
		}
	}

	t.Setenv("TEST_BOOL", "maybe")
	if !ParseBoolEnv("TEST_BOOL", true) {
		t.Error("invalid value must fall back to default")
	}
	t.Setenv("TEST_BOOL", "")
	if ParseBoolEnv("TEST_BOOL", false) {
		t.Error("unset value must fall back to default")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := ParseIntEnv("TEST_INT", 7); got != 42 {
		t.Errorf("got %d", got)
	}
	t.Setenv("TEST_INT", "not a number")
	if got := ParseIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("got %d", got)
	}
	t.Setenv("TEST_INT", "")
	if got := ParseIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("got %d", got)
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_STR", "  value  ")
	if got := EnvOrDefault("TEST_STR", "fallback"); got != "value" {
		t.Errorf("got %q", got)
	}
	t.Setenv("TEST_STR", "   ")
	if got := EnvOrDefault("TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
}
