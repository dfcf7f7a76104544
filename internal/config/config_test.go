package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("TEST_GETENV", "value")
	if got := getenv("TEST_GETENV", "def"); got != "value" {
		t.Errorf("getenv() = %v, want value", got)
	}
	if got := getenv("TEST_GETENV_MISSING", "def"); got != "def" {
		t.Errorf("getenv() = %v, want def", got)
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		set      bool
		expected int
	}{
		{name: "valid", value: "42", set: true, expected: 42},
		{name: "invalid falls back", value: "nope", set: true, expected: 7},
		{name: "missing falls back", set: false, expected: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_GETENV_INT"
			os.Unsetenv(key)
			if tt.set {
				t.Setenv(key, tt.value)
			}
			if got := getenvInt(key, 7); got != tt.expected {
				t.Errorf("getenvInt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	if got := mustDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("mustDuration() = %v, want 90s", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := mustDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("mustDuration() with invalid value = %v, want fallback", got)
	}
}

func TestMustBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	if got := mustBool("TEST_BOOL", true); got {
		t.Error("mustBool() = true, want false")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if got := mustBool("TEST_BOOL", true); !got {
		t.Error("mustBool() with invalid value = false, want fallback true")
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "plain list", input: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "spaces and quotes", input: ` "127.0.0.0/8" , '::1/128' `, want: []string{"127.0.0.0/8", "::1/128"}},
		{name: "empty entries dropped", input: "a,,b,", want: []string{"a", "b"}},
		{name: "empty string", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAndTrim(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitAndTrim(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}
