package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive(t *testing.T) {
	SetLevel("info")
	defer SetLevel("info")

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"password", slog.String("admin_password", "hunter2"), redactedValue},
		{"empty secret kept", slog.String("secret", ""), ""},
		{"stored value masked", slog.String("value", "abcdefgh"), "ab...gh"},
		{"short value masked", slog.String("value", "abc"), "***"},
		{"key untouched", slog.String("key", "abc"), "abc"},
		{"plain field", slog.String("job", "a.job"), "a.job"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitive(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("redactSensitive(%v) = %q, want %q", tt.attr, got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactSensitive_DebugShowsValues(t *testing.T) {
	SetLevel("debug")
	defer SetLevel("info")

	got := redactSensitive(slog.String("value", "abcdefgh"))
	if got.Value.String() != "abcdefgh" {
		t.Errorf("value at debug = %q, want unmasked", got.Value.String())
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("auth", slog.String("token", "xyz"), slog.String("user", "bob"))
	got := redactSensitive(a).Value.Group()
	if got[0].Value.String() != redactedValue {
		t.Errorf("nested token = %q, want redacted", got[0].Value.String())
	}
	if got[1].Value.String() != "bob" {
		t.Errorf("nested user = %q, want bob", got[1].Value.String())
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for key, want := range map[string]bool{
		"password":    true,
		"API_SECRET":  true,
		"key":         false,
		"register_to": false,
	} {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
