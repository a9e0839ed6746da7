package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l := Discard()
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext() did not return the stored logger")
	}
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext() without a logger should return Default()")
	}
}

func TestSessionAndJobIDs(t *testing.T) {
	ctx := context.Background()
	if SessionIDFromContext(ctx) != "" || JobFromContext(ctx) != "" {
		t.Error("empty context should carry no IDs")
	}

	ctx = WithSessionID(ctx, "kvsc-01")
	ctx = WithJob(ctx, "/jobs/a.job")
	if got := SessionIDFromContext(ctx); got != "kvsc-01" {
		t.Errorf("SessionIDFromContext() = %q", got)
	}
	if got := JobFromContext(ctx); got != "/jobs/a.job" {
		t.Errorf("JobFromContext() = %q", got)
	}
}

func TestL_Enriches(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)
	ctx = WithSessionID(ctx, "kvsc-01")
	ctx = WithJob(ctx, "/jobs/a.job")
	L(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["session_id"] != "kvsc-01" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
	if entry["job"] != "/jobs/a.job" {
		t.Errorf("job = %v", entry["job"])
	}
}
