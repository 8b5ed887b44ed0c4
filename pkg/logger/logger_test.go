package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "fleetlink"})

	log.Info("hello", "vehicle_id", "abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "fleetlink" {
		t.Errorf("expected service attribute, got %v", record[SERVICE])
	}
	if record["vehicle_id"] != "abc" {
		t.Errorf("expected vehicle_id attribute, got %v", record["vehicle_id"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn record should be written at warn level")
	}
}

func TestWithContext_AttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	log.WithContext(ctx).Info("scoped")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if record[REQUEST_ID] != "req-123" {
		t.Errorf("expected request_id req-123, got %v", record[REQUEST_ID])
	}
}

func TestWithContext_NoRequestIDReturnsSameLogger(t *testing.T) {
	log := Discard()
	if got := log.WithContext(context.Background()); got != log {
		t.Error("expected same logger when context has no request id")
	}
}
