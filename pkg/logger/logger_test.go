package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if err := Init(WithFormat("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := Init(WithLevel("loud")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithWriter(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init() })

	ctx := context.Background()
	Get().With(String("plate", "ABC123")).Info(ctx, "checked in",
		Int("floor", 2), Bool("electric", true), Error(errors.New("none")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}
	if rec["msg"] != "checked in" {
		t.Errorf("unexpected msg %v", rec["msg"])
	}
	if rec["plate"] != "ABC123" {
		t.Errorf("expected With field, got %v", rec["plate"])
	}
	if rec["error"] != "none" {
		t.Errorf("expected error text, got %v", rec["error"])
	}
	source, _ := rec["source"].(string)
	if !strings.Contains(source, "logger_test.go") {
		t.Errorf("expected caller in source, got %q", source)
	}
}

func TestLoggerLevelAndNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithLevel("warn")); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init() })

	ctx := context.Background()
	l := Named("gate")
	l.Info(ctx, "hidden")
	l.Warn(ctx, "shown", String("event_id", "e1"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "gate.event_id=e1") {
		t.Errorf("expected grouped field, got %s", out)
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	l.Debug(ctx, "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("expected debug record after level change")
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error(context.Background(), "dropped", String("k", "v"))
}
