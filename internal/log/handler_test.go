package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	applog "github.com/ErlanBelekov/campsite-scheduler/internal/log"
	"github.com/ErlanBelekov/campsite-scheduler/internal/runid"
)

func TestContextHandler_AddsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(applog.NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

	ctx := runid.NewContext(context.Background(), "run-123")
	logger.InfoContext(ctx, "fired")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", rec["run_id"])
	}
	if rec["component"] != "test" {
		t.Errorf("component = %v, want test", rec["component"])
	}
}

func TestContextHandler_NoRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(applog.NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := rec["run_id"]; ok {
		t.Error("run_id present without one in context")
	}
}
