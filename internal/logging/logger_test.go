package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"medianotes/internal/services"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("download started", String(FieldJobID, "abc"), Int("attempt", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "download started" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v", record["level"])
	}
	if record["job_id"] != "abc" {
		t.Fatalf("job_id = %v", record["job_id"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("missing ts field")
	}
}

func TestNewConsoleLoggerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "pipeline").Info("stage complete", String(FieldStage, "download"))

	line := buf.String()
	if !strings.Contains(line, "pipeline: stage complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "stage=download") {
		t.Fatalf("missing stage attr: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("chatty"); got.String() != "INFO" {
		t.Fatalf("level = %s", got)
	}
	if got := parseLevel(""); got.String() != "INFO" {
		t.Fatalf("level = %s", got)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "vid-1")
	ctx = services.WithStage(ctx, "summary_brief")
	WithContext(ctx, logger).Info("summarizing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record[FieldJobID] != "vid-1" {
		t.Fatalf("job_id = %v", record[FieldJobID])
	}
	if record[FieldStage] != "summary_brief" {
		t.Fatalf("stage = %v", record[FieldStage])
	}
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	logger := NewNop()
	if got := WithContext(context.Background(), logger); got != logger {
		t.Fatal("expected unchanged logger")
	}
}
