package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONIncludesServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "rag-api", "warn", "json")

	logger.Info("hidden")
	logger.Warn("ingest_path_skipped", "path", "missing.pdf")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["service"] != "rag-api" || record["path"] != "missing.pdf" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "rag", "debug", "text").Debug("pipeline_stage", "stage", "retrieve")
	if !strings.Contains(buf.String(), "stage=retrieve") {
		t.Fatalf("expected text record, got %q", buf.String())
	}
}
