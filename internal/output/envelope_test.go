// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteEnvelope_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, map[string]int{"count": 3}, false); err != nil {
		t.Fatalf("WriteEnvelope failed: %v", err)
	}

	var got Envelope
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}

	if got.SchemaVersion != SchemaVersion {
		t.Errorf("schema_version = %q, want %q", got.SchemaVersion, SchemaVersion)
	}
	if got.Tool != "magellan" {
		t.Errorf("tool = %q, want magellan", got.Tool)
	}
	if got.ExecutionID == "" {
		t.Error("execution_id is empty")
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}
	if strings.Contains(buf.String(), "\n  ") {
		t.Errorf("expected compact output, got: %s", buf.String())
	}
}

func TestWriteEnvelope_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, map[string]int{"count": 3}, true); err != nil {
		t.Fatalf("WriteEnvelope failed: %v", err)
	}

	if !strings.Contains(buf.String(), "  \"schema_version\"") {
		t.Errorf("expected indented output, got: %s", buf.String())
	}
}

func TestNewEnvelope_DistinctExecutionIDs(t *testing.T) {
	a := NewEnvelope(nil)
	b := NewEnvelope(nil)
	if a.ExecutionID == b.ExecutionID {
		t.Error("two envelopes produced the same execution_id")
	}
}
