// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the stable version tag every structured response carries.
const SchemaVersion = "1.0.0"

// Envelope is the structured wrapper every JSON/pretty CLI response uses:
// {schema_version, tool, timestamp, execution_id, data}. Two invocations
// with identical inputs differ only in timestamp/execution_id; data is
// otherwise deterministic.
type Envelope struct {
	SchemaVersion string    `json:"schema_version"`
	Tool          string    `json:"tool"`
	Timestamp     time.Time `json:"timestamp"`
	ExecutionID   string    `json:"execution_id"`
	Data          any       `json:"data"`
}

// NewEnvelope wraps data with a fresh execution id and the current time.
func NewEnvelope(data any) Envelope {
	return NewEnvelopeWithID(uuid.NewString(), data)
}

// NewEnvelopeWithID wraps data under a caller-supplied execution id, so a
// CLI invocation's envelope and its execlog record share one id.
func NewEnvelopeWithID(executionID string, data any) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		Tool:          "magellan",
		Timestamp:     time.Now(),
		ExecutionID:   executionID,
		Data:          data,
	}
}

// WriteEnvelope wraps data in an Envelope and writes it as JSON to w, using
// compact encoding for pretty=false and indented encoding for pretty=true.
func WriteEnvelope(w io.Writer, data any, pretty bool) error {
	return WriteEnvelopeWithID(w, uuid.NewString(), data, pretty)
}

// WriteEnvelopeWithID is WriteEnvelope with a caller-supplied execution id.
func WriteEnvelopeWithID(w io.Writer, executionID string, data any, pretty bool) error {
	env := NewEnvelopeWithID(executionID, data)
	if pretty {
		return JSONTo(w, env)
	}
	return JSONCompactTo(w, env)
}
