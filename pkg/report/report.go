// Package report packages every operation's outcome into a uniform
// structured record for the calling agent. Each record is emitted as a
// single JSON line on the configured writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Record is one structured result emitted for a command invocation.
type Record map[string]interface{}

// Reporter serializes records to a writer, one JSON object per line.
// It is safe for concurrent use.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Emit writes exactly one record as a JSON line.
func (r *Reporter) Emit(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode result record: %w", err)
	}

	if _, err := fmt.Fprintf(r.w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write result record: %w", err)
	}
	return nil
}

// Success builds a success record with optional extra fields.
func Success(fields Record) Record {
	rec := Record{"success": true}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

// Failure builds a reported (non-fatal) failure record. The hint gives the
// calling agent a remediation suggestion and may be empty.
func Failure(errMsg, hint string, fields Record) Record {
	rec := Record{"success": false, "error": errMsg}
	if hint != "" {
		rec["hint"] = hint
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

// Info builds a progress notice record.
func Info(message string) Record {
	return Record{"status": "info", "message": message}
}
