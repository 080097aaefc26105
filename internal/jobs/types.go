// Package jobs defines the canonical print-job record, the normalizer
// that produces it from raw printer payloads, and the per-sink
// deduplication filter.
package jobs

import (
	"strconv"
	"strings"
	"time"
)

// Status is the persisted job outcome. Only completed and aborted jobs
// are ever written to a sink.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// MaterialUsage is one extruder slot's material consumption, in mm of
// filament. Slots are ordered; amounts are never negative.
type MaterialUsage struct {
	Name     string
	AmountMM float64
}

// JobRecord is the canonical, immutable form of one print job. It is
// constructed once per run by the normalizer and either appended to a
// sink or dropped; it is never mutated or updated afterwards.
type JobRecord struct {
	Identity       string
	PrinterAddress string
	Status         Status
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Materials      []MaterialUsage
}

// Header is the fixed column order shared by every sink. The uuid
// column is the deduplication key each sink reads back at run start.
func Header() []string {
	return []string{
		"uuid",
		"printer_address",
		"status",
		"start_time",
		"end_time",
		"duration_seconds",
		"material_usage",
	}
}

// Row renders the record in the fixed column order. Timestamps were
// already normalized to the run's zone and render as RFC3339.
func (r JobRecord) Row() []string {
	return []string{
		r.Identity,
		r.PrinterAddress,
		string(r.Status),
		r.StartTime.Format(time.RFC3339),
		r.EndTime.Format(time.RFC3339),
		strconv.FormatInt(int64(r.Duration/time.Second), 10),
		serializeMaterials(r.Materials),
	}
}

// serializeMaterials renders material usage as "Name:amount" pairs
// joined with ';', e.g. "PLA:1204.7;ABS:0". Empty when the printer
// reported no material telemetry.
func serializeMaterials(materials []MaterialUsage) string {
	if len(materials) == 0 {
		return ""
	}
	parts := make([]string, len(materials))
	for i, m := range materials {
		parts[i] = m.Name + ":" + strconv.FormatFloat(m.AmountMM, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}
