package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makerspace/printwatch/internal/ultimaker"
)

// Outcome tags the result of normalizing one raw payload. A skip is
// expected (wrong status); a failure means malformed source data. Both
// are recoverable: the record is dropped and the run continues.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// Result is the tagged outcome of normalizing one raw payload.
type Result struct {
	Outcome Outcome
	Record  *JobRecord
	Reason  string
}

func ok(rec *JobRecord) Result     { return Result{Outcome: OutcomeOK, Record: rec} }
func skipped(reason string) Result { return Result{Outcome: OutcomeSkipped, Reason: reason} }
func failed(reason string) Result  { return Result{Outcome: OutcomeFailed, Reason: reason} }

// MaterialNamer resolves a material GUID to a display name. The
// ultimaker client satisfies this; tests use a stub.
type MaterialNamer interface {
	MaterialName(ctx context.Context, guid string) string
}

// Normalizer converts raw printer payloads into canonical records, with
// all timestamps rendered in a single fixed zone.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a normalizer for the given fixed zone.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{loc: loc}
}

// Normalize produces the canonical record for one raw job payload, or a
// skip/failure tag. It never returns a fatal error.
func (n *Normalizer) Normalize(ctx context.Context, printerAddr string, raw ultimaker.PrintJob, namer MaterialNamer) Result {
	var status Status
	switch raw.Result {
	case ultimaker.ResultFinished:
		status = StatusCompleted
	case ultimaker.ResultAborted:
		status = StatusAborted
	default:
		return skipped(fmt.Sprintf("status %q not eligible for persistence", raw.Result))
	}

	if raw.UUID == "" {
		return failed("missing job identity")
	}
	if _, err := uuid.Parse(raw.UUID); err != nil {
		return failed(fmt.Sprintf("identity %q is not a UUID", raw.UUID))
	}

	start, err := n.parseTimestamp(raw.DatetimeStarted)
	if err != nil {
		return failed(fmt.Sprintf("bad start time %q: %v", raw.DatetimeStarted, err))
	}
	end, err := n.parseTimestamp(raw.DatetimeFinished)
	if err != nil {
		return failed(fmt.Sprintf("bad end time %q: %v", raw.DatetimeFinished, err))
	}

	if end.Before(start) {
		return failed(fmt.Sprintf("negative duration: start %s after end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}
	duration := time.Duration(raw.TimeTotal * float64(time.Second))
	if duration <= 0 {
		duration = end.Sub(start)
	}

	var materials []MaterialUsage
	for _, slot := range []struct {
		guid   string
		amount float64
	}{
		{raw.Material0GUID, raw.Material0Amount},
		{raw.Material1GUID, raw.Material1Amount},
	} {
		if slot.guid == "" && slot.amount == 0 {
			continue
		}
		amount := slot.amount
		if amount < 0 {
			amount = 0
		}
		materials = append(materials, MaterialUsage{
			Name:     namer.MaterialName(ctx, slot.guid),
			AmountMM: amount,
		})
	}

	return ok(&JobRecord{
		Identity:       raw.UUID,
		PrinterAddress: printerAddr,
		Status:         status,
		StartTime:      start,
		EndTime:        end,
		Duration:       duration,
		Materials:      materials,
	})
}

// parseTimestamp accepts RFC3339 (the firmware's usual form, with 'Z'
// or an explicit offset) and a bare local-less timestamp, which the
// firmware emits on older releases and is treated as UTC. The returned
// instant is always in the normalizer's fixed zone.
func (n *Normalizer) parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(n.loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(n.loc), nil
}

// NormalizeTimestamp re-renders a timestamp string in the fixed zone.
// Applying it to its own output is a no-op, which guards against
// double-processing.
func (n *Normalizer) NormalizeTimestamp(s string) (string, error) {
	t, err := n.parseTimestamp(s)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}
