package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/makerspace/printwatch/internal/ultimaker"
)

// stubNamer resolves every GUID from a fixed map, "Unknown" otherwise.
type stubNamer struct {
	names map[string]string
}

func (s *stubNamer) MaterialName(ctx context.Context, guid string) string {
	if name, ok := s.names[guid]; ok {
		return name
	}
	return "Unknown"
}

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}
	return NewNormalizer(loc)
}

func validJob() ultimaker.PrintJob {
	return ultimaker.PrintJob{
		UUID:             "0e03b0d0-4b3f-4b6e-9f4b-2c9a1d1e0001",
		Name:             "bracket",
		Result:           ultimaker.ResultFinished,
		DatetimeStarted:  "2024-01-15T10:00:00Z",
		DatetimeFinished: "2024-01-15T10:30:00Z",
		TimeTotal:        1800,
		Material0Amount:  1204.7,
		Material0GUID:    "guid-pla",
	}
}

func TestNormalizeCompletedJob(t *testing.T) {
	n := testNormalizer(t)
	namer := &stubNamer{names: map[string]string{"guid-pla": "PLA"}}

	res := n.Normalize(context.Background(), "10.0.0.5", validJob(), namer)
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v (reason %q), want OK", res.Outcome, res.Reason)
	}

	rec := res.Record
	if rec.Identity != "0e03b0d0-4b3f-4b6e-9f4b-2c9a1d1e0001" {
		t.Errorf("Identity = %s", rec.Identity)
	}
	if rec.PrinterAddress != "10.0.0.5" {
		t.Errorf("PrinterAddress = %s, want 10.0.0.5", rec.PrinterAddress)
	}
	if rec.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", rec.Status)
	}
	if rec.Duration != 30*time.Minute {
		t.Errorf("Duration = %s, want 30m", rec.Duration)
	}
	// 10:00 UTC in January is 02:00 in Los Angeles.
	if got := rec.StartTime.Format(time.RFC3339); got != "2024-01-15T02:00:00-08:00" {
		t.Errorf("StartTime = %s, want 2024-01-15T02:00:00-08:00", got)
	}
	if len(rec.Materials) != 1 || rec.Materials[0].Name != "PLA" || rec.Materials[0].AmountMM != 1204.7 {
		t.Errorf("Materials = %+v", rec.Materials)
	}
}

func TestNormalizeStatusFilter(t *testing.T) {
	n := testNormalizer(t)
	namer := &stubNamer{}

	tests := []struct {
		result  string
		outcome Outcome
		status  Status
	}{
		{"Finished", OutcomeOK, StatusCompleted},
		{"Aborted", OutcomeOK, StatusAborted},
		{"Printing", OutcomeSkipped, ""},
		{"Queued", OutcomeSkipped, ""},
		{"", OutcomeSkipped, ""},
	}

	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			job := validJob()
			job.Result = tt.result
			res := n.Normalize(context.Background(), "10.0.0.5", job, namer)
			if res.Outcome != tt.outcome {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, tt.outcome)
			}
			if tt.outcome == OutcomeOK && res.Record.Status != tt.status {
				t.Errorf("Status = %s, want %s", res.Record.Status, tt.status)
			}
		})
	}
}

func TestNormalizeMalformedRecords(t *testing.T) {
	n := testNormalizer(t)
	namer := &stubNamer{}

	tests := []struct {
		name   string
		mutate func(*ultimaker.PrintJob)
	}{
		{"missing identity", func(j *ultimaker.PrintJob) { j.UUID = "" }},
		{"non-uuid identity", func(j *ultimaker.PrintJob) { j.UUID = "job-42" }},
		{"bad start time", func(j *ultimaker.PrintJob) { j.DatetimeStarted = "yesterday" }},
		{"missing end time", func(j *ultimaker.PrintJob) { j.DatetimeFinished = "" }},
		{"end before start", func(j *ultimaker.PrintJob) {
			j.TimeTotal = 0
			j.DatetimeStarted = "2024-01-15T11:00:00Z"
			j.DatetimeFinished = "2024-01-15T10:00:00Z"
		}},
		{"end before start despite reported total", func(j *ultimaker.PrintJob) {
			j.DatetimeStarted = "2024-01-15T11:00:00Z"
			j.DatetimeFinished = "2024-01-15T10:00:00Z"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob()
			tt.mutate(&job)
			res := n.Normalize(context.Background(), "10.0.0.5", job, namer)
			if res.Outcome != OutcomeFailed {
				t.Errorf("Outcome = %v, want Failed", res.Outcome)
			}
			if res.Reason == "" {
				t.Error("expected a failure reason")
			}
		})
	}
}

func TestNormalizeDurationFallback(t *testing.T) {
	n := testNormalizer(t)
	job := validJob()
	job.TimeTotal = 0 // firmware omitted it; derive from timestamps

	res := n.Normalize(context.Background(), "10.0.0.5", job, &stubNamer{})
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v (reason %q), want OK", res.Outcome, res.Reason)
	}
	if res.Record.Duration != 30*time.Minute {
		t.Errorf("Duration = %s, want 30m", res.Record.Duration)
	}
}

func TestNormalizeBareTimestampTreatedAsUTC(t *testing.T) {
	n := testNormalizer(t)
	job := validJob()
	job.DatetimeStarted = "2024-06-15T10:00:00"
	job.DatetimeFinished = "2024-06-15T11:00:00"
	job.TimeTotal = 0

	res := n.Normalize(context.Background(), "10.0.0.5", job, &stubNamer{})
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v (reason %q), want OK", res.Outcome, res.Reason)
	}
	// 10:00 UTC in June is 03:00 in Los Angeles (DST).
	if got := res.Record.StartTime.Format(time.RFC3339); got != "2024-06-15T03:00:00-07:00" {
		t.Errorf("StartTime = %s, want 2024-06-15T03:00:00-07:00", got)
	}
}

func TestNormalizeNegativeMaterialClampsToZero(t *testing.T) {
	n := testNormalizer(t)
	job := validJob()
	job.Material0Amount = -5

	res := n.Normalize(context.Background(), "10.0.0.5", job, &stubNamer{})
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v, want OK", res.Outcome)
	}
	if res.Record.Materials[0].AmountMM != 0 {
		t.Errorf("AmountMM = %v, want 0", res.Record.Materials[0].AmountMM)
	}
}

func TestNormalizeNoMaterialTelemetry(t *testing.T) {
	n := testNormalizer(t)
	job := validJob()
	job.Material0GUID = ""
	job.Material0Amount = 0

	res := n.Normalize(context.Background(), "10.0.0.5", job, &stubNamer{})
	if res.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v, want OK", res.Outcome)
	}
	if len(res.Record.Materials) != 0 {
		t.Errorf("Materials = %+v, want empty", res.Record.Materials)
	}
}

func TestNormalizeTimestampIdempotent(t *testing.T) {
	n := testNormalizer(t)

	once, err := n.NormalizeTimestamp("2024-01-15T10:00:00Z")
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	twice, err := n.NormalizeTimestamp(once)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	if once != twice {
		t.Errorf("normalize not idempotent: %q then %q", once, twice)
	}
}
