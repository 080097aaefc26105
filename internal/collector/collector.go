// Package collector sequences one printwatch run: fetch job history
// from every configured printer, normalize, deduplicate per sink, and
// append. Failures are contained at the smallest unit (one printer,
// one record, one sink); only the summary sees them.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/makerspace/printwatch/internal/jobs"
	"github.com/makerspace/printwatch/internal/pkg/logger"
	"github.com/makerspace/printwatch/internal/sink"
	"github.com/makerspace/printwatch/internal/ultimaker"
)

// PrinterClient is the per-printer surface the collector needs. The
// ultimaker client satisfies it; tests use fakes.
type PrinterClient interface {
	Address() string
	JobHistory(ctx context.Context) ([]ultimaker.PrintJob, error)
	SystemName(ctx context.Context) string
	MaterialName(ctx context.Context, guid string) string
}

// PrinterFailure records one unreachable or misbehaving printer.
type PrinterFailure struct {
	Address string
	Reason  string
}

// SinkOutcome records the result of one sink's read+write passes.
type SinkOutcome struct {
	Name        string
	KnownBefore int
	NewRows     int
	Err         string
}

// Summary is the always-produced result of a run. Partial failures
// show up here as counts and reasons, never as an aborted run.
type Summary struct {
	RunID           string
	PrintersPolled  int
	PrinterFailures []PrinterFailure
	RawFetched      int
	Normalized      int
	Skipped         int
	Dropped         int
	Sinks           []SinkOutcome
	Elapsed         time.Duration
}

// Collector runs the ingestion pipeline once.
type Collector struct {
	printers   []PrinterClient
	normalizer *jobs.Normalizer
	sinks      []sink.Sink
	workers    int
}

// New creates a collector. workers bounds concurrent printer fetches.
func New(printers []PrinterClient, normalizer *jobs.Normalizer, sinks []sink.Sink, workers int) *Collector {
	if workers <= 0 {
		workers = 4
	}
	return &Collector{
		printers:   printers,
		normalizer: normalizer,
		sinks:      sinks,
		workers:    workers,
	}
}

type fetchResult struct {
	raw []ultimaker.PrintJob
	err error
}

// Run executes one full pipeline pass and always returns a summary.
func (c *Collector) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{
		RunID:          uuid.New().String(),
		PrintersPolled: len(c.printers),
	}

	logger.Info("run started", "run_id", summary.RunID, "printers", len(c.printers))

	// Fetch with bounded concurrency. Results are indexed by printer
	// position so the flattened batch keeps config order; dedup is
	// identity-keyed and does not depend on cross-printer order, but a
	// deterministic batch keeps the first-occurrence tie-break stable.
	results := make([]fetchResult, len(c.printers))
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i, p := range c.printers {
		wg.Add(1)
		go func(i int, p PrinterClient) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			raw, err := p.JobHistory(ctx)
			results[i] = fetchResult{raw: raw, err: err}
		}(i, p)
	}
	wg.Wait()

	// Normalize per printer so material-name lookups hit the right
	// device cache.
	var records []jobs.JobRecord
	for i, p := range c.printers {
		res := results[i]
		if res.err != nil {
			logger.Warn("printer fetch failed", "printer", p.Address(), "error", res.err)
			summary.PrinterFailures = append(summary.PrinterFailures, PrinterFailure{
				Address: p.Address(),
				Reason:  res.err.Error(),
			})
			continue
		}

		logger.Info("fetched job history",
			"printer", p.Address(),
			"printer_name", p.SystemName(ctx),
			"jobs", len(res.raw))
		summary.RawFetched += len(res.raw)

		for _, raw := range res.raw {
			nr := c.normalizer.Normalize(ctx, p.Address(), raw, p)
			switch nr.Outcome {
			case jobs.OutcomeOK:
				summary.Normalized++
				records = append(records, *nr.Record)
			case jobs.OutcomeSkipped:
				summary.Skipped++
			case jobs.OutcomeFailed:
				summary.Dropped++
				logger.Warn("dropping malformed job record",
					"printer", p.Address(), "reason", nr.Reason)
			}
		}
	}

	// Each sink gets its own read pass, filter, and write pass; the
	// sinks can diverge after a partial failure and must converge on
	// their own.
	for _, s := range c.sinks {
		outcome := SinkOutcome{Name: s.Name()}

		known, err := s.KnownIdentities(ctx)
		if err != nil {
			logger.Error("sink read pass failed", "sink", s.Name(), "error", err)
			outcome.Err = err.Error()
			summary.Sinks = append(summary.Sinks, outcome)
			continue
		}
		outcome.KnownBefore = len(known)

		fresh := jobs.FilterNew(records, known)
		written, err := s.Append(ctx, fresh)
		if err != nil {
			logger.Error("sink write pass failed", "sink", s.Name(), "error", err)
			outcome.Err = err.Error()
			summary.Sinks = append(summary.Sinks, outcome)
			continue
		}
		outcome.NewRows = written

		logger.Info("sink updated",
			"sink", s.Name(),
			"known_before", outcome.KnownBefore,
			"new_rows", written)
		summary.Sinks = append(summary.Sinks, outcome)
	}

	summary.Elapsed = time.Since(start)
	logger.Info("run finished",
		"run_id", summary.RunID,
		"fetched", summary.RawFetched,
		"normalized", summary.Normalized,
		"skipped", summary.Skipped,
		"dropped", summary.Dropped,
		"printer_failures", len(summary.PrinterFailures),
		"elapsed", summary.Elapsed)

	return summary
}
