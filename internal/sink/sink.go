// Package sink holds the append-only destinations for canonical job
// records. Every sink exposes a read pass (the identities it already
// holds) and a write pass (append new rows); the two passes are
// independent so deduplication stays testable per sink.
package sink

import (
	"context"

	"github.com/makerspace/printwatch/internal/jobs"
)

// Sink is a durable append-only destination. Rows are never rewritten
// or deleted; an identity, once appended, must never be appended to the
// same sink again.
type Sink interface {
	Name() string
	KnownIdentities(ctx context.Context) (map[string]struct{}, error)
	Append(ctx context.Context, records []jobs.JobRecord) (int, error)
}
