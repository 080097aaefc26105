package sink

import (
	"context"
	"fmt"

	"github.com/makerspace/printwatch/internal/jobs"
	"github.com/makerspace/printwatch/internal/sheets"
)

// SheetsSink appends records as rows to one tab of a Google Sheets
// spreadsheet. The uuid column is the dedup key read back each run.
type SheetsSink struct {
	client    *sheets.Client
	sheetName string

	// set by KnownIdentities; an empty tab gets a header row prepended
	// to the next append.
	sheetEmpty bool
}

// NewSheetsSink creates a sink writing to the given tab.
func NewSheetsSink(client *sheets.Client, sheetName string) *SheetsSink {
	return &SheetsSink{client: client, sheetName: sheetName}
}

// Name identifies the sink in logs and the run summary.
func (s *SheetsSink) Name() string { return "sheets" }

// KnownIdentities reads every value in the identity column of the tab.
// The header cell is excluded.
func (s *SheetsSink) KnownIdentities(ctx context.Context) (map[string]struct{}, error) {
	cells, err := s.client.GetColumn(ctx, s.sheetName, "A")
	if err != nil {
		return nil, fmt.Errorf("failed to read identity column: %w", err)
	}
	s.sheetEmpty = len(cells) == 0

	known := make(map[string]struct{}, len(cells))
	for _, cell := range cells {
		if cell == "" || cell == "uuid" {
			continue
		}
		known[cell] = struct{}{}
	}
	return known, nil
}

// Append writes one row per record in a single batched request. On a
// fresh tab the header row rides in the same batch.
func (s *SheetsSink) Append(ctx context.Context, records []jobs.JobRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var rows [][]interface{}
	if s.sheetEmpty {
		rows = append(rows, toInterfaceRow(jobs.Header()))
	}
	for _, rec := range records {
		rows = append(rows, toInterfaceRow(rec.Row()))
	}

	if err := s.client.AppendRows(ctx, s.sheetName, rows); err != nil {
		return 0, fmt.Errorf("failed to append rows: %w", err)
	}
	s.sheetEmpty = false
	return len(records), nil
}

func toInterfaceRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
