package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/makerspace/printwatch/internal/jobs"
)

// CSVSink appends records to a local flat file, writing the header row
// on first use.
type CSVSink struct {
	path string
}

// NewCSVSink creates a CSV sink backed by the given file path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Name identifies the sink in logs and the run summary.
func (s *CSVSink) Name() string { return "csv" }

// KnownIdentities reads the uuid column of the existing file. A missing
// file means a first run: empty set, no error.
func (s *CSVSink) KnownIdentities(ctx context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{})

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return known, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return known, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", s.path, err)
	}

	idCol := 0
	for i, name := range header {
		if name == "uuid" {
			idCol = i
			break
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		if idCol < len(row) && row[idCol] != "" {
			known[row[idCol]] = struct{}{}
		}
	}
	return known, nil
}

// Append writes one row per record, creating the file and its header
// first if the file is missing or empty. Append is the only write mode.
func (s *CSVSink) Append(ctx context.Context, records []jobs.JobRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	needHeader := false
	if info, err := os.Stat(s.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		needHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for append: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(jobs.Header()); err != nil {
			return 0, fmt.Errorf("failed to write %s header: %w", s.path, err)
		}
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return 0, fmt.Errorf("failed to write row to %s: %w", s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return len(records), nil
}
