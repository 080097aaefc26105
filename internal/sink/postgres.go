package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/makerspace/printwatch/internal/jobs"
)

// PostgresSink appends records to a print_jobs table. Optional; the
// CSV and Sheets sinks do not depend on it in any way.
type PostgresSink struct {
	db *sql.DB
}

// OpenPostgres opens and pings the database. Unreachable Postgres at
// startup is a setup error for this sink only.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSink creates a sink over an open database handle.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name identifies the sink in logs and the run summary.
func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the print_jobs table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS print_jobs (
			uuid             TEXT PRIMARY KEY,
			printer_address  TEXT NOT NULL,
			status           TEXT NOT NULL,
			start_time       TIMESTAMPTZ NOT NULL,
			end_time         TIMESTAMPTZ NOT NULL,
			duration_seconds BIGINT NOT NULL,
			material_usage   TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure print_jobs schema: %w", err)
	}
	return nil
}

// KnownIdentities returns every uuid already in the table.
func (s *PostgresSink) KnownIdentities(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uuid FROM print_jobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to read known identities: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return known, nil
}

// Append inserts all records in one transaction. ON CONFLICT DO
// NOTHING backs up the dedup filter at the schema level.
func (s *PostgresSink) Append(ctx context.Context, records []jobs.JobRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO print_jobs
			(uuid, printer_address, status, start_time, end_time, duration_seconds, material_usage)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uuid) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		row := rec.Row()
		res, err := stmt.ExecContext(ctx,
			rec.Identity,
			rec.PrinterAddress,
			string(rec.Status),
			rec.StartTime,
			rec.EndTime,
			int64(rec.Duration/time.Second),
			row[6],
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert job %s: %w", rec.Identity, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}
