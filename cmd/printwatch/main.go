package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/makerspace/printwatch/internal/collector"
	"github.com/makerspace/printwatch/internal/config"
	"github.com/makerspace/printwatch/internal/jobs"
	"github.com/makerspace/printwatch/internal/pkg/logger"
	"github.com/makerspace/printwatch/internal/sheets"
	"github.com/makerspace/printwatch/internal/sink"
	"github.com/makerspace/printwatch/internal/ultimaker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// run returns an error only for setup failures; a started run always
// completes with a summary and exits 0, partial failures included.
func run(configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	addrs, err := config.LoadPrinterList(cfg.Printers.ListPath)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		logger.Warn("printer list is empty", "path", cfg.Printers.ListPath)
	}

	ctx := context.Background()

	sinks := []sink.Sink{sink.NewCSVSink(cfg.CSV.Path)}

	// Missing Sheets credentials abort before any printer is contacted.
	if cfg.Sheets.Enabled {
		creds, err := os.ReadFile(cfg.Sheets.CredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		client, err := sheets.NewClient(ctx, creds, cfg.Sheets.SpreadsheetID, cfg.Sheets.Timeout())
		if err != nil {
			return err
		}
		sinks = append(sinks, sink.NewSheetsSink(client, cfg.Sheets.SheetName))
	}

	// Postgres is optional; an unreachable database costs only that
	// sink, not the run.
	if cfg.Postgres.Enabled {
		db, err := sink.OpenPostgres(ctx, cfg.Postgres.DatabaseURL)
		if err != nil {
			logger.Error("postgres sink unavailable", "error", err)
		} else {
			defer db.Close()
			pg := sink.NewPostgresSink(db)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Error("postgres sink unavailable", "error", err)
			} else {
				sinks = append(sinks, pg)
			}
		}
	}

	printers := make([]collector.PrinterClient, len(addrs))
	for i, addr := range addrs {
		printers[i] = ultimaker.NewClient(ultimaker.Config{
			Address:    addr,
			Timeout:    cfg.Printers.Timeout(),
			PageSize:   cfg.Printers.PageSize,
			MaxRetries: cfg.Printers.MaxRetries,
		})
	}

	c := collector.New(printers, jobs.NewNormalizer(loc), sinks, cfg.Printers.FetchWorkers)
	summary := c.Run(ctx)

	for _, so := range summary.Sinks {
		if so.Err != "" {
			logger.Warn("sink reported failure", "sink", so.Name, "error", so.Err)
		}
	}
	return nil
}
