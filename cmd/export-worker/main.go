package main

import (
	"context"
	"os"
	"time"

	"monthly/internal/amqp"
	"monthly/internal/backend"
	"monthly/internal/cli"
	gsheet "monthly/internal/sheets/google"
	"monthly/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(os.Stdout, "info", "text", "export-worker")
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, "export-worker")

	logger.Info("Starting export-worker")

	if !cfg.ExportEnabled() {
		logger.Error("Google Sheets export disabled - set GOOGLE_SPREADSHEET_ID to run the worker")
		os.Exit(1)
	}

	// The worker only reads; it never publishes change events itself.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	sheetsClient, err := gsheet.New(context.Background(), backend.SheetsConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var source worker.ChangeSource
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		source = amqpClient
	} else {
		logger.Info("AMQP disabled - exporting on the interval only", "interval", cfg.ExportInterval)
	}

	exportWorker := worker.NewExportWorker(res.Store, sheetsClient, cfg.ExportInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := exportWorker.Run(ctx, source); err != nil {
		logger.Error("Export worker stopped", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully", "last_export", exportWorker.LastExport())
}
