package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymops/internal/amqp"
	"gymops/internal/cli"
	applog "gymops/internal/log"
	"gymops/internal/match"
	"gymops/internal/report"
	"gymops/internal/sheets"
	"gymops/internal/sheets/google"
	"gymops/internal/sheets/memory"
	"gymops/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting gymops-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var appender sheets.ReportAppender
	if cfg.ExportEnabled {
		client, err := google.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = memory.New()
		logger.Info("Google Sheets export disabled, snapshots stay in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reports := report.NewService(repo, match.NewResolver())
	exportWorker := worker.NewExportWorker(reports, appender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqpClient.ConsumeImportCompleted(ctx, func(msg *amqp.ImportCompletedMessage) error {
			return exportWorker.HandleImportCompleted(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the in-flight handler a moment to finish.
	time.Sleep(5 * time.Second)
	logger.Info("Worker shutdown complete")
}
