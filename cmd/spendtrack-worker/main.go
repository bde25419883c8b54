// spendtrack-worker consumes expense change events and mirrors the
// affected rows into a Google Sheets spreadsheet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cli"
	"spendtrack/internal/log"
	gsheet "spendtrack/internal/sheets/google"
	"spendtrack/internal/storage"
	"spendtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the mirror worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(repo, sheetsClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExpenseEvents(gctx, func(msg *amqp.ExpenseEventMessage) error {
			return mirror.HandleEvent(gctx, msg)
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down mirror worker")
		return amqpClient.Close()
	})

	logger.Info("Mirror worker started",
		"queue", cfg.AMQPQueue, "spreadsheet_id", cfg.GoogleSpreadsheetID)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Mirror worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Mirror worker stopped")
}
