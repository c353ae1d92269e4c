/**
 * Document recognition worker.
 *
 * Consumes queued recognition jobs from Redis and runs them through the
 * same four-stage pipeline the API server uses synchronously. Completed
 * and failed jobs update an ephemeral status mirror that the API's
 * /api/results endpoint reads.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docukit/recognizer/internal/classify"
	"github.com/docukit/recognizer/internal/config"
	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/pipeline"
	"github.com/docukit/recognizer/internal/queue"
	"github.com/docukit/recognizer/internal/redact"
	"github.com/docukit/recognizer/internal/store"
	"github.com/docukit/recognizer/internal/textrec"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required for the worker")
	}

	logger := logging.NewLogger("worker")
	logger.Info("document recognition worker starting",
		"redis", cfg.RedisURL, "concurrency", cfg.WorkerConcurrency)

	uploads, err := store.New(cfg.UploadDir, cfg.MaxFileSize, logging.NewLogger("store"))
	if err != nil {
		log.Fatalf("failed to initialize upload store: %v", err)
	}

	var model classify.Model
	labels := classify.DefaultLabels()
	if bundle, err := classify.LoadBundle(cfg.ModelBundleDir); err != nil {
		logger.Warn("classifier model unavailable, using fallback classification",
			"bundle", cfg.ModelBundleDir, "error", err)
	} else {
		model = bundle.Model
		labels = bundle.Labels
		logger.Info("classifier model loaded", "bundle", cfg.ModelBundleDir)
	}
	classifier := classify.New(model, labels, logging.NewLogger("classify"))

	var engine textrec.Engine
	if cfg.OCRDisabled {
		logger.Warn("OCR disabled, recognition runs in degraded mode")
	} else {
		engine = textrec.NewTesseractEngine(cfg.OCRLanguages)
	}
	recognizer := textrec.New(engine, logging.NewLogger("textrec"))

	redactor, err := redact.New(cfg.MaskedDir, logging.NewLogger("redact"))
	if err != nil {
		log.Fatalf("failed to initialize redaction engine: %v", err)
	}

	orchestrator := pipeline.New(uploads, classifier, recognizer, redactor,
		logging.NewLogger("pipeline"))

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		Concurrency:       cfg.WorkerConcurrency,
		ProcessingTimeout: int64(cfg.ProcessingTimeout),
		StatusTTL:         time.Duration(cfg.JobStatusTTL) * time.Second,
		Runner:            orchestrator,
		Logger:            logging.NewLogger("queue"),
	})
	if err != nil {
		log.Fatalf("failed to initialize queue consumer: %v", err)
	}

	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("failed to start queue consumer: %v", err)
	}
	logger.Info("worker ready, waiting for jobs")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig)

	if err := consumer.Stop(ctx); err != nil {
		logger.Error("error stopping consumer", "error", err)
	}

	if model != nil {
		if err := model.Close(); err != nil {
			logger.Error("error closing model", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
