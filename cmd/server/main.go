/**
 * Document recognition API server.
 *
 * HTTP boundary over the four-stage recognition pipeline:
 * classify -> recognize text -> extract fields -> redact.
 *
 * Both inference capabilities degrade gracefully: a missing classifier
 * bundle selects the random-fallback path and a disabled OCR engine yields
 * placeholder text, so the service stays runnable without trained artifacts.
 */

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
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
	"github.com/docukit/recognizer/internal/server"
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

	logger := logging.NewLogger("server")
	logger.Info("document recognition server starting",
		"listen", cfg.ListenAddr, "uploads", cfg.UploadDir, "masked", cfg.MaskedDir)

	uploads, err := store.New(cfg.UploadDir, cfg.MaxFileSize, logging.NewLogger("store"))
	if err != nil {
		log.Fatalf("failed to initialize upload store: %v", err)
	}

	orchestrator := buildPipeline(cfg, uploads)

	var jobs server.JobQueue
	var queueClient *queue.Client
	if cfg.RedisURL != "" {
		queueClient, err = queue.NewClient(cfg.RedisURL,
			time.Duration(cfg.JobStatusTTL)*time.Second, logging.NewLogger("queue"))
		if err != nil {
			log.Fatalf("failed to connect job queue: %v", err)
		}
		defer queueClient.Close()
		jobs = queueClient
		logger.Info("async job queue enabled", "redis", cfg.RedisURL)
	} else {
		logger.Warn("REDIS_URL not set, async recognition endpoints disabled")
	}

	api := server.New(server.Config{
		Uploads:     uploads,
		Runner:      orchestrator,
		Jobs:        jobs,
		UploadDir:   cfg.UploadDir,
		MaskedDir:   cfg.MaskedDir,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildPipeline wires the four recognition stages from configuration, with
// degraded-mode fallbacks for missing inference capabilities.
func buildPipeline(cfg *config.Config, uploads *store.Store) *pipeline.Orchestrator {
	logger := logging.NewLogger("pipeline")

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
		logger.Info("OCR engine ready", "engine", engine.Name(), "languages", cfg.OCRLanguages)
	}
	recognizer := textrec.New(engine, logging.NewLogger("textrec"))

	redactor, err := redact.New(cfg.MaskedDir, logging.NewLogger("redact"))
	if err != nil {
		log.Fatalf("failed to initialize redaction engine: %v", err)
	}

	return pipeline.New(uploads, classifier, recognizer, redactor, logger)
}
