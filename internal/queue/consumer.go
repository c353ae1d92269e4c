/**
 * Queue consumer.
 *
 * Consumes recognition jobs from the asynq queue and runs them through the
 * pipeline orchestrator with a per-job timeout. Not-found inputs fail the
 * job without retrying; transient errors use exponential backoff.
 */

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/pipeline"
)

// Runner is the orchestrator capability the consumer depends on.
type Runner interface {
	Run(ctx context.Context, fileID string) (*pipeline.Record, error)
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL          string
	Concurrency       int
	ProcessingTimeout int64 // milliseconds
	StatusTTL         time.Duration
	Runner            Runner
	Logger            *logging.Logger
}

// Consumer handles job consumption from the Redis-backed queue.
type Consumer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	status *Client
	runner Runner
	config *ConsumerConfig
	logger *logging.Logger
}

// NewConsumer creates a new queue consumer.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("Runner is required")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("queue")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	statusClient, err := NewClient(cfg.RedisURL, cfg.StatusTTL, logger)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing error",
					"type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server: server,
		mux:    mux,
		status: statusClient,
		runner: cfg.Runner,
		config: cfg,
		logger: logger,
	}

	mux.HandleFunc(TaskRecognizeDocument, consumer.handleRecognizeDocument)

	return consumer, nil
}

// Start starts the queue consumer.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting queue consumer", "concurrency", c.config.Concurrency)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("queue consumer stopped", "error", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("stopping queue consumer")
	c.server.Shutdown()
	return c.status.Close()
}

// handleRecognizeDocument runs one queued recognition job.
func (c *Consumer) handleRecognizeDocument(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var payload RecognizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	c.logger.Info("processing recognition job",
		"job_id", payload.JobID, "file_id", payload.FileID)

	c.updateStatus(ctx, &JobStatus{
		JobID:     payload.JobID,
		FileID:    payload.FileID,
		Status:    StatusProcessing,
		UpdatedAt: time.Now().UTC(),
	})

	timeout := 300000 * time.Millisecond
	if c.config.ProcessingTimeout > 0 {
		timeout = time.Duration(c.config.ProcessingTimeout) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	record, err := c.runner.Run(runCtx, payload.FileID)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("recognition job failed",
			"job_id", payload.JobID, "duration", duration, "error", err)

		failed := &JobStatus{
			JobID:     payload.JobID,
			FileID:    payload.FileID,
			Status:    StatusFailed,
			Error:     err.Error(),
			UpdatedAt: time.Now().UTC(),
		}
		var pe *apperrors.PipelineError
		if errors.As(err, &pe) {
			failed.Details = pe.ToMap()
		}
		c.updateStatus(ctx, failed)

		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("recognition timeout: %w",
				apperrors.NewProcessingTimeoutError(payload.JobID, timeout, err))
		}
		if apperrors.IsNotFound(err) {
			// Retrying cannot resurrect a missing upload.
			return fmt.Errorf("recognition failed: %w: %w", asynq.SkipRetry, err)
		}
		return fmt.Errorf("recognition failed: %w", err)
	}

	c.logger.Info("recognition job completed",
		"job_id", payload.JobID, "result_id", record.ID, "duration", duration)

	c.updateStatus(ctx, &JobStatus{
		JobID:     payload.JobID,
		FileID:    payload.FileID,
		Status:    StatusCompleted,
		Record:    record,
		UpdatedAt: time.Now().UTC(),
	})

	return nil
}

func (c *Consumer) updateStatus(ctx context.Context, status *JobStatus) {
	if err := c.status.setStatus(ctx, status); err != nil {
		c.logger.Warn("failed to update job status",
			"job_id", status.JobID, "status", status.Status, "error", err)
	}
}
