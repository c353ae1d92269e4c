/**
 * Async recognition queue.
 *
 * Asynq-backed job queue for deferred recognition runs, with an ephemeral
 * job-status mirror kept in Redis under a TTL. Durable result storage is
 * deliberately out of scope; a finished job's record survives only as long
 * as the status key.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/pipeline"
)

// TaskRecognizeDocument is the asynq task type for one recognition run.
const TaskRecognizeDocument = "document:recognize"

const statusKeyPrefix = "recognize:job:"

// Job lifecycle states.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RecognizePayload is the task payload for a queued recognition.
type RecognizePayload struct {
	JobID  string `json:"job_id"`
	FileID string `json:"file_id"`
}

// JobStatus is the ephemeral status mirror for one queued job.
type JobStatus struct {
	JobID     string                 `json:"job_id"`
	FileID    string                 `json:"file_id"`
	Status    string                 `json:"status"`
	Record    *pipeline.Record       `json:"record,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// taskEnqueuer is the asynq capability the client depends on.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// statusBackend is the Redis capability behind the job-status mirror.
type statusBackend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client enqueues recognition jobs and reads their status.
type Client struct {
	client taskEnqueuer
	rdb    statusBackend
	ttl    time.Duration
	logger *logging.Logger
}

// NewClient connects the enqueue side to Redis.
func NewClient(redisURL string, statusTTL time.Duration, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewLogger("queue")
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdbOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Client{
		client: asynq.NewClient(opt),
		rdb:    redis.NewClient(rdbOpt),
		ttl:    statusTTL,
		logger: logger,
	}, nil
}

// Enqueue schedules a recognition run for fileID and returns the job id. The
// queued status is written first so a fast worker never races an absent key;
// it is removed again if the enqueue itself fails.
func (c *Client) Enqueue(ctx context.Context, fileID string) (string, error) {
	jobID := uuid.NewString()

	payload, err := json.Marshal(RecognizePayload{JobID: jobID, FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if err := c.setStatus(ctx, &JobStatus{
		JobID:     jobID,
		FileID:    fileID,
		Status:    StatusQueued,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	if _, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskRecognizeDocument, payload)); err != nil {
		if delErr := c.rdb.Del(ctx, statusKeyPrefix+jobID).Err(); delErr != nil {
			c.logger.Warn("failed to remove stale job status",
				"job_id", jobID, "error", delErr)
		}
		return "", apperrors.NewQueueFailedError(fileID, err)
	}

	c.logger.Info("recognition job enqueued", "job_id", jobID, "file_id", fileID)
	return jobID, nil
}

// JobStatus returns the status mirror for jobID, or nil when unknown/expired.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	raw, err := c.rdb.Get(ctx, statusKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job status: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode job status: %w", err)
	}
	return &status, nil
}

func (c *Client) setStatus(ctx context.Context, status *JobStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := c.rdb.Set(ctx, statusKeyPrefix+status.JobID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write job status: %w", err)
	}
	return nil
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.rdb.Close()
}
