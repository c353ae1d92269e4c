/**
 * HTTP boundary for the document recognition service.
 *
 * Thin adapter over the upload store, the pipeline orchestrator, and the
 * async job queue. Mirrors the public wire contract: upload, synchronous
 * recognize, async recognize with job polling, and image serving.
 */

package server

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/pipeline"
	"github.com/docukit/recognizer/internal/queue"
)

// Uploader stores incoming document files.
type Uploader interface {
	Save(filename string, r io.Reader) (id string, storedName string, err error)
}

// Runner executes one synchronous recognition run.
type Runner interface {
	Run(ctx context.Context, fileID string) (*pipeline.Record, error)
}

// JobQueue schedules async recognition runs and reports their status.
type JobQueue interface {
	Enqueue(ctx context.Context, fileID string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*queue.JobStatus, error)
}

// Config holds the server's collaborators and static serving roots.
type Config struct {
	Uploads     Uploader
	Runner      Runner
	Jobs        JobQueue // nil disables async endpoints
	UploadDir   string
	MaskedDir   string
	MaxFileSize int64
	Logger      *logging.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	logger *logging.Logger
}

// New creates the HTTP API server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("server")
	}
	return &Server{cfg: cfg, logger: logger}
}

// Router builds the chi router with permissive CORS.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleHealth)
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/recognize", s.handleRecognize)
	r.Post("/api/recognize/async", s.handleRecognizeAsync)
	r.Get("/api/results/{jobID}", s.handleResult)
	r.Get("/api/images/{filename}", s.handleImage)
	r.Get("/api/masked/{filename}", s.handleMasked)

	return r
}
