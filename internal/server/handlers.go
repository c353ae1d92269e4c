package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/docukit/recognizer/internal/errors"
)

type recognizeRequest struct {
	FileID string `json:"file_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Document Recognition API is running",
	})
}

// handleUpload accepts one multipart file under the "file" field, validates
// extension and size, and stores it under a generated identifier.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	id, storedName, err := s.cfg.Uploads.Save(header.Filename, file)
	if err != nil {
		var pe *apperrors.PipelineError
		switch {
		case errors.As(err, &pe) && pe.Code == apperrors.ErrorUnsupportedFormat:
			writeError(w, http.StatusBadRequest, "Invalid file type")
		case errors.As(err, &pe) && pe.Code == apperrors.ErrorFileTooLarge:
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			s.logger.Error("upload failed", "filename", header.Filename, "error", err)
			writeServerError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"file_id":  id,
		"filename": storedName,
	})
}

// handleRecognize runs the full pipeline synchronously for one uploaded
// document and returns the recognition record.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	record, err := s.cfg.Runner.Run(r.Context(), req.FileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.logger.Error("recognition failed", "file_id", req.FileID, "error", err)
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   record,
	})
}

// handleRecognizeAsync enqueues a recognition job instead of running it
// inline; the result is fetched from /api/results/{jobID}.
func (s *Server) handleRecognizeAsync(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Async processing is not enabled")
		return
	}

	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	jobID, err := s.cfg.Jobs.Enqueue(r.Context(), req.FileID)
	if err != nil {
		s.logger.Error("enqueue failed", "file_id", req.FileID, "error", err)
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "success",
		"job_id": jobID,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Async processing is not enabled")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	status, err := s.cfg.Jobs.JobStatus(r.Context(), jobID)
	if err != nil {
		s.logger.Error("job status lookup failed", "job_id", jobID, "error", err)
		writeServerError(w, err)
		return
	}
	if status == nil {
		writeError(w, http.StatusNotFound, "Result not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   status,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.serveFrom(w, r, s.cfg.UploadDir)
}

func (s *Server) handleMasked(w http.ResponseWriter, r *http.Request) {
	s.serveFrom(w, r, s.cfg.MaskedDir)
}

// serveFrom serves a single file from dir, restricted to its basename to
// keep path traversal out.
func (s *Server) serveFrom(w http.ResponseWriter, r *http.Request, dir string) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeServerError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"status":  "error",
		"message": err.Error(),
	})
}
