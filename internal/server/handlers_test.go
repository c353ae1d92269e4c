package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/extract"
	"github.com/docukit/recognizer/internal/pipeline"
	"github.com/docukit/recognizer/internal/queue"
)

type fakeUploader struct {
	saveErr error
}

func (f *fakeUploader) Save(filename string, r io.Reader) (string, string, error) {
	if f.saveErr != nil {
		return "", "", f.saveErr
	}
	io.Copy(io.Discard, r)
	return "upload-id", "upload-id.png", nil
}

type fakeRunner struct {
	record *pipeline.Record
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, fileID string) (*pipeline.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	record := *f.record
	record.FileID = fileID
	return &record, nil
}

type fakeJobQueue struct {
	enqueueErr error
	status     *queue.JobStatus
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, fileID string) (string, error) {
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	return "job-1", nil
}

func (f *fakeJobQueue) JobStatus(ctx context.Context, jobID string) (*queue.JobStatus, error) {
	return f.status, nil
}

func sampleRecord() *pipeline.Record {
	name := "Chan Tai Man"
	return &pipeline.Record{
		ID:           "result-1",
		DocumentType: "utility_bill",
		Confidence:   0.91,
		OCRText:      "sample text",
		Fields:       extract.Fields{extract.FieldName: &name},
		MaskedImage:  "masked_images/masked_doc.png",
		Fallback:     true,
	}
}

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	if cfg.MaskedDir == "" {
		cfg.MaskedDir = t.TempDir()
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	return New(cfg).Router()
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "Document Recognition API is running", got["message"])
}

func TestUpload(t *testing.T) {
	t.Run("stores a valid file", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

		body, contentType := multipartBody(t, "file", "doc.png", []byte("image bytes"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody(t, rec)
		assert.Equal(t, "success", got["status"])
		assert.Equal(t, "upload-id", got["file_id"])
		assert.Equal(t, "upload-id.png", got["filename"])
	})

	t.Run("rejects a request without a file field", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file provided", decodeBody(t, rec)["error"])
	})

	t.Run("rejects an unsupported extension", func(t *testing.T) {
		uploads := &fakeUploader{saveErr: apperrors.NewUnsupportedFormatError("doc.exe")}
		h := newTestServer(t, Config{Uploads: uploads, Runner: &fakeRunner{record: sampleRecord()}})

		body, contentType := multipartBody(t, "file", "doc.exe", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid file type", decodeBody(t, rec)["error"])
	})

	t.Run("rejects an oversized file", func(t *testing.T) {
		uploads := &fakeUploader{saveErr: apperrors.NewFileTooLargeError(20<<20, 10<<20)}
		h := newTestServer(t, Config{Uploads: uploads, Runner: &fakeRunner{record: sampleRecord()}})

		body, contentType := multipartBody(t, "file", "doc.png", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "File too large", decodeBody(t, rec)["error"])
	})
}

func TestRecognize(t *testing.T) {
	t.Run("returns the recognition record", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

		req := httptest.NewRequest(http.MethodPost, "/api/recognize",
			strings.NewReader(`{"file_id":"doc-1"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody(t, rec)
		assert.Equal(t, "success", got["status"])

		data, ok := got["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "result-1", data["result_id"])
		assert.Equal(t, "doc-1", data["file_id"])
		assert.Equal(t, "utility_bill", data["document_type"])
		assert.InDelta(t, 0.91, data["confidence"], 1e-9)
		assert.Equal(t, "sample text", data["ocr_text"])
		assert.Equal(t, "masked_images/masked_doc.png", data["masked_image"])

		fields, ok := data["extracted_info"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Chan Tai Man", fields["name"])

		// The degraded-mode flag stays out of the wire payload.
		assert.NotContains(t, data, "fallback")
	})

	t.Run("requires a file_id", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

		for _, body := range []string{"", "{}", `{"file_id":""}`, "not json"} {
			req := httptest.NewRequest(http.MethodPost, "/api/recognize", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
			assert.Equal(t, "file_id is required", decodeBody(t, rec)["error"])
		}
	})

	t.Run("maps an unknown file to 404", func(t *testing.T) {
		runner := &fakeRunner{err: apperrors.NewInputNotFoundError("missing")}
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: runner})

		req := httptest.NewRequest(http.MethodPost, "/api/recognize",
			strings.NewReader(`{"file_id":"missing"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "File not found", decodeBody(t, rec)["error"])
	})
}

func TestRecognizeAsync(t *testing.T) {
	t.Run("enqueues a job", func(t *testing.T) {
		h := newTestServer(t, Config{
			Uploads: &fakeUploader{},
			Runner:  &fakeRunner{record: sampleRecord()},
			Jobs:    &fakeJobQueue{},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/recognize/async",
			strings.NewReader(`{"file_id":"doc-1"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		got := decodeBody(t, rec)
		assert.Equal(t, "success", got["status"])
		assert.Equal(t, "job-1", got["job_id"])
	})

	t.Run("responds 503 when the queue is disabled", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}})

		req := httptest.NewRequest(http.MethodPost, "/api/recognize/async",
			strings.NewReader(`{"file_id":"doc-1"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestResult(t *testing.T) {
	t.Run("returns the job status", func(t *testing.T) {
		jobs := &fakeJobQueue{status: &queue.JobStatus{
			JobID:  "job-1",
			FileID: "doc-1",
			Status: queue.StatusCompleted,
			Record: sampleRecord(),
		}}
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}, Jobs: jobs})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/job-1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody(t, rec)
		data, ok := got["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "completed", data["status"])
		assert.Equal(t, "job-1", data["job_id"])
	})

	t.Run("responds 404 for an unknown job", func(t *testing.T) {
		h := newTestServer(t, Config{Uploads: &fakeUploader{}, Runner: &fakeRunner{record: sampleRecord()}, Jobs: &fakeJobQueue{}})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/nope", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Result not found", decodeBody(t, rec)["error"])
	})
}

func TestServeImages(t *testing.T) {
	uploadDir := t.TempDir()
	maskedDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "doc.png"), []byte("original"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(maskedDir, "masked_doc.png"), []byte("masked"), 0o644))

	h := newTestServer(t, Config{
		Uploads:   &fakeUploader{},
		Runner:    &fakeRunner{record: sampleRecord()},
		UploadDir: uploadDir,
		MaskedDir: maskedDir,
	})

	t.Run("serves an uploaded image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/doc.png", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "original", rec.Body.String())
	})

	t.Run("serves a masked image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/masked/masked_doc.png", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "masked", rec.Body.String())
	})

	t.Run("responds 404 for a missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/nope.png", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
