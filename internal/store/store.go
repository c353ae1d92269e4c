/**
 * Upload store.
 *
 * Disk-backed storage for uploaded document images. Files are stored under a
 * generated identifier with their original extension; Resolve probes the
 * fixed extension set to map an id back to a readable file.
 */

package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/logging"
)

// ErrNotFound is returned by Resolve when no stored upload matches the id.
var ErrNotFound = errors.New("upload not found")

// allowedExtensions is the fixed set of accepted upload types, probe order
// matters for Resolve.
var allowedExtensions = []string{"png", "jpg", "jpeg", "pdf"}

// Store persists uploads on the local filesystem.
type Store struct {
	dir     string
	maxSize int64
	logger  *logging.Logger
}

// New creates an upload store rooted at dir with the given per-file size cap.
func New(dir string, maxSize int64, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewLogger("store")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize, logger: logger}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// AllowedExtension reports whether filename carries an accepted extension.
func AllowedExtension(filename string) bool {
	ext := normalizeExt(filename)
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Save validates and stores one upload, returning the generated identifier
// and the stored filename ("<id>.<ext>").
func (s *Store) Save(filename string, r io.Reader) (string, string, error) {
	if !AllowedExtension(filename) {
		return "", "", apperrors.NewUnsupportedFormatError(filename)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", "", apperrors.NewFileTooLargeError(int64(len(data)), s.maxSize)
	}

	id := uuid.NewString()
	storedName := id + "." + normalizeExt(filename)
	path := filepath.Join(s.dir, storedName)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	s.logger.Info("upload stored", "id", id, "filename", storedName, "bytes", len(data))
	return id, storedName, nil
}

// Resolve maps an upload id to the stored file's path, probing the known
// extensions in order.
func (s *Store) Resolve(id string) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", ErrNotFound
	}
	for _, ext := range allowedExtensions {
		path := filepath.Join(s.dir, id+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func normalizeExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
