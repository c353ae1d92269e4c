/**
 * Text recognizer.
 *
 * Turns an image into plain text plus positioned text boxes for the redaction
 * stage, from a single detection pass. Recognition never raises to the
 * caller: an unavailable or failing engine degrades to documented placeholder
 * output so the pipeline stays runnable.
 */

package textrec

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/logging"
)

const (
	// PlaceholderText is returned by Recognize when no OCR engine is
	// configured. Fixed and non-empty so callers can always render it.
	PlaceholderText = "[degraded mode] OCR engine unavailable; no text recognition was performed. Install the tesseract runtime and language data to enable recognition."

	// NoTextMarker is returned when detection ran but nothing survived the
	// confidence filter.
	NoTextMarker = "no text recognized"

	// confidenceThreshold filters low-quality lines out of the plain-text
	// projection. Box consumers apply their own policy.
	confidenceThreshold = 0.5
)

// Recognizer wraps a pluggable OCR engine.
type Recognizer struct {
	engine Engine
	logger *logging.Logger
}

// New creates a recognizer. engine may be nil, selecting degraded mode.
func New(engine Engine, logger *logging.Logger) *Recognizer {
	if logger == nil {
		logger = logging.NewLogger("textrec")
	}
	return &Recognizer{engine: engine, logger: logger}
}

// Recognize runs one detection pass and returns both projections of it: the
// confidence-filtered, newline-joined text and every detected region with its
// own confidence, in emission order. It never returns an error: the nil-engine
// case yields the fixed placeholder and engine failures become a
// failure-describing text payload, both with no boxes.
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) (string, []TextBox) {
	if r.engine == nil {
		r.logger.Debug("recognition degraded",
			"error", apperrors.NewDegradedCapabilityError("", "ocr engine", nil))
		return PlaceholderText, nil
	}

	boxes, err := r.engine.Detect(ctx, imagePath)
	if err != nil {
		r.logger.Warn("ocr failed", "image", imagePath,
			"error", apperrors.NewStageFailedError("", "text_recognition", err))
		return fmt.Sprintf("text recognition failed: %v", err), nil
	}

	return projectText(boxes), boxes
}

// projectText is the plain-text view of a detection result: boxes above the
// confidence threshold joined in emission order.
func projectText(boxes []TextBox) string {
	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence > confidenceThreshold {
			lines = append(lines, b.Text)
		}
	}

	if len(lines) == 0 {
		return NoTextMarker
	}
	return strings.Join(lines, "\n")
}
