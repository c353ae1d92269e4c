/**
 * Recognition pipeline orchestrator.
 *
 * Sequences the four stages for one document: classify, recognize text,
 * extract fields, redact. Strictly linear and synchronous; classification is
 * a hard dependency of extraction because of its type-conditional rules.
 *
 * The only hard failure is an unresolvable document reference. Every stage
 * already degrades to a documented default, so a run over a readable image
 * always yields a complete (possibly sparse) record.
 */

package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/docukit/recognizer/internal/classify"
	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/extract"
	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/textrec"
)

// Classifier assigns a document type to an image.
type Classifier interface {
	Classify(ctx context.Context, imagePath string) classify.Result
}

// Recognizer extracts text and positioned regions from an image in one
// detection pass.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, []textrec.TextBox)
}

// Redactor writes a redacted copy of an image and returns its path.
type Redactor interface {
	MaskInfo(imagePath string, fields extract.Fields) string
	MaskWithBoxes(imagePath string, boxes []textrec.TextBox, sensitiveValues []string) string
}

// UploadResolver maps a document reference to a readable image file.
type UploadResolver interface {
	Resolve(id string) (string, error)
}

// Record is the aggregate result of one recognition run.
type Record struct {
	ID           string                `json:"result_id"`
	FileID       string                `json:"file_id"`
	DocumentType classify.DocumentType `json:"document_type"`
	Confidence   float64               `json:"confidence"`
	OCRText      string                `json:"ocr_text"`
	Fields       extract.Fields        `json:"extracted_info"`
	MaskedImage  string                `json:"masked_image"`

	// Fallback mirrors the classifier's out-of-band degraded-mode flag;
	// omitted from the wire payload.
	Fallback bool `json:"-"`
}

// Orchestrator runs the four-stage recognition pipeline.
type Orchestrator struct {
	uploads    UploadResolver
	classifier Classifier
	recognizer Recognizer
	redactor   Redactor
	logger     *logging.Logger
}

// New wires the pipeline stages together.
func New(uploads UploadResolver, classifier Classifier, recognizer Recognizer, redactor Redactor, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewLogger("pipeline")
	}
	return &Orchestrator{
		uploads:    uploads,
		classifier: classifier,
		recognizer: recognizer,
		redactor:   redactor,
		logger:     logger,
	}
}

// Run processes one document. The returned error is non-nil only when the
// reference cannot be resolved to a stored upload.
func (o *Orchestrator) Run(ctx context.Context, fileID string) (*Record, error) {
	imagePath, err := o.uploads.Resolve(fileID)
	if err != nil {
		o.logger.Warn("document not found", "file_id", fileID)
		return nil, apperrors.NewInputNotFoundError(fileID)
	}

	o.logger.Info("pipeline start", "file_id", fileID, "image", imagePath)

	classification := o.classifier.Classify(ctx, imagePath)
	o.logger.Info("classified", "file_id", fileID,
		"type", classification.Type, "confidence", classification.Confidence,
		"fallback", classification.Fallback)

	text, boxes := o.recognizer.Recognize(ctx, imagePath)

	fields := extract.Extract(text, classification.Type)

	masked := o.redact(imagePath, fields, boxes)

	record := &Record{
		ID:           uuid.NewString(),
		FileID:       fileID,
		DocumentType: classification.Type,
		Confidence:   classification.Confidence,
		OCRText:      text,
		Fields:       fields,
		MaskedImage:  masked,
		Fallback:     classification.Fallback,
	}

	o.logger.Info("pipeline complete", "file_id", fileID,
		"result_id", record.ID, "masked", masked)

	return record, nil
}

// redact prefers precise, box-driven masking when the recognition pass
// produced positional data and sensitive values were extracted; otherwise it
// falls back to the coarse fixed-region mask.
func (o *Orchestrator) redact(imagePath string, fields extract.Fields, boxes []textrec.TextBox) string {
	sensitive := fields.SensitiveValues()
	if len(sensitive) > 0 && len(boxes) > 0 {
		return o.redactor.MaskWithBoxes(imagePath, boxes, sensitive)
	}
	return o.redactor.MaskInfo(imagePath, fields)
}
