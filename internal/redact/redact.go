/**
 * Redaction engine.
 *
 * Produces a redacted copy of a document image with sensitive regions filled
 * solid black. Never mutates the source image and never fails the call: on
 * any read/decode/write problem the original path is returned so the caller
 * always holds a valid image reference.
 */

package redact

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/docukit/recognizer/internal/extract"
	"github.com/docukit/recognizer/internal/logging"
	"github.com/docukit/recognizer/internal/textrec"
)

// Coarse-mode regions as fractions of the image bounds: an approximate name
// region and an approximate ID region.
var coarseRegions = []struct {
	x, y, w, h float64
}{
	{0.1, 0.2, 0.4, 0.1},
	{0.1, 0.4, 0.4, 0.1},
}

// Engine writes redacted copies of document images.
type Engine struct {
	outputDir string
	logger    *logging.Logger
}

// New creates a redaction engine writing derived artifacts under outputDir.
func New(outputDir string, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewLogger("redact")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	return &Engine{outputDir: outputDir, logger: logger}, nil
}

// MaskInfo blacks out the two fixed fractional regions regardless of where
// the extracted fields actually sit. Deliberately crude: it is the fallback
// when no positional OCR data is available.
func (e *Engine) MaskInfo(imagePath string, fields extract.Fields) string {
	src, err := decodeImage(imagePath)
	if err != nil {
		e.logger.Warn("coarse redaction skipped, returning original image",
			"image", imagePath, "error", err)
		return imagePath
	}

	masked := cloneImage(src)
	bounds := masked.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	for _, r := range coarseRegions {
		rect := image.Rect(
			bounds.Min.X+int(float64(width)*r.x),
			bounds.Min.Y+int(float64(height)*r.y),
			bounds.Min.X+int(float64(width)*(r.x+r.w)),
			bounds.Min.Y+int(float64(height)*(r.y+r.h)),
		)
		draw.Draw(masked, rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}

	return e.writeMasked(imagePath, masked)
}

// MaskWithBoxes fills the quadrilateral of every text box whose text contains
// any sensitive value as a substring. Boxes without exactly four polygon
// points are skipped.
func (e *Engine) MaskWithBoxes(imagePath string, boxes []textrec.TextBox, sensitiveValues []string) string {
	src, err := decodeImage(imagePath)
	if err != nil {
		e.logger.Warn("precise redaction skipped, returning original image",
			"image", imagePath, "error", err)
		return imagePath
	}

	masked := cloneImage(src)

	for _, box := range boxes {
		if len(box.Polygon) != 4 {
			continue
		}
		if !containsAny(box.Text, sensitiveValues) {
			continue
		}
		fillPolygon(masked, box.Polygon, color.Black)
	}

	return e.writeMasked(imagePath, masked)
}

// writeMasked encodes the redacted copy under a derived filename and returns
// its path, or the original path when the write fails.
func (e *Engine) writeMasked(imagePath string, masked image.Image) string {
	outPath := filepath.Join(e.outputDir, "masked_"+filepath.Base(imagePath))

	out, err := os.Create(outPath)
	if err != nil {
		e.logger.Warn("cannot create masked image, returning original",
			"path", outPath, "error", err)
		return imagePath
	}
	defer out.Close()

	switch strings.ToLower(filepath.Ext(imagePath)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(out, masked, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(out, masked)
	}
	if err != nil {
		e.logger.Warn("cannot encode masked image, returning original",
			"path", outPath, "error", err)
		os.Remove(outPath)
		return imagePath
	}

	return outPath
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// cloneImage copies the source into a fresh RGBA so redaction never touches
// the decoded original.
func cloneImage(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}

func containsAny(text string, values []string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(text, v) {
			return true
		}
	}
	return false
}
