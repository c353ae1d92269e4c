/**
 * Tesseract OCR engine.
 *
 * Backs the Engine contract with gosseract. A fresh client is created per
 * call (clients are not safe for concurrent use), so the engine itself can
 * be shared across concurrent pipeline runs.
 */

package textrec

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine performs detection and recognition using Tesseract.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine. languages are
// Tesseract trained-data names such as "eng" or "chi_tra".
func NewTesseractEngine(languages []string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Detect runs line-level OCR and returns every detected region with its own
// confidence; no thresholding is applied here.
func (e *TesseractEngine) Detect(ctx context.Context, imagePath string) ([]TextBox, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("get bounding boxes: %w", err)
	}

	result := make([]TextBox, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		result = append(result, TextBox{
			Text: b.Word,
			Polygon: []Point{
				{X: r.Min.X, Y: r.Min.Y},
				{X: r.Max.X, Y: r.Min.Y},
				{X: r.Max.X, Y: r.Max.Y},
				{X: r.Min.X, Y: r.Max.Y},
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return result, nil
}
