package textrec

import "context"

// Point is a pixel coordinate in the source image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TextBox is one detected text region: the recognized text, its quadrilateral
// outline in detection order, and the detector's confidence in [0,1].
type TextBox struct {
	Text       string  `json:"text"`
	Polygon    []Point `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Engine is the pluggable OCR capability: detection plus recognition over one
// image, returning regions in the detector's emission order. A nil Engine on
// the Recognizer means the capability is unavailable.
type Engine interface {
	Name() string
	Detect(ctx context.Context, imagePath string) ([]TextBox, error)
}
