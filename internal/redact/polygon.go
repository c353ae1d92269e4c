package redact

import (
	"image"
	"image/color"

	"github.com/docukit/recognizer/internal/textrec"
)

// fillPolygon fills a closed polygon with a solid color using even-odd
// scanline filling. Good enough for the axis-aligned and mildly skewed
// quadrilaterals OCR detectors emit.
func fillPolygon(img *image.RGBA, polygon []textrec.Point, c color.Color) {
	if len(polygon) < 3 {
		return
	}

	minY, maxY := polygon[0].Y, polygon[0].Y
	for _, p := range polygon[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	bounds := img.Bounds()
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxY > bounds.Max.Y-1 {
		maxY = bounds.Max.Y - 1
	}

	for y := minY; y <= maxY; y++ {
		xs := scanlineIntersections(polygon, y)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := xs[i], xs[i+1]
			if x0 < bounds.Min.X {
				x0 = bounds.Min.X
			}
			if x1 > bounds.Max.X-1 {
				x1 = bounds.Max.X - 1
			}
			for x := x0; x <= x1; x++ {
				img.Set(x, y, c)
			}
		}
	}
}

// scanlineIntersections returns the sorted x coordinates where the horizontal
// line at y crosses the polygon's edges.
func scanlineIntersections(polygon []textrec.Point, y int) []int {
	var xs []int
	n := len(polygon)
	fy := float64(y) + 0.5

	for i := 0; i < n; i++ {
		a := polygon[i]
		b := polygon[(i+1)%n]

		ay, by := float64(a.Y), float64(b.Y)
		if (ay <= fy) == (by <= fy) {
			continue
		}
		t := (fy - ay) / (by - ay)
		x := float64(a.X) + t*float64(b.X-a.X)
		xs = append(xs, int(x))
	}

	// insertion sort: at most four crossings for a quadrilateral
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
	return xs
}
