// Package geometry converts model-space coordinates into pixel boxes and
// measures how much boxes overlap.
package geometry

import (
	"github.com/menta2k/nutrivision/pkg/types"
)

// ModelScale is the extent of the model's normalized coordinate space
const ModelScale = 1000.0

// DefaultMinBoxSize is the smallest accepted box extent in pixels
const DefaultMinBoxSize = 10

// Offset is a fixed pixel shift added after scaling. It compensates for a
// bias observed in one model's predictions and should be tuned per model.
type Offset struct {
	X int
	Y int
}

// DefaultOffset is the correction measured for the default Gemini prompts
var DefaultOffset = Offset{X: 70, Y: 20}

// Normalize converts 0-1000 model coordinates to a pixel box for an image of
// imgW x imgH, applying the offset and clamping the result into the image.
func Normalize(yMin, xMin, yMax, xMax float64, imgW, imgH int, offset Offset) types.PixelBox {
	yMin = clamp(yMin, 0, ModelScale)
	xMin = clamp(xMin, 0, ModelScale)
	yMax = clamp(yMax, 0, ModelScale)
	xMax = clamp(xMax, 0, ModelScale)

	x1 := int(xMin/ModelScale*float64(imgW)) + offset.X
	y1 := int(yMin/ModelScale*float64(imgH)) + offset.Y
	x2 := int(xMax/ModelScale*float64(imgW)) + offset.X
	y2 := int(yMax/ModelScale*float64(imgH)) + offset.Y

	return types.PixelBox{
		X1: clampInt(x1, 0, imgW-1),
		Y1: clampInt(y1, 0, imgH-1),
		X2: clampInt(x2, 0, imgW),
		Y2: clampInt(y2, 0, imgH),
	}
}

// NormalizeRaw is Normalize applied to a parsed detection
func NormalizeRaw(raw types.RawDetection, imgW, imgH int, offset Offset) types.PixelBox {
	return Normalize(raw.YMin, raw.XMin, raw.YMax, raw.XMax, imgW, imgH, offset)
}

// ModelBox returns the raw coordinates clamped to the model grid and
// truncated, ordered ymin, xmin, ymax, xmax
func ModelBox(raw types.RawDetection) [4]int {
	return [4]int{
		int(clamp(raw.YMin, 0, ModelScale)),
		int(clamp(raw.XMin, 0, ModelScale)),
		int(clamp(raw.YMax, 0, ModelScale)),
		int(clamp(raw.XMax, 0, ModelScale)),
	}
}

// IsValid reports whether both extents of the box reach minSize
func IsValid(box types.PixelBox, minSize int) bool {
	return box.Width() >= minSize && box.Height() >= minSize
}

// Area returns width * height, or 0 for inverted boxes
func Area(box types.PixelBox) int {
	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection over union of two boxes
func IoU(a, b types.PixelBox) float64 {
	iw := minInt(a.X2, b.X2) - maxInt(a.X1, b.X1)
	ih := minInt(a.Y2, b.Y2) - maxInt(a.Y1, b.Y1)
	intersection := 0
	if iw > 0 && ih > 0 {
		intersection = iw * ih
	}

	union := Area(a) + Area(b) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
