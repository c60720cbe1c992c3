package ocr

import (
	"context"
	"math"
)

// Rect is an integer pixel rectangle with the origin in the upper-left corner
// of the image.
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Scaled returns the rectangle with every coordinate multiplied by factor and
// rounded to the nearest integer.
func (r Rect) Scaled(factor float64) Rect {
	return Rect{
		X0: int(math.Round(float64(r.X0) * factor)),
		Y0: int(math.Round(float64(r.Y0) * factor)),
		X1: int(math.Round(float64(r.X1) * factor)),
		Y1: int(math.Round(float64(r.Y1) * factor)),
	}
}

// TextBlock is one recognized line of text in the coordinate space of the
// image that was fed to recognition.
type TextBlock struct {
	// Text is the trimmed line content; extraction discards lines that are
	// empty after trimming.
	Text string `json:"text"`
	// Confidence is the recognition confidence normalized to [0,1].
	Confidence float64 `json:"confidence"`
	// BBox is the line's bounding rectangle.
	BBox Rect `json:"bbox"`
	// Baseline is the text baseline; when the engine supplies none it falls
	// back to the bottom edge of BBox.
	Baseline Rect `json:"baseline"`
	// FontSize is estimated from the line height and never drops below 12.
	FontSize int `json:"fontSize"`
	// LineHeight is the height of BBox.
	LineHeight int `json:"lineHeight"`
}

// Result is the interpreted output of one recognition pass.
type Result struct {
	// Text is the full trimmed transcription.
	Text string `json:"text"`
	// Blocks holds the per-line structure.
	Blocks []TextBlock `json:"blocks"`
	// Confidence is the overall recognition confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Language is the engine-native code the recognition actually ran with,
	// which may differ from the caller's requested code.
	Language string `json:"language"`
}

// Line is a recognized line as reported by an engine, on the engine's native
// [0,100] confidence scale.
type Line struct {
	Text       string
	Confidence float64
	BBox       Rect
	Baseline   *Rect
}

// EngineResult is the raw engine output before interpretation.
type EngineResult struct {
	Text       string
	Lines      []Line
	Confidence float64
}

// Worker is a recognition engine instance initialized for a single language.
type Worker interface {
	Recognize(ctx context.Context, image []byte) (EngineResult, error)
	Close() error
}

// WorkerFactory constructs a worker for an engine-native language code.
// Construction is assumed expensive; the Adapter avoids redundant calls.
type WorkerFactory func(nativeLang string) (Worker, error)
