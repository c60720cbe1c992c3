// Package tesseract backs the ocr package with gosseract workers. Each worker
// pins one long-lived gosseract client to a single traineddata language, which
// is what makes the adapter's same-language fast path worthwhile: spawning a
// client and loading traineddata dominates recognition time for small images.
package tesseract

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/song782360037/MTranServer/ocr"
)

// Worker wraps a gosseract client pinned to one language.
type Worker struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New constructs a worker for the given engine-native language code.
func New(nativeLang string) (*Worker, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(nativeLang); err != nil {
		c.Close()
		return nil, fmt.Errorf("set language %q: %w", nativeLang, err)
	}
	return &Worker{client: c}, nil
}

// Factory adapts New to the ocr.WorkerFactory signature.
func Factory(nativeLang string) (ocr.Worker, error) {
	return New(nativeLang)
}

// Recognize runs Tesseract over the encoded image and reports line-level
// geometry. Confidences are on Tesseract's [0,100] scale; the adapter
// normalizes them. Tesseract does not report baselines through this API, so
// lines carry none and the adapter falls back to the box bottom edge.
func (w *Worker) Recognize(ctx context.Context, image []byte) (ocr.EngineResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-ctx.Done():
		return ocr.EngineResult{}, ctx.Err()
	default:
	}

	if err := w.client.SetImageFromBytes(image); err != nil {
		return ocr.EngineResult{}, fmt.Errorf("set image: %w", err)
	}
	text, err := w.client.Text()
	if err != nil {
		return ocr.EngineResult{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := w.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return ocr.EngineResult{}, fmt.Errorf("line boxes: %w", err)
	}

	lines := make([]ocr.Line, 0, len(boxes))
	var confSum float64
	for _, b := range boxes {
		lines = append(lines, ocr.Line{
			Text:       b.Word,
			Confidence: b.Confidence,
			BBox: ocr.Rect{
				X0: b.Box.Min.X,
				Y0: b.Box.Min.Y,
				X1: b.Box.Max.X,
				Y1: b.Box.Max.Y,
			},
		})
		confSum += b.Confidence
	}
	var overall float64
	if len(lines) > 0 {
		overall = confSum / float64(len(lines))
	}
	return ocr.EngineResult{Text: text, Lines: lines, Confidence: overall}, nil
}

// Close releases the underlying gosseract client.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.Close()
}
