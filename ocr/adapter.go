package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/song782360037/MTranServer/observability"
)

// ErrNoWorker reports a recognition attempt without an initialized worker.
// Reaching it indicates a logic error: Recognize always establishes a worker
// before running.
var ErrNoWorker = errors.New("ocr: no recognition worker initialized")

// Adapter owns the single process-wide recognition worker. Only one worker
// exists at a time; requests for a different language tear the current one
// down and build a new one, and callers requesting the active language hit a
// no-op fast path. Initialization is single-flight: waiters re-check the slot
// after the in-flight attempt settles.
type Adapter struct {
	factory WorkerFactory
	log     observability.Logger

	// opMu gives the caller inside Recognize exclusive use of the worker.
	opMu sync.Mutex

	mu      sync.Mutex
	worker  Worker
	lang    string        // native code the current worker was built for
	pending chan struct{} // non-nil while an initialization is in flight
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter's logger.
func WithLogger(log observability.Logger) AdapterOption {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter constructs an Adapter around the given worker factory.
func NewAdapter(factory WorkerFactory, opts ...AdapterOption) *Adapter {
	a := &Adapter{factory: factory, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ensureReady makes the slot's worker match the requested language and
// returns the native code it runs with.
func (a *Adapter) ensureReady(ctx context.Context, lang string) (string, error) {
	native := NativeCode(lang)
	for {
		a.mu.Lock()
		if a.worker != nil && a.lang == native {
			a.mu.Unlock()
			return native, nil
		}
		if a.pending == nil {
			break
		}
		ch := a.pending
		a.mu.Unlock()
		select {
		case <-ch:
			// Re-check: the settled initialization may have been for this
			// language already.
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Sole initializer from here; a.mu is held.
	ch := make(chan struct{})
	a.pending = ch
	old := a.worker
	a.worker = nil
	a.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			a.log.Warn("closing previous recognition worker", observability.Error("err", err))
		}
	}
	a.log.Info("initializing recognition worker", observability.String("language", native))
	w, err := a.factory(native)

	a.mu.Lock()
	a.pending = nil
	close(ch)
	if err != nil {
		a.mu.Unlock()
		return "", fmt.Errorf("initialize recognition worker for %s: %w", native, err)
	}
	a.worker = w
	a.lang = native
	a.mu.Unlock()
	return native, nil
}

// Recognize runs recognition on the image with a worker for the requested
// language and interprets the engine output. The returned Result carries the
// native code actually used.
func (a *Adapter) Recognize(ctx context.Context, image []byte, lang string) (Result, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	native, err := a.ensureReady(ctx, lang)
	if err != nil {
		return Result{}, err
	}

	a.mu.Lock()
	w := a.worker
	a.mu.Unlock()
	if w == nil {
		return Result{}, ErrNoWorker
	}

	raw, err := w.Recognize(ctx, image)
	if err != nil {
		return Result{}, fmt.Errorf("recognize (%s): %w", native, err)
	}
	return interpret(raw, native), nil
}

// Close tears down the current worker, if any.
func (a *Adapter) Close() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.mu.Lock()
	w := a.worker
	a.worker = nil
	a.lang = ""
	a.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// interpret maps raw engine output into a Result: lines that are empty after
// trimming are discarded, confidences are normalized from [0,100] to [0,1],
// the font size is estimated from the line height, and a missing baseline
// falls back to the bounding box's bottom edge.
func interpret(raw EngineResult, native string) Result {
	blocks := make([]TextBlock, 0, len(raw.Lines))
	for _, ln := range raw.Lines {
		text := strings.TrimSpace(ln.Text)
		if text == "" {
			continue
		}
		lineHeight := ln.BBox.Height()
		fontSize := int(math.Round(float64(lineHeight) * 0.75))
		if fontSize < 12 {
			fontSize = 12
		}
		baseline := Rect{X0: ln.BBox.X0, Y0: ln.BBox.Y1, X1: ln.BBox.X1, Y1: ln.BBox.Y1}
		if ln.Baseline != nil {
			baseline = *ln.Baseline
		}
		blocks = append(blocks, TextBlock{
			Text:       text,
			Confidence: ln.Confidence / 100,
			BBox:       ln.BBox,
			Baseline:   baseline,
			FontSize:   fontSize,
			LineHeight: lineHeight,
		})
	}
	return Result{
		Text:       strings.TrimSpace(raw.Text),
		Blocks:     blocks,
		Confidence: raw.Confidence / 100,
		Language:   native,
	}
}
