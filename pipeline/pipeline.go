// Package pipeline sequences the image translation use cases: preprocess,
// recognize (with optional language auto-detection), translate under bounded
// concurrency, and render the result back onto the original image.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/song782360037/MTranServer/imaging"
	"github.com/song782360037/MTranServer/langdetect"
	"github.com/song782360037/MTranServer/observability"
	"github.com/song782360037/MTranServer/ocr"
	"github.com/song782360037/MTranServer/render"
	"github.com/song782360037/MTranServer/translate"
)

// Translation pairs a recognized line with its translation.
type Translation struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// Result is the outcome of a Translate call. Translations is parallel to
// OCR.Blocks, in the same order.
type Result struct {
	Image        []byte        `json:"image"`
	OCR          ocr.Result    `json:"ocrResult"`
	Translations []Translation `json:"translations"`
}

// Config wires a Pipeline's collaborators.
type Config struct {
	Recognizer *ocr.Adapter
	Detector   langdetect.Detector
	Batch      *translate.Batch
	Renderer   *render.Renderer
	Logger     observability.Logger
	Tracer     observability.Tracer
}

// Pipeline orchestrates the translate and OCR-only use cases. Data flows
// forward only; collaborators never call back into the pipeline.
type Pipeline struct {
	recognizer *ocr.Adapter
	detector   langdetect.Detector
	batch      *translate.Batch
	renderer   *render.Renderer
	log        observability.Logger
	tracer     observability.Tracer
}

// New constructs a Pipeline from the given configuration.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Pipeline{
		recognizer: cfg.Recognizer,
		detector:   cfg.Detector,
		batch:      cfg.Batch,
		renderer:   cfg.Renderer,
		log:        log,
		tracer:     tracer,
	}
}

// Translate recognizes text in the image, translates it from one language to
// another and renders the translations over the original image. A source
// language of "auto" triggers detection. Images with no recognized blocks are
// returned untouched with an empty translation list.
func (p *Pipeline) Translate(ctx context.Context, image []byte, from, to string, opts render.Options) (*Result, error) {
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.Translate")
	defer span.Finish()
	span.SetTag("from", from)
	span.SetTag("to", to)

	processed, scale, err := imaging.Normalize(image)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	recognized, effectiveFrom, err := p.recognize(ctx, processed, from)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	p.log.Info("recognition complete",
		observability.String("language", recognized.Language),
		observability.Int("blocks", len(recognized.Blocks)),
		observability.Float64("scale", scale))

	if len(recognized.Blocks) == 0 {
		return &Result{Image: image, OCR: recognized, Translations: []Translation{}}, nil
	}

	blocks := p.batch.Translate(ctx, recognized.Blocks, effectiveFrom, to, scale)
	translations := make([]Translation, len(blocks))
	for i, block := range blocks {
		translations[i] = Translation{
			Original:   recognized.Blocks[i].Text,
			Translated: block.TranslatedText,
		}
	}

	rendered, err := p.renderer.Render(image, blocks, opts)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("render translations: %w", err)
	}
	return &Result{Image: rendered, OCR: recognized, Translations: translations}, nil
}

// ExtractText recognizes text in the image without translating or rendering.
// A language of "auto" triggers detection.
func (p *Pipeline) ExtractText(ctx context.Context, image []byte, lang string) (ocr.Result, error) {
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.ExtractText")
	defer span.Finish()

	processed, _, err := imaging.Normalize(image)
	if err != nil {
		span.SetError(err)
		return ocr.Result{}, err
	}
	recognized, _, err := p.recognize(ctx, processed, lang)
	if err != nil {
		span.SetError(err)
	}
	return recognized, err
}

// recognize resolves the source language and returns the OCR result together
// with the effective user-facing source code. The auto-detect flow runs a
// first pass with the default language, detects on its transcription, and
// reuses that pass whenever the detected language maps to the same native
// code; only a genuine mismatch costs a second recognition.
func (p *Pipeline) recognize(ctx context.Context, processed []byte, from string) (ocr.Result, string, error) {
	if from != ocr.AutoLanguage {
		res, err := p.recognizer.Recognize(ctx, processed, from)
		return res, from, err
	}

	first, err := p.recognizer.Recognize(ctx, processed, ocr.DefaultLanguage)
	if err != nil {
		return ocr.Result{}, "", err
	}
	if strings.TrimSpace(first.Text) == "" {
		return first, ocr.DefaultLanguage, nil
	}

	detected, err := p.detector.Detect(first.Text)
	if err != nil {
		return ocr.Result{}, "", fmt.Errorf("detect language: %w", err)
	}
	if ocr.NativeCode(detected) == ocr.NativeCode(ocr.DefaultLanguage) {
		p.log.Debug("auto-detect fast path, reusing first recognition pass",
			observability.String("detected", detected))
		return first, detected, nil
	}

	second, err := p.recognizer.Recognize(ctx, processed, detected)
	if err != nil {
		return ocr.Result{}, "", err
	}
	return second, detected, nil
}
