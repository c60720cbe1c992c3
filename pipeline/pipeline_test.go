package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"testing"

	"github.com/song782360037/MTranServer/ocr"
	"github.com/song782360037/MTranServer/render"
	"github.com/song782360037/MTranServer/translate"
)

type scriptedWorker struct {
	lang    string
	script  map[string]ocr.EngineResult
	tracker *recognitionTracker
}

type recognitionTracker struct {
	mu    sync.Mutex
	calls []string
	dims  []image.Point
}

func (w *scriptedWorker) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return ocr.EngineResult{}, err
	}
	w.tracker.mu.Lock()
	w.tracker.calls = append(w.tracker.calls, w.lang)
	w.tracker.dims = append(w.tracker.dims, image.Point{X: cfg.Width, Y: cfg.Height})
	w.tracker.mu.Unlock()
	return w.script[w.lang], nil
}

func (w *scriptedWorker) Close() error { return nil }

func (tr *recognitionTracker) factory(script map[string]ocr.EngineResult) ocr.WorkerFactory {
	return func(nativeLang string) (ocr.Worker, error) {
		return &scriptedWorker{lang: nativeLang, script: script, tracker: tr}, nil
	}
}

type scriptedDetector struct {
	lang   string
	called int
}

func (d *scriptedDetector) Detect(text string) (string, error) {
	d.called++
	return d.lang, nil
}

type recordingEngine struct {
	mu    sync.Mutex
	from  []string
	reply string
}

func (e *recordingEngine) Translate(ctx context.Context, from, to, text string, html bool) (string, error) {
	e.mu.Lock()
	e.from = append(e.from, from)
	e.mu.Unlock()
	return e.reply, nil
}

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func lineResult(text string) ocr.EngineResult {
	return ocr.EngineResult{
		Text:       text,
		Confidence: 90,
		Lines: []ocr.Line{
			{Text: text, Confidence: 90, BBox: ocr.Rect{X0: 10, Y0: 10, X1: 200, Y1: 40}},
		},
	}
}

func newTestPipeline(t *testing.T, tracker *recognitionTracker, script map[string]ocr.EngineResult, det *scriptedDetector, engine *recordingEngine) *Pipeline {
	t.Helper()
	adapter := ocr.NewAdapter(tracker.factory(script))
	t.Cleanup(func() { adapter.Close() })
	return New(Config{
		Recognizer: adapter,
		Detector:   det,
		Batch:      translate.NewBatch(engine, translate.BatchConfig{}),
		Renderer:   render.NewRenderer(),
	})
}

func TestTranslateAutoDetectFastPath(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "en"}
	engine := &recordingEngine{reply: "HOLA"}
	p := newTestPipeline(t, tracker, map[string]ocr.EngineResult{"eng": lineResult("HELLO")}, det, engine)

	res, err := p.Translate(context.Background(), whitePNG(t, 400, 100), ocr.AutoLanguage, "es", render.Options{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	// English detected on the English first pass: no second recognition.
	if len(tracker.calls) != 1 || tracker.calls[0] != "eng" {
		t.Fatalf("recognition passes = %v, want single eng pass", tracker.calls)
	}
	if det.called != 1 {
		t.Fatalf("detector called %d times, want 1", det.called)
	}
	if len(res.Translations) != 1 || res.Translations[0].Translated != "HOLA" {
		t.Fatalf("unexpected translations: %+v", res.Translations)
	}
	if engine.from[0] != "en" {
		t.Fatalf("engine saw source %q, want en", engine.from[0])
	}
}

func TestTranslateAutoDetectMismatchRunsSecondPass(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "ja"}
	engine := &recordingEngine{reply: "HELLO"}
	script := map[string]ocr.EngineResult{
		"eng": lineResult("JAPANESE TEXT"),
		"jpn": lineResult("こんにちは"),
	}
	p := newTestPipeline(t, tracker, script, det, engine)

	res, err := p.Translate(context.Background(), whitePNG(t, 400, 100), ocr.AutoLanguage, "en", render.Options{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(tracker.calls) != 2 || tracker.calls[0] != "eng" || tracker.calls[1] != "jpn" {
		t.Fatalf("recognition passes = %v, want eng then jpn", tracker.calls)
	}
	if res.OCR.Language != "jpn" {
		t.Fatalf("result language = %q, want jpn", res.OCR.Language)
	}
	if res.Translations[0].Original != "こんにちは" {
		t.Fatalf("translations built from the wrong pass: %+v", res.Translations)
	}
	if engine.from[0] != "ja" {
		t.Fatalf("engine saw source %q, want detected ja", engine.from[0])
	}
}

func TestTranslateEmptyTranscriptionSkipsDetection(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "ru"}
	engine := &recordingEngine{reply: "X"}
	p := newTestPipeline(t, tracker, map[string]ocr.EngineResult{"eng": {Text: "  \n "}}, det, engine)

	original := whitePNG(t, 400, 100)
	res, err := p.Translate(context.Background(), original, ocr.AutoLanguage, "es", render.Options{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if det.called != 0 {
		t.Fatalf("detector must not run on an empty transcription")
	}
	if len(tracker.calls) != 1 {
		t.Fatalf("recognition passes = %v, want 1", tracker.calls)
	}
	// No blocks: the original bytes come back untouched.
	if !bytes.Equal(res.Image, original) {
		t.Fatalf("image should pass through unchanged")
	}
	if len(res.Translations) != 0 {
		t.Fatalf("expected no translations, got %+v", res.Translations)
	}
	if len(engine.from) != 0 {
		t.Fatalf("engine must not be called with no blocks")
	}
}

func TestTranslateExplicitLanguageSkipsDetector(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "en"}
	engine := &recordingEngine{reply: "BONJOUR"}
	p := newTestPipeline(t, tracker, map[string]ocr.EngineResult{"fra": lineResult("SALUT")}, det, engine)

	_, err := p.Translate(context.Background(), whitePNG(t, 400, 100), "fr", "en", render.Options{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if det.called != 0 {
		t.Fatalf("detector must not run for an explicit source language")
	}
	if len(tracker.calls) != 1 || tracker.calls[0] != "fra" {
		t.Fatalf("recognition passes = %v, want single fra pass", tracker.calls)
	}
}

func TestTranslateDownsamplesForRecognitionOnly(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "en"}
	engine := &recordingEngine{reply: "HOLA"}
	p := newTestPipeline(t, tracker, map[string]ocr.EngineResult{"eng": lineResult("HELLO")}, det, engine)

	res, err := p.Translate(context.Background(), whitePNG(t, 3000, 1000), "en", "es", render.Options{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	// Recognition runs on the 2000px-wide working copy.
	if tracker.dims[0].X != 2000 || tracker.dims[0].Y != 667 {
		t.Fatalf("recognition saw %v, want 2000x667", tracker.dims[0])
	}
	// Rendering happens on the original, full-size image.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 3000 || cfg.Height != 1000 {
		t.Fatalf("output is %dx%d, want 3000x1000", cfg.Width, cfg.Height)
	}
	if res.Translations[0].Original != "HELLO" || res.Translations[0].Translated != "HOLA" {
		t.Fatalf("unexpected translations: %+v", res.Translations)
	}
}

func TestExtractText(t *testing.T) {
	tracker := &recognitionTracker{}
	det := &scriptedDetector{lang: "en"}
	p := newTestPipeline(t, tracker, map[string]ocr.EngineResult{"eng": lineResult("HELLO")}, det, &recordingEngine{})

	res, err := p.ExtractText(context.Background(), whitePNG(t, 400, 100), "en")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if res.Text != "HELLO" || len(res.Blocks) != 1 {
		t.Fatalf("unexpected recognition: %+v", res)
	}
	if res.Language != "eng" {
		t.Fatalf("language = %q, want eng", res.Language)
	}
}
