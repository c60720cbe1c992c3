// Command mtranserver exposes the image translation pipeline over HTTP.
//
//	POST /translate/image?from=auto&to=zh   raw image body -> JSON result
//	POST /ocr?lang=auto                     raw image body -> JSON OCR result
//	GET  /healthz
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/song782360037/MTranServer/langdetect"
	"github.com/song782360037/MTranServer/observability"
	"github.com/song782360037/MTranServer/ocr"
	"github.com/song782360037/MTranServer/ocr/tesseract"
	"github.com/song782360037/MTranServer/pipeline"
	"github.com/song782360037/MTranServer/render"
	"github.com/song782360037/MTranServer/translate"
)

const maxImageBytes = 32 << 20

type config struct {
	addr      string
	engineURL string
	cacheSize int
	chunkSize int
}

func loadConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.addr, "addr", envOr("MTRAN_ADDR", ":8989"), "listen address")
	flag.StringVar(&cfg.engineURL, "engine-url", envOr("MTRAN_ENGINE_URL", "http://127.0.0.1:8990"), "translation engine base URL")
	flag.IntVar(&cfg.cacheSize, "cache-size", 1024, "translation cache capacity (0 disables)")
	flag.IntVar(&cfg.chunkSize, "chunk-size", translate.DefaultChunkSize, "concurrent translation calls per chunk")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type server struct {
	pipe *pipeline.Pipeline
	log  observability.Logger
}

func main() {
	cfg := loadConfig()
	log := observability.NewStdLogger()

	engine := translate.NewRemoteEngine(cfg.engineURL, translate.WithRemoteLogger(log))
	client := translate.NewClient(engine, cfg.cacheSize, translate.WithClientLogger(log))
	pipe := pipeline.New(pipeline.Config{
		Recognizer: ocr.NewAdapter(tesseract.Factory, ocr.WithLogger(log)),
		Detector:   langdetect.NewLingua(),
		Batch:      translate.NewBatch(client, translate.BatchConfig{ChunkSize: cfg.chunkSize, Logger: log}),
		Renderer:   render.NewRenderer(render.WithLogger(log)),
		Logger:     log,
	})

	s := &server{pipe: pipe, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate/image", s.handleTranslate)
	mux.HandleFunc("POST /ocr", s.handleOCR)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Info("listening", observability.String("addr", cfg.addr))
	if err := http.ListenAndServe(cfg.addr, mux); err != nil {
		log.Error("server stopped", observability.Error("err", err))
		os.Exit(1)
	}
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	from := queryOr(r, "from", ocr.AutoLanguage)
	to := r.URL.Query().Get("to")
	if to == "" {
		httpError(w, http.StatusBadRequest, errors.New("missing required query parameter: to"))
		return
	}
	opts := render.Options{FontFamily: r.URL.Query().Get("font")}

	result, err := s.pipe.Translate(r.Context(), image, from, to, opts)
	if err != nil {
		s.log.Error("translate request failed", observability.Error("err", err))
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, result)
}

func (s *server) handleOCR(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	lang := queryOr(r, "lang", ocr.AutoLanguage)

	result, err := s.pipe.ExtractText(r.Context(), image, lang)
	if err != nil {
		s.log.Error("ocr request failed", observability.Error("err", err))
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, result)
}

func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("empty image body")
	}
	return body, nil
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
