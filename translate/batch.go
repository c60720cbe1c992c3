// Package translate drives block translation for the image pipeline: a
// cache-backed pivot client over a pluggable engine, and a batch translator
// that fans calls out under bounded concurrency.
package translate

import (
	"context"
	"math"
	"sync"

	"github.com/song782360037/MTranServer/observability"
	"github.com/song782360037/MTranServer/ocr"
)

// DefaultChunkSize bounds how many translation calls are in flight at once.
// It is a tunable that protects the downstream engine, not an architectural
// constant.
const DefaultChunkSize = 10

// TranslatedBlock is a recognized block plus its translation. Geometry is in
// the original image's coordinate space when a rescale was applied, except
// Baseline, which stays in the recognition image's space.
type TranslatedBlock struct {
	ocr.TextBlock
	TranslatedText string `json:"translatedText"`
}

// BatchConfig configures a Batch.
type BatchConfig struct {
	// ChunkSize is the fan-out width per chunk; zero or less means
	// DefaultChunkSize.
	ChunkSize int
	Logger    observability.Logger
}

// Batch translates sequences of text blocks. Blocks are processed in
// consecutive chunks: all calls within a chunk run concurrently, and a chunk
// must fully resolve before the next one starts.
type Batch struct {
	engine    Engine
	chunkSize int
	log       observability.Logger
}

// NewBatch constructs a batch translator over the given engine (typically a
// *Client).
func NewBatch(engine Engine, cfg BatchConfig) *Batch {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Batch{engine: engine, chunkSize: size, log: log}
}

// Translate translates blocks from one language to another and reprojects
// geometry back to the original image when scale differs from 1. A failed
// block falls back to its source text with unchanged geometry; failure never
// aborts the batch. Output order matches input order.
func (b *Batch) Translate(ctx context.Context, blocks []ocr.TextBlock, from, to string, scale float64) []TranslatedBlock {
	out := make([]TranslatedBlock, len(blocks))
	for start := 0; start < len(blocks); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(blocks) {
			end = len(blocks)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = b.translateBlock(ctx, blocks[i], from, to, scale)
			}(i)
		}
		wg.Wait()
	}
	return out
}

func (b *Batch) translateBlock(ctx context.Context, block ocr.TextBlock, from, to string, scale float64) TranslatedBlock {
	translated, err := b.engine.Translate(ctx, from, to, block.Text, false)
	if err != nil {
		b.log.Warn("block translation failed, keeping original text",
			observability.String("text", block.Text),
			observability.Error("err", err))
		return TranslatedBlock{TextBlock: block, TranslatedText: block.Text}
	}
	if scale != 1 {
		block = rescale(block, scale)
	}
	return TranslatedBlock{TextBlock: block, TranslatedText: translated}
}

// rescale divides the block's geometry by scale, rounding to the nearest
// integer. Text, Confidence and Baseline are carried unchanged.
func rescale(block ocr.TextBlock, scale float64) ocr.TextBlock {
	block.BBox = block.BBox.Scaled(1 / scale)
	block.FontSize = int(math.Round(float64(block.FontSize) / scale))
	block.LineHeight = int(math.Round(float64(block.LineHeight) / scale))
	return block
}
