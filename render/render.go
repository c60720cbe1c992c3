// Package render composites translated text over the original image: an
// opaque patch occludes each recognized line and the translation is drawn in
// its place at a size fitted to the block.
package render

import (
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/song782360037/MTranServer/imaging"
	"github.com/song782360037/MTranServer/observability"
	"github.com/song782360037/MTranServer/translate"
)

const (
	// charWidthRatio is the fixed average-glyph-width estimate used instead
	// of real font metrics. Fitting stays deliberately metrics-free so the
	// layout is reproducible across font families.
	charWidthRatio = 0.6
	// maxHeightRatio caps the font size relative to the block height.
	maxHeightRatio = 0.8
	// baselineRatio places the text baseline within the block.
	baselineRatio = 0.75
	// minFontSize is the smallest size drawn; below it, text is truncated.
	minFontSize = 8

	defaultPadding = 4

	ellipsis = "…"
)

// Font families available to render options.
const (
	FamilySansSerif = "sans-serif"
	FamilyBold      = "bold"
	FamilyMonospace = "monospace"
)

// Options configures a rendering pass. The zero value uses a white
// background, black text, the sans-serif family and a small left padding.
type Options struct {
	Background color.Color
	TextColor  color.Color
	FontFamily string
	Padding    int
}

func (o Options) withDefaults() Options {
	if o.Background == nil {
		o.Background = color.White
	}
	if o.TextColor == nil {
		o.TextColor = color.Black
	}
	if o.FontFamily == "" {
		o.FontFamily = FamilySansSerif
	}
	if o.Padding <= 0 {
		o.Padding = defaultPadding
	}
	return o
}

// Renderer draws translated blocks onto images.
type Renderer struct {
	log observability.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the renderer's logger.
func WithLogger(log observability.Logger) RendererOption {
	return func(r *Renderer) { r.log = log }
}

// NewRenderer constructs a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render composites every block with non-empty translated text onto the
// original, unscaled image and re-encodes the result as PNG regardless of
// the input format. Blocks must already carry original-image geometry.
func (r *Renderer) Render(original []byte, blocks []translate.TranslatedBlock, opts Options) ([]byte, error) {
	img, err := imaging.Decode(original)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	dc := gg.NewContextForImage(img)
	fnt := fontForFamily(opts.FontFamily)
	faces := map[int]font.Face{}
	drawn := 0
	for _, block := range blocks {
		text := strings.TrimSpace(block.TranslatedText)
		if text == "" {
			continue
		}
		blockWidth := block.BBox.Width()
		if blockWidth < 1 {
			blockWidth = 1
		}
		blockHeight := block.BBox.Height()
		if blockHeight < 1 {
			blockHeight = 1
		}
		fitted, size := fitText(text, block.FontSize, blockWidth, blockHeight)

		dc.SetColor(opts.Background)
		dc.DrawRectangle(float64(block.BBox.X0), float64(block.BBox.Y0), float64(blockWidth), float64(blockHeight))
		dc.Fill()

		face, ok := faces[size]
		if !ok {
			face = truetype.NewFace(fnt, &truetype.Options{Size: float64(size)})
			faces[size] = face
		}
		dc.SetFontFace(face)
		dc.SetColor(opts.TextColor)
		dc.DrawString(fitted,
			float64(block.BBox.X0+opts.Padding),
			float64(block.BBox.Y0)+baselineRatio*float64(blockHeight))
		drawn++
	}
	r.log.Debug("rendered translated blocks", observability.Int("drawn", drawn))

	return imaging.EncodePNG(dc.Image())
}

// fitText returns the text and font size to draw for a block of the given
// pixel dimensions. The size shrinks proportionally when the estimated width
// exceeds the block, is capped relative to the block height, and never drops
// below minFontSize; once at the floor, text that still cannot fit is
// truncated with a trailing ellipsis.
func fitText(text string, fontSize, blockWidth, blockHeight int) (string, int) {
	runes := []rune(text)

	estimated := float64(len(runes)) * float64(fontSize) * charWidthRatio
	if estimated > float64(blockWidth) {
		fontSize = int(float64(blockWidth) / estimated * float64(fontSize))
	}
	if maxSize := int(maxHeightRatio * float64(blockHeight)); fontSize > maxSize {
		fontSize = maxSize
	}
	if fontSize < minFontSize {
		fontSize = minFontSize
	}

	maxChars := int(float64(blockWidth) / (float64(fontSize) * charWidthRatio))
	if len(runes) > maxChars {
		if maxChars <= 1 {
			return ellipsis, fontSize
		}
		// One character slot is reserved for the ellipsis.
		return string(runes[:maxChars-1]) + ellipsis, fontSize
	}
	return text, fontSize
}
