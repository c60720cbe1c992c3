// Package imaging handles the pipeline's raster preprocessing: decoding
// common formats and downsampling oversized inputs before recognition.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxDimension is the longest side allowed into recognition; larger images
// are downsampled to it.
const MaxDimension = 2000

// Normalize downsamples images whose longest side exceeds MaxDimension and
// reports the scale factor applied. Images at or below the limit pass through
// with the identical buffer and scale 1. Resized output is PNG-encoded.
func Normalize(buf []byte) ([]byte, float64, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, 0, fmt.Errorf("read image metadata: %w", err)
	}
	longest := cfg.Width
	if cfg.Height > longest {
		longest = cfg.Height
	}
	if longest <= MaxDimension {
		return buf, 1, nil
	}

	scale := float64(MaxDimension) / float64(longest)
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}
	w := int(math.Round(float64(cfg.Width) * scale))
	h := int(math.Round(float64(cfg.Height) * scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out, err := EncodePNG(dst)
	if err != nil {
		return nil, 0, err
	}
	return out, scale, nil
}

// Decode reads an image from an encoded buffer.
func Decode(buf []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
