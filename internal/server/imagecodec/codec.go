// Package imagecodec converts between encoded images and the normalized
// NHWC tensors the generator works with. All functions are pure and safe for
// concurrent use.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/platerecon/internal/server/tensor"

	// Registers WebP with image.Decode; imaging already pulls in JPEG, PNG,
	// GIF, BMP and TIFF.
	_ "golang.org/x/image/webp"
)

const channels = 3

// DefaultMaxPixels caps the declared size of an image before it is decoded.
// Same limit as PIL's MAX_IMAGE_PIXELS.
const DefaultMaxPixels int64 = 178_956_970

var ErrUndecodable = errors.New("undecodable image")

// DecodeAndPreprocess is DecodeAndPreprocessLimit with DefaultMaxPixels.
func DecodeAndPreprocess(data []byte, height, width int) (*tensor.Tensor, error) {
	return DecodeAndPreprocessLimit(data, height, width, DefaultMaxPixels)
}

// DecodeAndPreprocessLimit decodes data, forces 3-channel RGB (alpha is
// dropped, gray is expanded), resizes to exactly height x width with Lanczos
// resampling and scales each value v to v/127.5-1. The result has shape
// (1,height,width,3).
//
// The header is read first; images declaring more than maxPixels pixels are
// rejected with ErrUndecodable before any pixel buffer is allocated.
// maxPixels <= 0 means DefaultMaxPixels.
func DecodeAndPreprocessLimit(data []byte, height, width int, maxPixels int64) (*tensor.Tensor, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", tensor.ErrShape, height, width)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUndecodable, cfg.Width, cfg.Height, maxPixels)
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	rgb := imaging.Clone(src)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}

	resized := imaging.Resize(rgb, width, height, imaging.Lanczos)

	t, err := tensor.New(1, int64(height), int64(width), channels)
	if err != nil {
		return nil, err
	}

	i := 0
	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			t.Data[i] = normalize(px[0])
			t.Data[i+1] = normalize(px[1])
			t.Data[i+2] = normalize(px[2])
			i += channels
		}
	}

	return t, nil
}

// PostprocessAndEncode maps a (1,H,W,3) tensor back to 8-bit RGB with
// (v+1)*127.5, clamps, rounds and encodes the image as PNG. Out-of-range and
// NaN values never cause an error.
func PostprocessAndEncode(t *tensor.Tensor) ([]byte, error) {
	height, width, err := t.ImageDims()
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	i := 0
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+4]
			px[0] = denormalize(t.Data[i])
			px[1] = denormalize(t.Data[i+1])
			px[2] = denormalize(t.Data[i+2])
			px[3] = 0xff
			i += channels
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func normalize(v uint8) float32 {
	return float32(v)/127.5 - 1
}

func denormalize(v float32) uint8 {
	f := (float64(v) + 1) * 127.5
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(0, math.Min(255, f))
	return uint8(math.Round(f))
}
