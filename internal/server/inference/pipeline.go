// Package inference turns uploaded image bytes into a reconstructed PNG using
// the loaded generator.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/server/imagecodec"
	"github.com/dmitrijs2005/platerecon/internal/server/model"
)

const (
	DefaultHeight = 128
	DefaultWidth  = 256
)

// ModelSource is the part of model.Manager the pipeline needs.
type ModelSource interface {
	IsLoaded() bool
	Get() (model.Model, error)
}

type Pipeline struct {
	models ModelSource
	// Fallback size used when the model leaves height or width dynamic.
	height, width int
	maxPixels     int64
}

func NewPipeline(models ModelSource, height, width int) *Pipeline {
	if height <= 0 {
		height = DefaultHeight
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return &Pipeline{models: models, height: height, width: width, maxPixels: imagecodec.DefaultMaxPixels}
}

// WithMaxPixels sets the largest accepted upload in pixels. n <= 0 keeps the
// current limit.
func (p *Pipeline) WithMaxPixels(n int64) *Pipeline {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// Infer runs decode, preprocess, one forward pass, postprocess and encode.
// It returns common.ErrModelNotReady when no model is loaded and an error
// wrapping common.ErrInferenceFailed for anything else.
func (p *Pipeline) Infer(ctx context.Context, raw []byte) ([]byte, error) {
	if !p.models.IsLoaded() {
		return nil, common.ErrModelNotReady
	}

	mdl, err := p.models.Get()
	if err != nil {
		return nil, err
	}

	height, width := p.targetSize(mdl.InputShape())

	in, err := imagecodec.DecodeAndPreprocessLimit(raw, height, width, p.maxPixels)
	if err != nil {
		return nil, failed("preprocess", err)
	}

	out, err := mdl.Predict(ctx, in)
	if err != nil {
		if errors.Is(err, common.ErrModelNotReady) {
			return nil, err
		}
		return nil, failed("predict", err)
	}

	png, err := imagecodec.PostprocessAndEncode(out)
	if err != nil {
		return nil, failed("postprocess", err)
	}

	return png, nil
}

// targetSize reads H and W from a (N,H,W,C) input shape.
func (p *Pipeline) targetSize(shape []int64) (int, int) {
	height, width := p.height, p.width
	if len(shape) == 4 {
		if shape[1] > 0 {
			height = int(shape[1])
		}
		if shape[2] > 0 {
			width = int(shape[2])
		}
	}
	return height, width
}

func failed(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrInferenceFailed, stage, err)
}
