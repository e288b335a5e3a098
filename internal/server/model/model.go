// Package model owns the lifecycle of the single generator instance served by
// the process: locating the artifact, loading it once, reporting readiness and
// handing out access to it.
package model

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/platerecon/internal/server/tensor"
)

var ErrNoArtifact = errors.New("no model artifact found")

// Model is a loaded image-to-image generator.
type Model interface {
	// Predict runs one synchronous forward pass.
	Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error)
	// InputShape and OutputShape are the declared shapes. Dimensions not
	// fixed by the artifact are reported as -1.
	InputShape() []int64
	OutputShape() []int64
	Close() error
}

// Loader deserializes an artifact into a Model.
type Loader interface {
	Load(ctx context.Context, path string) (Model, error)
}

// Status describes the manager state for diagnostics.
type Status struct {
	Loaded      bool    `json:"loaded"`
	ModelPath   string  `json:"model_path,omitempty"`
	InputShape  []int64 `json:"input_shape,omitempty"`
	OutputShape []int64 `json:"output_shape,omitempty"`
}
