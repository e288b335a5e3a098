// Package tensor holds the dense float32 array exchanged between the image
// codec and the model.
package tensor

import (
	"errors"
	"fmt"
)

var ErrShape = errors.New("invalid tensor shape")

// Tensor is a row-major float32 array. Image tensors use NHWC layout.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int64) (*Tensor, error) {
	n, err := Size(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{Shape: append([]int64(nil), shape...), Data: make([]float32, n)}, nil
}

// FromData wraps data without copying. len(data) must match shape.
func FromData(data []float32, shape ...int64) (*Tensor, error) {
	n, err := Size(shape)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != n {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	return &Tensor{Shape: append([]int64(nil), shape...), Data: data}, nil
}

// Size returns the number of elements in shape. Every dimension must be
// positive.
func Size(shape []int64) (int64, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrShape)
	}
	n := int64(1)
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// ImageDims validates an NHWC image tensor with batch 1 and 3 channels and
// returns its height and width.
func (t *Tensor) ImageDims() (height, width int, err error) {
	if t.Rank() != 4 || t.Shape[0] != 1 || t.Shape[3] != 3 {
		return 0, 0, fmt.Errorf("%w: want (1,H,W,3), got %v", ErrShape, t.Shape)
	}
	if t.Shape[1] <= 0 || t.Shape[2] <= 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrShape, t.Shape)
	}
	if int64(len(t.Data)) != t.Shape[1]*t.Shape[2]*3 {
		return 0, 0, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(t.Data), t.Shape)
	}
	return int(t.Shape[1]), int(t.Shape[2]), nil
}
