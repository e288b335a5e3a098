package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/platerecon/internal/server/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

var errUnexpectedOutput = errors.New("unexpected model output")

// ONNXLoader loads generators exported to ONNX and runs them with ONNX
// Runtime. The runtime environment is process-wide; it is initialized by the
// first Load and torn down by Close.
type ONNXLoader struct {
	// LibraryPath points at the onnxruntime shared library. Empty means the
	// platform default lookup.
	LibraryPath string

	once    sync.Once
	initErr error
}

func (l *ONNXLoader) init() error {
	l.once.Do(func() {
		if l.LibraryPath != "" {
			ort.SetSharedLibraryPath(l.LibraryPath)
		}
		if !ort.IsInitialized() {
			l.initErr = ort.InitializeEnvironment()
		}
	})
	return l.initErr
}

func (l *ONNXLoader) Load(ctx context.Context, path string) (Model, error) {
	if err := l.init(); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read model io: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("want one input and one output, got %d and %d", len(inputs), len(outputs))
	}
	if inputs[0].DataType != ort.TensorElementDataTypeFloat || outputs[0].DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("want float32 tensors, got %v and %v", inputs[0].DataType, outputs[0].DataType)
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &onnxModel{
		session:     session,
		inputShape:  declaredShape(inputs[0].Dimensions),
		outputShape: declaredShape(outputs[0].Dimensions),
	}, nil
}

// Close destroys the runtime environment. Models must be closed first.
func (l *ONNXLoader) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// declaredShape normalizes symbolic dimensions to -1.
func declaredShape(dims ort.Shape) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = -1
		}
		out[i] = d
	}
	return out
}

type onnxModel struct {
	session     *ort.DynamicAdvancedSession
	inputShape  []int64
	outputShape []int64
}

func (m *onnxModel) InputShape() []int64  { return append([]int64(nil), m.inputShape...) }
func (m *onnxModel) OutputShape() []int64 { return append([]int64(nil), m.outputShape...) }

func (m *onnxModel) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	input, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	// A nil output is allocated by the runtime with the shape it computes.
	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnexpectedOutput, outputs[0])
	}

	data := append([]float32(nil), out.GetData()...)
	return tensor.FromData(data, out.GetShape()...)
}

func (m *onnxModel) Close() error {
	return m.session.Destroy()
}
