package model

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/tensor"
)

// Config controls where the artifact is looked up and how access to the
// loaded model is shared.
type Config struct {
	Dir     string
	Pattern string
	// Serialize makes Predict calls on handles returned by Get run one at a
	// time.
	Serialize bool
}

// Manager holds at most one Model for the life of the process. The first
// successful Load wins; later calls are no-ops. All methods are safe for
// concurrent use.
type Manager struct {
	cfg    Config
	loader Loader
	logger logging.Logger

	loadMu sync.Mutex

	mu     sync.RWMutex
	model  Model
	path   string
	handle Model

	// Predict holds useMu for reading; Close takes it for writing so the
	// model is never released under a running call.
	useMu    sync.RWMutex
	released bool

	ready chan struct{}
}

func NewManager(cfg Config, loader Loader, l logging.Logger) *Manager {
	if cfg.Pattern == "" {
		cfg.Pattern = "*.onnx"
	}
	return &Manager{
		cfg:    cfg,
		loader: loader,
		logger: l.With("module", "model_manager"),
		ready:  make(chan struct{}),
	}
}

// Load locates the artifact in the configured directory and deserializes it.
// When several files match, the first in lexical order is used. Concurrent
// callers are serialized and at most one of them performs I/O.
func (m *Manager) Load(ctx context.Context) error {
	if m.IsLoaded() {
		return nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if m.IsLoaded() {
		return nil
	}

	path, err := m.findArtifact(ctx)
	if err != nil {
		m.logger.Error(ctx, "model artifact lookup failed", "dir", m.cfg.Dir, "pattern", m.cfg.Pattern, "error", err)
		return err
	}

	m.logger.Info(ctx, "loading model", "path", path)

	mdl, err := m.loader.Load(ctx, path)
	if err != nil {
		m.logger.Error(ctx, "model load failed", "path", path, "error", err)
		return fmt.Errorf("load model %s: %w", path, err)
	}

	var handle Model = mdl
	if m.cfg.Serialize {
		handle = &serialized{Model: mdl}
	}
	handle = &guarded{Model: handle, m: m}

	m.mu.Lock()
	m.model = mdl
	m.handle = handle
	m.path = path
	m.mu.Unlock()
	close(m.ready)

	m.logger.Info(ctx, "model loaded", "path", path,
		"input_shape", mdl.InputShape(), "output_shape", mdl.OutputShape())
	return nil
}

func (m *Manager) findArtifact(ctx context.Context) (string, error) {
	matches, err := filepath.Glob(filepath.Join(m.cfg.Dir, m.cfg.Pattern))
	if err != nil {
		return "", fmt.Errorf("bad model pattern %q: %w", m.cfg.Pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s matching %s", ErrNoArtifact, m.cfg.Dir, m.cfg.Pattern)
	}

	sort.Strings(matches)
	if len(matches) > 1 {
		m.logger.Warn(ctx, "several model artifacts found, using the first", "using", matches[0], "candidates", matches)
	}
	return matches[0], nil
}

func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model != nil
}

// Get returns the loaded model or common.ErrModelNotReady.
func (m *Manager) Get() (Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handle == nil {
		return nil, common.ErrModelNotReady
	}
	return m.handle, nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.model == nil {
		return Status{}
	}
	return Status{
		Loaded:      true,
		ModelPath:   m.path,
		InputShape:  m.model.InputShape(),
		OutputShape: m.model.OutputShape(),
	}
}

// Ready is closed once a model has been loaded.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Close waits for running Predict calls, then releases the model. Later
// Predict calls on any handle return common.ErrModelNotReady. It is meant for
// process shutdown; the manager does not accept a new model afterwards.
func (m *Manager) Close() error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.RLock()
	mdl := m.model
	m.mu.RUnlock()
	if mdl == nil {
		return nil
	}

	m.useMu.Lock()
	defer m.useMu.Unlock()
	if m.released {
		return nil
	}
	m.released = true
	return mdl.Close()
}

// serialized runs one Predict at a time.
type serialized struct {
	Model
	mu sync.Mutex
}

func (s *serialized) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Model.Predict(ctx, in)
}

// guarded keeps the model alive for the duration of each Predict.
type guarded struct {
	Model
	m *Manager
}

func (g *guarded) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	g.m.useMu.RLock()
	defer g.m.useMu.RUnlock()
	if g.m.released {
		return nil, common.ErrModelNotReady
	}
	return g.Model.Predict(ctx, in)
}

// Close is owned by the Manager.
func (g *guarded) Close() error { return nil }
