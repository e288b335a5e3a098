package model

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identityModel struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
	closed      atomic.Bool
	closedBusy  atomic.Bool
}

func (m *identityModel) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(m.delay)
	return in, nil
}

func (m *identityModel) InputShape() []int64  { return []int64{1, 128, 256, 3} }
func (m *identityModel) OutputShape() []int64 { return []int64{1, 128, 256, 3} }
func (m *identityModel) Close() error {
	if m.inFlight.Load() > 0 {
		m.closedBusy.Store(true)
	}
	m.closed.Store(true)
	return nil
}

type fakeLoader struct {
	calls atomic.Int32
	paths []string
	mu    sync.Mutex
	model *identityModel
	err   error
	delay time.Duration
}

func (l *fakeLoader) Load(ctx context.Context, path string) (Model, error) {
	l.calls.Add(1)
	l.mu.Lock()
	l.paths = append(l.paths, path)
	l.mu.Unlock()
	time.Sleep(l.delay)
	if l.err != nil {
		return nil, l.err
	}
	if l.model == nil {
		l.model = &identityModel{}
	}
	return l.model, nil
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
}

func TestManager_LoadLifecycle(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "pix2pix_generator.onnx")

	loader := &fakeLoader{}
	m := NewManager(Config{Dir: dir}, loader, logging.Discard())
	ctx := context.Background()

	assert.False(t, m.IsLoaded())
	_, err := m.Get()
	assert.ErrorIs(t, err, common.ErrModelNotReady)
	assert.Equal(t, Status{}, m.Status())

	select {
	case <-m.Ready():
		t.Fatal("ready before load")
	default:
	}

	require.NoError(t, m.Load(ctx))
	assert.True(t, m.IsLoaded())

	select {
	case <-m.Ready():
	default:
		t.Fatal("ready not closed after load")
	}

	st := m.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, filepath.Join(dir, "pix2pix_generator.onnx"), st.ModelPath)
	assert.Equal(t, []int64{1, 128, 256, 3}, st.InputShape)

	require.NoError(t, m.Load(ctx), "second load is a no-op")
	assert.Equal(t, int32(1), loader.calls.Load())

	mdl, err := m.Get()
	require.NoError(t, err)
	in, _ := tensor.New(1, 2, 2, 3)
	out, err := mdl.Predict(ctx, in)
	require.NoError(t, err)
	assert.Same(t, in, out)

	require.NoError(t, m.Close())
	assert.True(t, loader.model.closed.Load())
}

func TestManager_NoArtifact(t *testing.T) {
	var buf bytes.Buffer
	loader := &fakeLoader{}
	m := NewManager(Config{Dir: t.TempDir()}, loader, logging.New(&buf, "debug", false))

	err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoArtifact)
	assert.False(t, m.IsLoaded())
	assert.Zero(t, loader.calls.Load())
	assert.Contains(t, buf.String(), "model artifact lookup failed")
}

func TestManager_SeveralArtifactsPicksFirstLexical(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.onnx", "a.onnx", "c.onnx", "notes.txt")

	var buf bytes.Buffer
	loader := &fakeLoader{}
	m := NewManager(Config{Dir: dir, Pattern: "*.onnx"}, loader, logging.New(&buf, "debug", false))

	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, []string{filepath.Join(dir, "a.onnx")}, loader.paths)
	assert.Contains(t, buf.String(), "several model artifacts found")
	assert.Contains(t, buf.String(), "c.onnx")
}

func TestManager_LoaderFailureKeepsNotLoaded(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "m.onnx")

	loader := &fakeLoader{err: errors.New("corrupt")}
	m := NewManager(Config{Dir: dir}, loader, logging.Discard())

	err := m.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
	assert.False(t, m.IsLoaded())

	loader.err = nil
	require.NoError(t, m.Load(context.Background()), "a later attempt may succeed")
	assert.True(t, m.IsLoaded())
}

func TestManager_ConcurrentLoadDeserializesOnce(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "m.onnx")

	loader := &fakeLoader{delay: 20 * time.Millisecond}
	m := NewManager(Config{Dir: dir}, loader, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Load(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.True(t, m.IsLoaded())
}

func TestManager_SerializedPredict(t *testing.T) {
	for _, serialize := range []bool{true, false} {
		dir := t.TempDir()
		touch(t, dir, "m.onnx")

		loader := &fakeLoader{model: &identityModel{delay: 10 * time.Millisecond}}
		m := NewManager(Config{Dir: dir, Serialize: serialize}, loader, logging.Discard())
		require.NoError(t, m.Load(context.Background()))

		mdl, err := m.Get()
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				in, _ := tensor.New(1, 1, 1, 3)
				_, err := mdl.Predict(context.Background(), in)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		if serialize {
			assert.Equal(t, int32(1), loader.model.maxInFlight.Load())
		} else {
			assert.Greater(t, loader.model.maxInFlight.Load(), int32(1))
		}
	}
}

func TestManager_PredictAfterClose(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "m.onnx")

	m := NewManager(Config{Dir: dir}, &fakeLoader{}, logging.Discard())
	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Close())

	mdl, err := m.Get()
	require.NoError(t, err)
	in, _ := tensor.New(1, 1, 1, 3)
	_, err = mdl.Predict(context.Background(), in)
	assert.ErrorIs(t, err, common.ErrModelNotReady)
}

func TestManager_CloseWaitsForRunningPredict(t *testing.T) {
	for _, serialize := range []bool{true, false} {
		dir := t.TempDir()
		touch(t, dir, "m.onnx")

		loader := &fakeLoader{model: &identityModel{delay: 100 * time.Millisecond}}
		m := NewManager(Config{Dir: dir, Serialize: serialize}, loader, logging.Discard())
		require.NoError(t, m.Load(context.Background()))

		mdl, err := m.Get()
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			in, _ := tensor.New(1, 1, 1, 3)
			_, err := mdl.Predict(context.Background(), in)
			done <- err
		}()
		require.Eventually(t, func() bool { return loader.model.inFlight.Load() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, m.Close())
		assert.True(t, loader.model.closed.Load())
		assert.False(t, loader.model.closedBusy.Load(), "model released during Predict")

		assert.Equal(t, int32(0), loader.model.inFlight.Load(), "Close returned before the running Predict finished")
		assert.NoError(t, <-done)

		in, _ := tensor.New(1, 1, 1, 3)
		_, err = mdl.Predict(context.Background(), in)
		assert.ErrorIs(t, err, common.ErrModelNotReady)
	}
}

func TestDeclaredShape(t *testing.T) {
	assert.Equal(t, []int64{-1, 128, 256, 3}, declaredShape([]int64{-1, 128, 256, 3}))
	assert.Equal(t, []int64{-1, -1, -1, 3}, declaredShape([]int64{0, -1, 0, 3}))
}
