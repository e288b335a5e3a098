package services

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/archive"
	"github.com/dmitrijs2005/platerecon/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

type fakeInferer struct {
	out []byte
	err error
}

func (f *fakeInferer) Infer(ctx context.Context, raw []byte) ([]byte, error) {
	return f.out, f.err
}

type fakeArchive struct {
	items []archive.Item
	err   error
}

func (f *fakeArchive) Store(ctx context.Context, item archive.Item) error {
	f.items = append(f.items, item)
	return f.err
}

func TestReconstruct_Success(t *testing.T) {
	arch := &fakeArchive{}
	s := NewReconstructionService(&fakeInferer{out: []byte("png")}, arch, logging.Discard())
	user := &models.User{ID: 3}

	rec, err := s.Reconstruct(context.Background(), user, []byte("raw"), "image/jpeg")
	require.NoError(t, err)

	sum := blake3.Sum256([]byte("raw"))
	assert.Equal(t, hex.EncodeToString(sum[:]), rec.Digest)
	assert.Equal(t, []byte("png"), rec.PNG)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	require.Len(t, arch.items, 1)
	assert.Equal(t, archive.Item{
		UserID: 3, ID: rec.ID, Original: []byte("raw"), OriginalContentType: "image/jpeg", Result: []byte("png"),
	}, arch.items[0])
}

func TestReconstruct_ArchiveFailureIsNotFatal(t *testing.T) {
	arch := &fakeArchive{err: errors.New("bucket gone")}
	s := NewReconstructionService(&fakeInferer{out: []byte("png")}, arch, logging.Discard())

	rec, err := s.Reconstruct(context.Background(), &models.User{ID: 1}, []byte("raw"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), rec.PNG)
}

func TestReconstruct_PipelineErrorsPassThrough(t *testing.T) {
	for _, want := range []error{common.ErrModelNotReady, common.ErrInferenceFailed} {
		arch := &fakeArchive{}
		s := NewReconstructionService(&fakeInferer{err: want}, arch, logging.Discard())

		_, err := s.Reconstruct(context.Background(), &models.User{ID: 1}, []byte("raw"), "image/png")
		assert.ErrorIs(t, err, want)
		assert.Empty(t, arch.items)
	}
}

func TestReconstruct_NilArchiveUsesNop(t *testing.T) {
	s := NewReconstructionService(&fakeInferer{out: []byte("png")}, nil, logging.Discard())
	_, err := s.Reconstruct(context.Background(), &models.User{ID: 1}, []byte("raw"), "")
	assert.NoError(t, err)
}
