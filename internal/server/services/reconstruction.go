package services

import (
	"context"
	"encoding/hex"

	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/archive"
	"github.com/dmitrijs2005/platerecon/internal/server/models"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Inferer produces a reconstructed PNG from raw upload bytes.
type Inferer interface {
	Infer(ctx context.Context, raw []byte) ([]byte, error)
}

// Reconstruction is the outcome of one successful request.
type Reconstruction struct {
	ID     uuid.UUID
	Digest string // hex blake3 of the uploaded bytes
	PNG    []byte
}

type ReconstructionService struct {
	pipeline Inferer
	archive  archive.Archive
	logger   logging.Logger
}

func NewReconstructionService(p Inferer, a archive.Archive, l logging.Logger) *ReconstructionService {
	if a == nil {
		a = archive.Nop{}
	}
	return &ReconstructionService{
		pipeline: p,
		archive:  a,
		logger:   l.With("module", "reconstruction_service"),
	}
}

// Reconstruct runs the pipeline on raw and archives the pair. Archive errors
// are logged and do not fail the call. Pipeline errors are returned as is.
func (s *ReconstructionService) Reconstruct(ctx context.Context, user *models.User, raw []byte, contentType string) (*Reconstruction, error) {
	sum := blake3.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	png, err := s.pipeline.Infer(ctx, raw)
	if err != nil {
		s.logger.Error(ctx, "reconstruction failed", "user_id", user.ID, "digest", digest, "error", err)
		return nil, err
	}

	rec := &Reconstruction{ID: uuid.New(), Digest: digest, PNG: png}

	err = s.archive.Store(ctx, archive.Item{
		UserID:              user.ID,
		ID:                  rec.ID,
		Original:            raw,
		OriginalContentType: contentType,
		Result:              png,
	})
	if err != nil {
		s.logger.Warn(ctx, "archive store failed", "reconstruction_id", rec.ID, "error", err)
	}

	s.logger.Info(ctx, "reconstruction done", "user_id", user.ID, "reconstruction_id", rec.ID,
		"digest", digest, "input_bytes", len(raw), "output_bytes", len(png))
	return rec, nil
}
