// Package httpapi is the REST gateway: routing, bearer authentication,
// request decoding and the mapping of service errors to HTTP responses.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/model"
	"github.com/dmitrijs2005/platerecon/internal/server/models"
	"github.com/dmitrijs2005/platerecon/internal/server/services"
)

const (
	apiTitle   = "License Plate Recognition API"
	apiVersion = "1.0.0"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, login, password string) (*services.TokenResult, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

type Reconstructor interface {
	Reconstruct(ctx context.Context, user *models.User, raw []byte, contentType string) (*services.Reconstruction, error)
}

type ModelStatus interface {
	IsLoaded() bool
	Status() model.Status
}

// Handler serves every route of the gateway.
type Handler struct {
	users          UserService
	reconstructor  Reconstructor
	models         ModelStatus
	maxUploadBytes int64
	logger         logging.Logger
}

func NewHandler(us UserService, rs Reconstructor, ms ModelStatus, maxUploadBytes int64, l logging.Logger) *Handler {
	return &Handler{
		users:          us,
		reconstructor:  rs,
		models:         ms,
		maxUploadBytes: maxUploadBytes,
		logger:         l.With("module", "http_api"),
	}
}
