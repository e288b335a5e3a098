package users

import (
	"context"

	"github.com/dmitrijs2005/platerecon/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin matches login against the email or the exact
	// (case-sensitive) username, lowest id first.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// UsernameExists compares case-insensitively.
	UsernameExists(ctx context.Context, username string) (bool, error)
}
