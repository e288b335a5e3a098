// Package services contains server-side business logic. This file implements
// UserService: registration, credential authentication and resolving the
// caller behind a bearer token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/dbx"
	"github.com/dmitrijs2005/platerecon/internal/logging"
	"github.com/dmitrijs2005/platerecon/internal/server/auth"
	"github.com/dmitrijs2005/platerecon/internal/server/config"
	"github.com/dmitrijs2005/platerecon/internal/server/models"
	"github.com/dmitrijs2005/platerecon/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// hashPassword is a seam for tests.
var hashPassword = bcrypt.GenerateFromPassword

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// TokenResult is returned by a successful login.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// UserService provides authentication-related operations:
// - Register: validate and create users
// - Authenticate: verify credentials and mint an access token
// - CurrentUser: resolve the user behind an access token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	tokenTTL    time.Duration
	bcryptCost  int
	dummyHash   []byte
	logger      logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, cfg *config.Config, l logging.Logger) (*UserService, error) {
	// Compared against when the login matches no user, so both paths cost
	// one bcrypt comparison.
	dummy, err := hashPassword([]byte("placeholder-password"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init dummy hash: %w", err)
	}

	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		tokenTTL:    cfg.AccessTokenTTL,
		bcryptCost:  cfg.BcryptCost,
		dummyHash:   dummy,
		logger:      l.With("module", "user_service"),
	}, nil
}

// ValidateUsername applies the username rules: 3..50 characters from
// [A-Za-z0-9_-]. An "@" gets its own message since it is the common mistake.
func ValidateUsername(username string) error {
	if strings.Contains(username, "@") {
		return common.NewValidationError("username",
			"Username cannot be an email address. Use only letters, numbers, underscores, and hyphens")
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return common.NewValidationError("username",
			fmt.Sprintf("Username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if !usernamePattern.MatchString(username) {
		return common.NewValidationError("username",
			"Username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail accepts a bare address with a dotted domain.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return common.NewValidationError("email", "Invalid email address")
	}
	at := strings.LastIndex(email, "@")
	if domain := email[at+1:]; !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return common.NewValidationError("email", "Invalid email address")
	}
	return nil
}

// Validate checks every field of the registration payload.
func (in RegisterInput) Validate() error {
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if len(in.Password) < minPasswordLen {
		return common.NewValidationError("password",
			fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if len(in.Password) > maxPasswordBytes {
		return common.NewValidationError("password",
			fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// Register validates the input and creates the user. The uniqueness checks
// and the insert share one transaction, so a failure leaves no row behind.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := hashPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrInternal
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.EmailExists(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return common.NewConflictError("email", "Email already registered")
		}

		exists, err = repo.UsernameExists(ctx, in.Username)
		if err != nil {
			return err
		}
		if exists {
			return common.NewConflictError("username", "Username already taken")
		}

		created, err = repo.Create(ctx, &models.User{
			Email:          in.Email,
			Username:       in.Username,
			HashedPassword: string(hash),
		})
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		s.logger.Error(ctx, "user registration failed", "error", err)
		return nil, common.ErrInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// Authenticate looks the user up by email or exact username, compares the
// password and issues an access token. Unknown user and wrong password both
// return common.ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*TokenResult, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil || !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	token, expiresAt, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err)
		return nil, common.ErrInternal
	}

	return &TokenResult{AccessToken: token, TokenType: common.BearerScheme, ExpiresAt: expiresAt}, nil
}

// CurrentUser verifies the token and loads its subject. Token errors are
// returned as is (ErrTokenExpired, ErrInvalidSignature); a subject that no
// longer maps to an active user is ErrUnauthorized.
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrInternal
	}

	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	return user, nil
}
