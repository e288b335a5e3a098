// Package auth issues and verifies the HS256 bearer tokens that gate every
// protected operation.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs tokens with a process-wide key that is set once at
// construction and never rotated. It is safe for concurrent use.
type TokenService struct {
	secretKey []byte
	now       func() time.Time
}

func NewTokenService(secretKey []byte) *TokenService {
	return &TokenService{secretKey: secretKey, now: time.Now}
}

// Issue returns a token for subject expiring at now+ttl, along with that
// expiry instant.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, common.NewValidationError("sub", "empty subject")
	}
	if ttl <= 0 {
		return "", time.Time{}, common.NewValidationError("ttl", "ttl must be positive")
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify returns the subject embedded in tokenString.
//
// An expired but otherwise authentic token yields common.ErrTokenExpired.
// Everything else (foreign key, altered bytes, other algorithms, garbage)
// yields common.ErrInvalidSignature.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidSignature
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidSignature
	}

	return claims.Subject, nil
}
