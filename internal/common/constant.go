// Package common contains shared constants and sentinel errors used across
// plate reconstruction components.
package common

const (
	// AuthorizationHeader carries the bearer access token on HTTP requests.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the authorization scheme and the token type returned on login.
	BearerScheme = "bearer"

	// MaxUploadBytes is the largest accepted image upload.
	MaxUploadBytes = 10 << 20
)
