package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims foldervault reads. Only the subject is required.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// JWTVerifier defines the interface for JWT token verification.
// This abstraction keeps the middleware agnostic to where keys come from.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(ctx context.Context, tokenString string) (*Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
