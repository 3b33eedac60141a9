package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"foldervault/internal/domain"
)

// allowedAlgorithms prevents algorithm confusion attacks
var allowedAlgorithms = []string{"RS256", "ES256"}

// JWKSVerifier implements JWTVerifier with keys from a JWKS endpoint
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc caches the keys and refreshes them in the background until ctx ends.
func NewJWTVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	return NewJWTVerifierWithKeyfunc(jwks, logger), nil
}

// NewJWTVerifierWithKeyfunc creates a verifier around an existing keyfunc
func NewJWTVerifierWithKeyfunc(jwks keyfunc.Keyfunc, logger *slog.Logger) *JWKSVerifier {
	return &JWKSVerifier{
		jwks:   jwks,
		logger: logger,
	}
}

// VerifyToken validates a JWT token and extracts its claims.
// Every rejection is reported as domain.ErrUnauthorized.
func (v *JWKSVerifier) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		v.logger.Error("failed to extract claims from token")
		return nil, fmt.Errorf("%w: unexpected claims type", domain.ErrUnauthorized)
	}

	// Validate user ID exists (sub claim)
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, fmt.Errorf("%w: missing subject", domain.ErrUnauthorized)
	}

	return claims, nil
}

// Close is a no-op; keyfunc stops refreshing when its context ends
func (v *JWKSVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
