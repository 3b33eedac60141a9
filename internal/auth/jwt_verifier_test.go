package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foldervault/internal/domain"
)

const testKeyID = "test-key"

// jwksJSON builds a JWKS document holding pub
func jwksJSON(t *testing.T, pub *rsa.PublicKey) json.RawMessage {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": testKeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func newTestVerifier(t *testing.T) (*JWKSVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kf, err := keyfunc.NewJWKSetJSON(jwksJSON(t, &key.PublicKey))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJWTVerifierWithKeyfunc(kf, logger), key
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyTokenValid(t *testing.T) {
	v, key := newTestVerifier(t)

	tokenString := signToken(t, jwt.SigningMethodRS256, key, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "u@example.com",
	})

	claims, err := v.VerifyToken(context.Background(), tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestVerifyTokenRejected(t *testing.T) {
	v, key := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{
			name: "expired",
			token: signToken(t, jwt.SigningMethodRS256, key, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}}),
		},
		{
			name:  "no expiry",
			token: signToken(t, jwt.SigningMethodRS256, key, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}),
		},
		{
			name:  "missing subject",
			token: signToken(t, jwt.SigningMethodRS256, key, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		},
		{
			name: "wrong key",
			token: signToken(t, jwt.SigningMethodRS256, otherKey, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject: "user-1", ExpiresAt: future,
			}}),
		},
		{
			name: "hmac",
			token: signToken(t, jwt.SigningMethodHS256, []byte("secret"), Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject: "user-1", ExpiresAt: future,
			}}),
		},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestNewJWTVerifierRequiresURL(t *testing.T) {
	_, err := NewJWTVerifier(context.Background(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
