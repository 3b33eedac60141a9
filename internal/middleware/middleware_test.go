package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foldervault/internal/auth"
	"foldervault/internal/domain"
	"foldervault/internal/httputil"
	"foldervault/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubVerifier accepts exactly one token
type stubVerifier struct {
	valid string
}

func (s stubVerifier) VerifyToken(_ context.Context, token string) (*auth.Claims, error) {
	if token != s.valid {
		return nil, domain.ErrUnauthorized
	}
	claims := &auth.Claims{}
	claims.Subject = "user-1"
	return claims, nil
}

func (stubVerifier) Close() error { return nil }

func TestRecoveryReturnsEnvelope(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httputil.StatusFail, body.Status)
	assert.True(t, body.Error)
}

func TestAuth(t *testing.T) {
	var seenUser string
	handler := Auth(stubVerifier{valid: "good"}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = httputil.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantUser string
	}{
		{"public route", "/health", "", http.StatusOK, ""},
		{"missing token", "/api/folder/list", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/folder/list", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", "/api/folder/list", "Bearer bad", http.StatusUnauthorized, ""},
		{"header token", "/api/folder/list", "Bearer good", http.StatusOK, "user-1"},
		{"query token", "/api/progress?access_token=good", "", http.StatusOK, "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantUser, seenUser)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/file/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Metrics()(mux)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /api/file/{id}", fmt.Sprint(http.StatusTeapot))
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/file/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
