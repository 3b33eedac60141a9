package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"foldervault/internal/auth"
	"foldervault/internal/httputil"
)

// protectedPrefix is the route prefix that requires a bearer token
const protectedPrefix = "/api/"

// Auth verifies the bearer token on /api/ routes and stores the subject in
// the request context. EventSource clients cannot set headers, so the
// access_token query parameter is accepted as well.
func Auth(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, protectedPrefix) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), tokenString)
			if err != nil {
				logger.Debug("request rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.Subject))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}
