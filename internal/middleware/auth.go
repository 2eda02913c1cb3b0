package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mediafolders/internal/auth"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/httputil"
)

// Auth resolves the request actor from a bearer token.
//
// Requests without an Authorization header run as fallback, which is
// models.Anonymous in production and a fixed development actor otherwise.
// A header that is present but fails verification is rejected with 401.
// With a nil verifier every request runs as fallback.
func Auth(verifier auth.JWTVerifier, fallback models.Actor, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if verifier == nil || header == "" {
				next.ServeHTTP(w, httputil.WithActor(r, fallback))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "authorization header must use the Bearer scheme")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithActor(r, claims.Actor()))
		})
	}
}
