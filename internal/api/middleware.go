package api

import (
	"chatopia-backend/internal/auth"
	"chatopia-backend/pkg/httputil"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// --- Auth Middleware ---

// AuthMiddleware verifies the bearer token from the Authorization header.
// If valid, it injects the user id into the request context; otherwise the
// request ends with 401 before any handler runs.
func AuthMiddleware(verifier auth.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.RespondError(w, r, http.StatusUnauthorized, "Not authenticated")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, r, http.StatusUnauthorized, "Malformed Authorization header (Expected: Bearer <token>)")
				return
			}

			userID, err := verifier.VerifyToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				logger.Info("token rejected",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Error(err),
				)
				httputil.RespondError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// --- Request Logging ---

// RequestLogger writes one structured access log line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
