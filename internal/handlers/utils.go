package handlers

import (
	"chatopia-backend/internal/auth"
	"chatopia-backend/internal/services"
	"chatopia-backend/pkg/httputil"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a size-limited JSON body into dest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

// requireUserID returns the authenticated user id or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, r, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	return userID, true
}

// respondServiceError maps service errors to status codes. Clients get a
// fixed message; the full error goes to the log.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		logger.Info("rejected request", fields...)
		// Validation text only ever describes the client's own input.
		httputil.RespondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		logger.Info("conversation not found", fields...)
		httputil.RespondError(w, r, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, services.ErrGenerationFailed):
		logger.Error("generation failed", fields...)
		httputil.RespondError(w, r, http.StatusInternalServerError, "Error generating response")
	default:
		logger.Error("request failed", fields...)
		httputil.RespondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
