package httputil

import (
	api_models "chatopia-backend/internal/models"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// RespondJSON writes a JSON response with the given status code and payload.
// The payload is marshaled before any header is written so an encoding
// failure still produces a clean 500.
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// RespondError writes a JSON error response with the given status code and message.
// The chi request id, when present, is echoed back for log correlation.
func RespondError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	resp := api_models.ErrorResponse{Error: message}
	if r != nil {
		resp.RequestID = middleware.GetReqID(r.Context())
	}
	RespondJSON(w, statusCode, resp)
}
