package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/logging"
)

// ErrorResponse is the envelope for every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeServiceError maps application errors to their status. Anything else is logged and
// hidden behind a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*accounts.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	if te := (*trips.Error)(nil); errors.As(err, &te) {
		writeError(w, r, te.Status, te.Code, te.Message, te.Details)
		return
	}
	logging.LogError(r.Context(), s.logger, "request failed", err)
	writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "server error", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
