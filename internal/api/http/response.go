package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
)

type errorBody struct {
	Error    string          `json:"error"`
	Code     string          `json:"code"`
	Conflict *conflictDetail `json:"conflict,omitempty"`
}

type conflictDetail struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	Slot       int    `json:"slot"`
	Requested  int32  `json:"requested"`
	Available  int32  `json:"available"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// statusFor maps an error kind to its HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrStaleReservation):
		return http.StatusConflict, "stale_reservation"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrAvailabilityConflict):
		return http.StatusConflict, "availability_conflict"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		body.Conflict = &conflictDetail{
			ResourceID: conflict.ResourceID,
			Date:       conflict.Date,
			Slot:       conflict.Slot,
			Requested:  conflict.Requested,
			Available:  conflict.Available,
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg, Code: "unauthenticated"})
}
