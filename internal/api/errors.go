package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Entity  string `json:"entity,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   any    `json:"value,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound, apperr.KindEmptyResult:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err by its kind. Internal errors are logged and
// replaced with a generic message.
func respondError(w http.ResponseWriter, log *logger.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		respondJSON(w, status, errorResponse{Error: string(apperr.KindInternal), Message: "internal server error"})
		return
	}

	body := errorResponse{Error: string(kind), Message: err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Entity = appErr.Entity
		body.Field = appErr.Field
		body.Value = appErr.Value
		if appErr.Err != nil {
			body.Message = appErr.Err.Error()
		}
	}
	respondJSON(w, status, body)
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: string(apperr.KindInvalid), Message: message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
