package http

import (
	"encoding/json"
	"net/http"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/logger"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindConcurrentModification:
		return http.StatusConflict
	case domain.KindDeadlineExceeded:
		return http.StatusUnprocessableEntity
	case domain.KindPayment, domain.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	case domain.KindOtpMismatch, domain.KindOtpExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		msg = "internal error"
		kind = "INTERNAL_ERROR"
	}
	if e, ok := err.(*domain.Error); ok {
		msg = e.Message
	}
	writeJSON(w, status, errorBody{Kind: string(kind), Message: msg})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ValidationError("malformed request body: %v", err)
	}
	return nil
}
