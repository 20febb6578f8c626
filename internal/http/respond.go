package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/commerce"
	"github.com/fjod/go_travel/pkg/circuitbreaker"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/sirupsen/logrus"
)

// respondLog reports response encoding failures. NewRouter replaces it with
// the service logger.
var respondLog = logger.New("storefront")

// cartPath is where a visitor is sent when there is nothing to check out.
const cartPath = "/cart"

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		respondLog.With(logrus.Fields{"status": status}).WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleRemoteError converts a commerce API failure into an HTTP answer.
func handleRemoteError(w http.ResponseWriter, err error) {
	var apiErr *commerce.APIError

	switch {
	case commerce.IsUnauthorized(err):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "session expired, please log in again")
	case commerce.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", messageOr(err, "not found"))
	case circuitbreaker.IsOpen(err):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "remote service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "remote service timed out")
	case commerce.IsClientError(err):
		respondError(w, http.StatusBadRequest, "remote_rejected", messageOr(err, "request rejected"))
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "remote_call_failed", messageOr(err, checkout.GenericRemoteMessage))
	default:
		respondError(w, http.StatusBadGateway, "remote_call_failed", checkout.GenericRemoteMessage)
	}
}

// handleCheckoutError maps sequencer failures.
func handleCheckoutError(w http.ResponseWriter, err error) {
	var stepErr *checkout.Error
	if errors.As(err, &stepErr) {
		switch stepErr.Kind {
		case checkout.KindValidation:
			respondError(w, http.StatusBadRequest, stepErr.Kind.String(), stepErr.Message)
		case checkout.KindDraftMissing:
			respondDraftMissing(w, stepErr.Message)
		default:
			respondError(w, http.StatusBadGateway, stepErr.Kind.String(), stepErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, checkout.ErrBusy):
		respondError(w, http.StatusConflict, "busy", "a checkout step is still in progress")
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", "action not allowed at this step")
	case errors.Is(err, checkout.ErrFinished):
		respondError(w, http.StatusConflict, "finished", "checkout already finished")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondDraftMissing(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusConflict, ErrorResponse{
		Error:   message,
		Code:    "draft_missing",
		Details: cartPath,
	})
}

func messageOr(err error, fallback string) string {
	if msg := commerce.Message(err); msg != "" {
		return msg
	}
	return fallback
}
