package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/platerecon/internal/common"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn(ctx, "write response failed", "error", err)
	}
}

func (h *Handler) writeDetail(ctx context.Context, w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	h.writeJSON(ctx, w, status, errorResponse{Detail: detail})
}

// writeError is the single place where service errors become responses.
// Causes behind internal errors are logged, never returned.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, "request failed", "status", status, "error", err)
	}
	h.writeDetail(ctx, w, status, detail)
}

func statusFor(err error) (int, string) {
	var fe *common.FieldError
	switch {
	case errors.As(err, &fe) && (errors.Is(fe.Kind, common.ErrValidation) || errors.Is(fe.Kind, common.ErrConflict)):
		return http.StatusBadRequest, fe.Message
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrConflict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "Incorrect email/username or password"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, common.ErrInvalidSignature):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, common.ErrModelNotReady):
		return http.StatusServiceUnavailable, "Model not loaded. Please try again later."
	case errors.Is(err, common.ErrInferenceFailed):
		return http.StatusInternalServerError, "Error processing image"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
