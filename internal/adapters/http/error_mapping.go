package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Session any    `json:"session,omitempty"`
}

func mapErrorToHTTPStatus(err error) int {
	var failed *domain.UploadFailedError
	var pending *interactionRequiredError
	switch {
	case errors.As(err, &pending):
		return http.StatusPreconditionRequired
	case errors.As(err, &failed):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSessionBusy),
		domain.IsKind(err, domain.ErrGuardViolation),
		domain.IsKind(err, domain.ErrInvalidTransition),
		domain.IsKind(err, domain.ErrRetryExhausted):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// describeError picks the user-facing message and any structured details.
func describeError(err error) errorResponse {
	var (
		pending  *interactionRequiredError
		failed   *domain.UploadFailedError
		rejected *domain.FileValidationError
		guard    *domain.GuardError
		mapping  *domain.MappingValidationError
	)
	switch {
	case errors.As(err, &pending):
		return errorResponse{Error: pending.Error(), Details: pending.request}
	case errors.As(err, &failed):
		return errorResponse{Error: failed.Message}
	case errors.As(err, &rejected):
		return errorResponse{Error: "File rejected", Details: rejected.Problems}
	case errors.As(err, &guard):
		if len(guard.Errors) > 0 {
			return errorResponse{Error: guard.Message(), Details: guard.Errors}
		}
		return errorResponse{Error: guard.Message()}
	case errors.As(err, &mapping):
		return errorResponse{Error: mapping.Error(), Details: mapping.Errors}
	default:
		return errorResponse{Error: err.Error()}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, session any) {
	status := mapErrorToHTTPStatus(err)
	body := describeError(err)
	body.Session = session
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}
