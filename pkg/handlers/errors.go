package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
	"github.com/nehasindhwani0110/k-gai/pkg/logging"
)

// writeServiceError maps a service-layer error onto an HTTP status and
// writes the JSON error body. Validation problems are the caller's fault,
// upstream database failures are a bad gateway, everything else is a 500.
// Error messages pass through the sanitizer so credentials from connection
// strings never reach the response body.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
		code = "validation_failed"
	case errors.Is(err, apperrors.ErrUnsupportedDialect):
		status = http.StatusBadGateway
		code = "unsupported_dialect"
	case errors.Is(err, apperrors.ErrConnection):
		status = http.StatusBadGateway
		code = "connection_failed"
	case errors.Is(err, apperrors.ErrIntrospection):
		code = "introspection_failed"
	case errors.Is(err, apperrors.ErrExecution):
		code = "execution_failed"
	}

	if writeErr := ErrorResponse(w, status, code, logging.SanitizeError(err)); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
