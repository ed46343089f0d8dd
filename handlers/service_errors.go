package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/services"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Handlers
// call it instead of switching on error types themselves.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsNotFoundError(err):
		if werr := utils.WriteNotFound(w, err.Error()); werr != nil {
			logger.Error("failed to write not found response", zap.Error(werr))
		}

	case services.IsValidationError(err):
		if werr := utils.WriteBadRequest(w, err.Error(), details); werr != nil {
			logger.Error("failed to write bad request response", zap.Error(werr))
		}

	case services.IsUnauthorizedError(err):
		if werr := utils.WriteUnauthorized(w, err.Error()); werr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(werr))
		}

	case services.IsForbiddenError(err):
		if werr := utils.WriteForbidden(w, err.Error()); werr != nil {
			logger.Error("failed to write forbidden response", zap.Error(werr))
		}

	case services.IsConflictError(err):
		if werr := utils.WriteConflict(w, err.Error(), details); werr != nil {
			logger.Error("failed to write conflict response", zap.Error(werr))
		}

	case services.IsUnavailableError(err):
		if werr := utils.WriteServiceUnavailable(w, err.Error(), details); werr != nil {
			logger.Error("failed to write unavailable response", zap.Error(werr))
		}

	default:
		// Internal errors are logged with detail but never echoed to the
		// client.
		logger.Error("internal error in handler", zap.Error(err))
		if werr := utils.WriteInternalServerError(w, "Internal server error"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
	}
}
