package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dbrest/internal/diagram"
	"dbrest/internal/logger"
	"dbrest/internal/middlewares"
	"dbrest/internal/responses"
	"dbrest/internal/services"
	"dbrest/internal/utils"
)

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	var (
		missingPK *services.MissingPrimaryKeyError
		unknown   *services.UnknownColumnError
		writeErr  *services.WriteError
		procErr   *services.ProcedureError
		authErr   *utils.AuthError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &missingPK),
		errors.As(err, &unknown),
		errors.As(err, &writeErr),
		errors.As(err, &procErr),
		errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrEmptyPayload),
		errors.Is(err, services.ErrProceduresUnsupported),
		errors.Is(err, diagram.ErrInvalidSize):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request %s: %s: %v", c.GetString(middlewares.RequestIDKey), message, err)
	} else {
		logger.Debug("request %s: %s: %v", c.GetString(middlewares.RequestIDKey), message, err)
	}
	responses.Fail(c, status, err, message)
}
