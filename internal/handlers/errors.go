package handlers

import (
	"errors"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/internal/tz"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// handleError maps domain errors to HTTP responses; anything unknown is a 500.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSetting),
		errors.Is(err, services.ErrScheduleInPast),
		errors.Is(err, tz.ErrInvalidTimezone),
		errors.Is(err, tz.ErrInvalidDateTime):
		response.Error(c, response.NewBadRequest(err.Error()))
	case errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrAssetNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrScheduleNotFound):
		response.Error(c, response.NewNotFound(err.Error()))
	case errors.Is(err, services.ErrScheduleRunning):
		response.Error(c, response.NewConflict(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(c, response.NewUnauthorized(err.Error()))
	case errors.Is(err, services.ErrAuthDisabled):
		response.Error(c, response.NewNotFound(err.Error()))
	default:
		response.Error(c, err)
	}
}

func bindError(c *gin.Context, err error) {
	response.BadRequest(c, err.Error())
}
