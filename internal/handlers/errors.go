package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/search"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/logger"
	"github.com/huangang/testdesk/pkg/response"
)

// fail maps a service error onto the response envelope.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.Error(c, response.NewNotFound(err.Error()))
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrUserDisabled):
		response.Error(c, response.NewForbidden(err.Error()))
	case errors.Is(err, services.ErrConflict):
		response.Error(c, response.NewConflict(err.Error()))
	case errors.Is(err, services.ErrInvalidInput):
		response.Error(c, response.NewBadRequest(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		response.Error(c, response.NewUnauthorized(err.Error()))
	case errors.Is(err, search.ErrUnavailable), search.IsConnectivity(err):
		logger.Error().Err(err).Str("request_id", logger.GetRequestID(c)).Msg("datastore unavailable")
		response.Error(c, response.NewServiceUnavailable("service temporarily unavailable"))
	default:
		logger.Error().Err(err).Str("request_id", logger.GetRequestID(c)).Str("path", c.FullPath()).Msg("request failed")
		response.Error(c, response.NewServerError("internal server error"))
	}
}

// paramID parses the uint path parameter name. On failure it has already
// answered with 400.
func paramID(c *gin.Context, name, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return uint(id), true
}

// paginated renders one page of a list. page is normalized the same way the
// services normalize it.
func paginated(c *gin.Context, items interface{}, total int64, page search.Page) {
	page = page.Normalize()
	response.Paginated(c, items, total, page.Page, page.PageSize)
}
