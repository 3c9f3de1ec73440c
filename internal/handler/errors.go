package handler

import (
	"errors"
	"net/http"

	"marketplace-chat/internal/transport/httpdto"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; details stay in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, chat_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, chat_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, chat_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
	case errors.Is(err, chat_errors.ErrAttachmentRejected):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "ATTACHMENT_REJECTED"))
	case errors.Is(err, chat_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse("payload too large", "TOO_LARGE"))
	case errors.Is(err, chat_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
	case errors.Is(err, chat_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("service unavailable", "SERVICE_UNAVAILABLE"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
