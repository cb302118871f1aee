package http

import (
	"errors"
	"net/http"

	"tableside/internal/services"

	"github.com/gin-gonic/gin"
)

// writeError maps service error kinds onto status codes. Only the message of
// a *services.Error reaches the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"

	var se *services.Error
	if errors.As(err, &se) {
		msg = se.Message
		switch {
		case errors.Is(err, services.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrAuthentication):
			status = http.StatusUnauthorized
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrConflict):
			status = http.StatusConflict
		}
	} else {
		h.log.Error(c.Request.Context(), "unhandled_error", "Unhandled error", err)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
