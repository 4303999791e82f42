package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/device"
)

// writeError maps controller errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "controller_error"
	switch {
	case errors.Is(err, device.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, device.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, device.ErrQueueFull):
		status, code = http.StatusTooManyRequests, "queue_full"
	case errors.Is(err, device.ErrNotConnected), errors.Is(err, device.ErrStopped):
		status, code = http.StatusServiceUnavailable, "controller_disconnected"
	case errors.Is(err, device.ErrCommandRejected):
		status, code = http.StatusBadGateway, "command_rejected"
	case errors.Is(err, device.ErrCommandExpired), errors.Is(err, device.ErrTimeout):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, device.ErrConnection):
		status, code = http.StatusBadGateway, "connection_error"
	}
	c.JSON(status, types.ErrorResponse{Error: code, Message: err.Error()})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: code, Message: message})
}
