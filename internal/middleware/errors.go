package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/internal/domain/dto"
	"github.com/guttosm/histavg/internal/logger"
)

// ErrorHandler turns errors attached with c.Error into a JSON response when
// the handler chain did not write one itself.
//
// A dto.ErrorResponse in the chain is written as-is with its StatusCode
// (500 when unset); any other error becomes a generic 500.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	last := c.Errors.Last().Err
	rid, _ := c.Get(RequestIDKey)

	var resp dto.ErrorResponse
	if errors.As(last, &resp) {
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, resp)
		return
	}

	logger.L().Error().Err(last).Str("request_id", toString(rid)).Msg("unhandled request error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", nil))
}

// AbortWithError aborts the request with status and the standard error body.
// The error is also attached to the context so loggers further up the chain see it.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
