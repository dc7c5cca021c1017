package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/logging"
)

// APIError is the error body returned to API clients.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// APIErrorResponse wraps APIError under an "error" key.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// ErrorHandler converts errors attached to the gin context into a JSON
// error response. Handlers call c.Error(err) and abort; this middleware
// does the classification, logging and serialization.
func ErrorHandler(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := errors.FromError(err)

		log := logger.WithContext(c.Request.Context()).WithError(err)
		if appErr.HTTPStatus >= 500 {
			log.Error("request failed",
				"code", appErr.Code,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		} else {
			log.Warn("request rejected",
				"code", appErr.Code,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		}

		writeAppError(c, appErr)
	}
}

// AbortWithError records err on the context and stops the handler
// chain. The response is written by ErrorHandler.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// AbortWithAppError writes the error response immediately.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	writeAppError(c, appErr)
	c.Abort()
}

func writeAppError(c *gin.Context, appErr *errors.AppError) {
	c.JSON(appErr.HTTPStatus, APIErrorResponse{
		Error: APIError{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: GetRequestID(c),
		},
	})
}
