package middleware

import (
	"errors"

	"entitlement-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached to the gin context. BaseError keeps
// its code, reason and params; any other error is reported by status only.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		status := errutil.StatusOf(last.Err)
		zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(last.Err))
		c.JSON(status.HTTPStatus(), errutil.BaseError{Code: status, Message: string(status)}.JSON())
	}
}
