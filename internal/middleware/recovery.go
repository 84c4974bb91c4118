package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/assetsrv/internal/pkg"
)

// Recovery returns a gin middleware that turns a panic into a 500 response
// and logs it with the stack trace.
//
// Browsers (Accept contains text/html) get a plain text body; every other
// client gets the JSON envelope:
//
//	{"code": 500, "message": "internal server error", "data": null}
//
// If the handler already started writing the response, the connection is
// left as is and only the log line is produced.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// The client went away mid-transfer; there is nothing to answer.
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				c.Abort()
				return
			}

			logger.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			if acceptsHTML(c) {
				c.Abort()
				c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
			})
		}()
		c.Next()
	}
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
