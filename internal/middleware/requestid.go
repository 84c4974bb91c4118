package middleware

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	requestIDBytes      = 16
)

var (
	requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	requestIDCounter atomic.Uint64
)

// RequestIDConfig controls request ID assignment.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed X-Request-ID sent by a fronting
	// proxy instead of generating a new one.
	TrustUpstream bool
}

// RequestID returns a gin middleware that always generates a fresh request ID.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig returns a gin middleware that tags each request with an
// ID. The ID is stored in the gin.Context, echoed in the X-Request-ID
// response header and attached to the request context with
// logger.WithContextAttrs so every log record for the request carries it.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(requestIDHeader); requestIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = newRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id)),
		)

		c.Next()
	}
}

// GetRequestID returns the request ID assigned to c, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

func newRequestID() string {
	b := make([]byte, requestIDBytes)
	if _, err := rand.Read(b); err != nil {
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], requestIDCounter.Add(1))
	}
	return hex.EncodeToString(b)
}
