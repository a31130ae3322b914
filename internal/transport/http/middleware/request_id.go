package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextRequestIDKey = "request_id"
	HeaderRequestID     = "X-Request-Id"
)

// RequestID keeps a client supplied X-Request-Id or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}

// Logger is gin's access log with the request id prepended.
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		rid, _ := p.Keys[ContextRequestIDKey].(string)
		return fmt.Sprintf("%s rid=%s method=%s path=%s status=%d ms=%d ip=%s err=%q\n",
			p.TimeStamp.Format(time.RFC3339),
			rid,
			p.Method,
			p.Path,
			p.StatusCode,
			p.Latency.Milliseconds(),
			p.ClientIP,
			p.ErrorMessage,
		)
	})
}
