package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherform/internal/transport/http/response"
)

// RequireReady rejects requests with 503 until ready reports true.
func RequireReady(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ready() {
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusServiceUnavailable, "service not ready")
			return
		}
		c.Next()
	}
}
