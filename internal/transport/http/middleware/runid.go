package middleware

import (
	"github.com/ErlanBelekov/campsite-scheduler/internal/runid"
	"github.com/gin-gonic/gin"
)

const runIDHeader = "X-Request-ID"

// RunID tags the request context with a run id, reusing an incoming
// X-Request-ID when present, and echoes it in the response.
func RunID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(runIDHeader)
		if id == "" {
			id = runid.New()
		}

		c.Request = c.Request.WithContext(runid.NewContext(c.Request.Context(), id))
		c.Header(runIDHeader, id)
		c.Next()
	}
}
