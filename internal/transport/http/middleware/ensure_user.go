package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/gin-gonic/gin"
)

// EnsureUser runs after Auth. It upserts the owner so foreign keys hold and
// notifications have an address to go to.
func EnsureUser(repo repository.UserRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var email *string
		if v := c.GetString(UserEmailKey); v != "" {
			email = &v
		}

		if err := repo.Upsert(c.Request.Context(), c.GetString(UserIDKey), email); err != nil {
			logger.ErrorContext(c.Request.Context(), "ensure user upsert", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Next()
	}
}
