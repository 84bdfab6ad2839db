package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CompletionRateLimit limits completion submissions per user (not per IP).
// Requires JWT middleware to run before this.
func CompletionRateLimit(maxSubmissions int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "complete_rl:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		val, err := hit(c.Request.Context(), key, window)
		if err != nil {
			c.Header("X-CompleteRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-CompleteRateLimit-Limit", strconv.Itoa(maxSubmissions))
		c.Header("X-CompleteRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxSubmissions)-val), 10))

		if val > int64(maxSubmissions) {
			RLBlocked.WithLabelValues("complete").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "completion rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("complete").Inc()
		c.Next()
	}
}
