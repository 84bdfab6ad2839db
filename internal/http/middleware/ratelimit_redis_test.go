package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	client := InitRedisRateLimiter(addr, os.Getenv("REDIS_PASSWORD"), db)
	require.NotNil(t, client)
	defer func() { redisClient = nil }()

	// small window, unique per run so reruns do not collide
	w := time.Duration(2+time.Now().UnixNano()%50) * time.Second
	limit := 2

	r := gin.New()
	r.GET("/test", RedisRateLimit(limit, w), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < limit; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRedisLimitersFailOpenWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.False(t, RedisEnabled())

	r := gin.New()
	r.GET("/x", RedisRateLimit(0, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/y", CompletionRateLimit(0, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/x", "/y"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}
}
