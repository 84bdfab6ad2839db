package http

import (
	"time"

	"calm_games/internal/config"
	"calm_games/internal/http/handlers"
	"calm_games/internal/http/middleware"
	"calm_games/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the wired collaborators the routes serve
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Wallet push feed; auth via ?token=
	r.GET("/ws/wallet", handlers.WalletWS(d.Hub, cfg.AllowedOrigin))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWT(), apiLimiter(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, d.Handler, cfg.CompleteRateLimit, cfg.CompleteRateWindow)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, completeLimit int, completeWindow time.Duration) {
	api.POST("/games/complete", middleware.CompletionRateLimit(completeLimit, completeWindow), h.CompleteGame)
	api.GET("/completions", h.MyCompletions)

	api.GET("/wallet", h.GetWallet)
	api.GET("/wallet/history", h.WalletHistory)
}

// apiLimiter prefers the shared Redis window and falls back to in-process counting
func apiLimiter(limit int, window time.Duration) gin.HandlerFunc {
	if middleware.RedisEnabled() {
		return middleware.RedisRateLimit(limit, window)
	}
	return middleware.SimpleRateLimit(limit, window)
}
