package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calm_games/internal/config"
	"calm_games/internal/db"
	"calm_games/internal/events"
	"calm_games/internal/game"
	httpServer "calm_games/internal/http"
	"calm_games/internal/http/handlers"
	"calm_games/internal/http/middleware"
	"calm_games/internal/logger"
	"calm_games/internal/notify"
	"calm_games/internal/service"
	"calm_games/internal/tasks"
	"calm_games/internal/ws"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	policy, err := game.ParseReplayPolicy(cfg.ReplayPolicy)
	if err != nil {
		logger.Fatal("bad REPLAY_POLICY", "error", err)
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	optional := map[string]handlers.Pinger{}
	if rdb := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		optional["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// wallet events: local sockets via the hub, other instances via NATS
	hub := ws.NewHub()
	relay := notify.NewRelay(hub)
	if err := relay.Connect(cfg.NatsURL); err != nil {
		logger.Warn("nats unavailable, wallet events stay local", "error", err)
	}
	defer relay.Close()

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	completions := service.NewCompletionService(dbPool, policy, relay, producer)
	wallets := service.NewWalletService(dbPool)

	audit := tasks.NewLedgerAuditTask(wallets, cfg.LedgerAuditSchedule)
	if err := audit.Start(); err != nil {
		logger.Fatal("ledger audit", "error", err)
	}
	defer audit.Stop()

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for the game shell served from another origin
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler: handlers.NewHandler(completions, wallets),
		Health:  handlers.NewHealthHandler(dbPool, version, optional),
		Hub:     hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "replay_policy", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
