package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dhakb/vestream/internal/v1/config"
	"github.com/dhakb/vestream/internal/v1/health"
	"github.com/dhakb/vestream/internal/v1/logging"
	"github.com/dhakb/vestream/internal/v1/rest"
	"github.com/dhakb/vestream/internal/v1/session"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err == nil {
		logging.Info(context.Background(), "loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error(context.Background(), "environment validation failed", zap.Error(err))
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		logging.Info(context.Background(), "running in development mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := session.NewHub()

	// --- Set up Server ---
	router := gin.Default()

	// Permissive cross-origin policy on the read-only endpoints.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	router.Use(cors.New(corsConfig))

	router.Use(gin.Recovery())

	// Signaling channel
	router.GET("/ws", hub.ServeWs)

	// Read-only endpoints
	restHandler := rest.NewHandler(hub)
	router.GET("/rooms", restHandler.ListRooms)
	router.GET("/rooms/:roomId/messages", restHandler.RoomMessages)

	// Health check endpoint
	healthHandler := health.NewHandler()
	router.GET("/health", healthHandler.Liveness)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	go func() {
		logging.Info(context.Background(), "signaling hub starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(context.Background(), "failed to run server", zap.Error(err))
			_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(context.Background(), "shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close all live sessions; each runs the standard departure path.
	if err := hub.Shutdown(ctx); err != nil {
		logging.Error(ctx, "error during hub shutdown", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}

	logging.Info(ctx, "server exiting")
}
