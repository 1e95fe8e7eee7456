package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monobase/internal/config"
	"monobase/internal/ice"
	"monobase/internal/middleware"
	"monobase/internal/routes"
	"monobase/internal/services"
	"monobase/internal/websocket"
	"monobase/pkg/database"
	"monobase/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize logger
	logger.Init()
	defer logger.Close()

	if envErr != nil {
		logger.Debug("No .env file found")
	}

	// Load configuration. A malformed ICE_SERVERS stops startup here.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	servers, err := cfg.ICEServers()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if err := ice.CheckPeerConfiguration(servers); err != nil {
		logger.Fatalf("Invalid configuration: ICE_SERVERS: %v", err)
	}

	// Initialize database
	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		logger.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	defer func() {
		if err := database.Disconnect(); err != nil {
			logger.WithError(err).Error("Failed to disconnect MongoDB")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	iceService := services.NewIceService(servers, cfg.WebRTC.ICETTL)
	callService := services.NewCallService(
		services.NewMongoCallRepository(database.GetDatabase()),
		iceService,
		hub,
		cfg.Calls.MaxParticipants,
		cfg.Calls.RequestTimeout,
	)

	limiter := middleware.NewRateLimiter(cfg.Security.RateLimit.Requests, cfg.Security.RateLimit.Burst, cfg.Security.RateLimit.Window)
	go limiter.Cleanup(ctx)

	// Initialize Gin router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, routes.Dependencies{
		Config:      cfg,
		Hub:         hub,
		IceService:  iceService,
		CallService: callService,
		RateLimiter: limiter,
		HealthCheck: database.HealthCheck,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Infof("Server starting on port: %s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}
