package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/config"
	"dragon-treasure/internal/genlayer"
	"dragon-treasure/internal/handlers"
	"dragon-treasure/internal/middleware"
	"dragon-treasure/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.SetupLogging(cfg)

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	newChain := func(privateKey string) (services.ChainClient, error) {
		account, err := genlayer.ParsePrivateKey(privateKey)
		if err != nil {
			return nil, err
		}
		return genlayer.NewClient(cfg.GenLayer.RPCURL, account,
			genlayer.WithChainID(cfg.GenLayer.ChainID),
			genlayer.WithGasLimit(cfg.GenLayer.GasLimit),
			genlayer.WithHTTPClient(&http.Client{Timeout: cfg.GenLayer.RequestTimeout}),
		), nil
	}

	sessions := services.NewSessionManager(redisService, newChain, services.ReceiptWait{
		Retries:  cfg.GenLayer.ReceiptRetries,
		Interval: cfg.GenLayer.ReceiptInterval,
	}, cfg.GenLayer.DefaultContract)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			sessions.CleanupIdle(30 * time.Minute)
		}
	}()

	relayHandler := handlers.NewRelayHandler(cfg.GenLayer.RPCURL, cfg.GenLayer.RequestTimeout)
	sessionHandler := handlers.NewSessionHandler(sessions, jwtService)
	gameHandler := handlers.NewGameHandler(sessions)
	consoleHandler := handlers.NewConsoleHandler(sessions)
	wsHandler := handlers.NewWebSocketHandler(sessions)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/health", relayHandler.Health)
	router.POST("/api/genlayer-rpc", relayHandler.Forward)
	router.POST("/auth/session", sessionHandler.CreateSession)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", sessionHandler.GetCurrentSession)
		protected.POST("/logout", sessionHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		protected.GET("/contract", gameHandler.GetContract)
		protected.PUT("/contract", gameHandler.SetContract)
		protected.GET("/stats", gameHandler.GetStats)
		protected.GET("/treasure", gameHandler.GetTreasureCount)
		protected.POST("/plea",
			middleware.RateLimitMiddleware(redisService, "plea", cfg.PleaRateLimit, services.RateLimitWindow),
			gameHandler.SubmitPlea,
		)
		protected.GET("/history", gameHandler.GetHistory)
		protected.GET("/result", gameHandler.GetLatestResult)

		protected.GET("/console", consoleHandler.GetEntries)
		protected.DELETE("/console", consoleHandler.Clear)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
