package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crop-analyze-pipeline/apikeys"
	"crop-analyze-pipeline/cache"
	"crop-analyze-pipeline/config"
	"crop-analyze-pipeline/database"
	"crop-analyze-pipeline/handlers"
	"crop-analyze-pipeline/metrics"
	"crop-analyze-pipeline/middleware"
	"crop-analyze-pipeline/service"
)

const version = "1.0.0"

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using system environment variables")
	}

	cfg := config.Load()
	log.SetLevelFromString(cfg.LogLevel)

	if cfg.LLMProvider == "gemini" && len(cfg.GeminiAPIKeys) == 0 {
		log.Fatal("GEMINI_API_KEYS environment variable is required")
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	metrics.Register()

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	// Initialize Redis; the service runs without it.
	resultCache, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResultCacheTTL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, result caching disabled")
	}

	// Initialize pipeline service and create tables
	analysisService := service.NewService(cfg, db, resultCache)
	if err := analysisService.Start(); err != nil {
		log.WithError(err).Fatal("failed to initialize tables")
	}

	keyManager := apikeys.NewManager(db, resultCache)

	h := handlers.NewHandlers(analysisService, version)
	kh := handlers.NewKeyHandlers(keyManager)

	router := gin.Default()
	router.Use(middleware.Metrics())

	// Unauthenticated service endpoints
	router.GET("/health", h.HealthCheck)
	router.GET("/status", h.Status)
	router.GET("/version", h.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Partner API
	api := router.Group("/api/v1")
	api.Use(
		middleware.APIKeyAuth(keyManager),
		middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow),
	)
	{
		api.POST("/analyze", h.AnalyzeCrop)
		api.POST("/soil", h.AnalyzeSoil)
		api.POST("/predict", h.PredictYield)
		api.GET("/analyses/:id", h.GetAnalysis)
		api.GET("/stats", h.Stats)
	}

	// Master-key protected key management
	admin := router.Group("/api/v1/admin/keys", middleware.MasterKeyAuth(cfg.MasterAPIKey))
	{
		admin.POST("", kh.Create)
		admin.GET("", kh.List)
		admin.PUT("/:partner", kh.Update)
		admin.POST("/:partner/regenerate", kh.Regenerate)
		admin.DELETE("/:partner", kh.Delete)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	analysisService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}
