package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/handler"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/middleware"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	storageSvc, err := service.NewStorageService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize storage service", "error", err)
		os.Exit(1)
	}
	if err := storageSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure storage bucket", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to initialize job store", "error", err)
		os.Exit(1)
	}

	analyzerSvc := service.NewAnalyzerService(&cfg.Analyzer)
	pipeline := service.NewPipelineService(store, storageSvc, analyzerSvc, cfg.Analyzer.BatchSize)

	// Pipeline consumes bucket upload notifications for the lifetime of the
	// process.
	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()
	go pipeline.Run(pipelineCtx)

	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(storageSvc, store)
	jobHandler := handler.NewJobHandler(store, storageSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		router.Use(middleware.RateLimit(redis.NewClient(opts), cfg.Redis.RequestsPerMinute))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/documents/upload", documentHandler.CreateUpload)
		protected.GET("/jobs", jobHandler.List)
		protected.GET("/jobs/:jobId", jobHandler.Get)
		protected.GET("/jobs/:jobId/document-url", jobHandler.DocumentURL)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("api server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	stopPipeline()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// buildStore picks the job store backend: Postgres when a database URL is
// configured, the in-memory store otherwise.
func buildStore(cfg *config.Config) (service.JobStore, error) {
	if cfg.Database.URL == "" {
		slog.Info("using in-memory job store")
		return service.NewMemoryStore(&cfg.Store), nil
	}

	if err := service.MigrateDatabase(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := service.ConnectDatabase(context.Background(), &cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Info("using postgres job store")
	return service.NewPostgresStore(pool), nil
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
