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

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/client"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/web"
)

func main() {
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

	api := client.New(cfg.Web.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := api.Login(ctx, cfg.Web.Username, cfg.Web.Password); err != nil {
		slog.Error("failed to sign in to api", "error", err)
		os.Exit(1)
	}
	slog.Info("signed in to api", "base_url", cfg.Web.APIBaseURL)

	gin.SetMode(gin.ReleaseMode)
	router := web.NewRouter(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("web server starting", "port", cfg.Web.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
