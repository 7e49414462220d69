package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mesikahq/claims-intake/internal/activity"
	"github.com/mesikahq/claims-intake/internal/api"
	"github.com/mesikahq/claims-intake/internal/backend"
	"github.com/mesikahq/claims-intake/internal/claim"
	"github.com/mesikahq/claims-intake/internal/config"
	"github.com/mesikahq/claims-intake/internal/directory"
	"github.com/mesikahq/claims-intake/internal/submit"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Upstream.BaseURL == "" {
		log.Fatal("upstream.base_url is required (or set UPSTREAM_BASE_URL)")
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// Initialize upstream client and directory
	backendClient := backend.NewClient(
		cfg.Upstream.BaseURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		cfg.Upstream.RequestsPerSecond,
	)
	dir := directory.New(backendClient)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	dir.Refresh(loadCtx)
	cancelLoad()
	logger.Info("directory loaded",
		zap.Int("patients", len(dir.Patients())),
		zap.Int("providers", len(dir.Providers())),
	)

	// Initialize intake services
	store := claim.NewStore()
	activityLog := activity.NewLogger()
	coordinator := submit.NewCoordinator(backendClient, store, activityLog)

	handler := api.NewHandler(store, dir, backendClient, coordinator, activityLog)
	router := api.NewRouter(handler, cfg.Auth.JWTSecret, cfg.Server.AllowOrigin)
	engine := router.SetupRouter(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if cfg.Server.TLS.Enabled {
			if err := srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		} else {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
