package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"foldervault/internal/auth"
	"foldervault/internal/config"
	"foldervault/internal/handler"
	"foldervault/internal/handler/sse"
	"foldervault/internal/middleware"
	"foldervault/internal/service/hierarchy"
	"foldervault/internal/service/progress"
	"foldervault/internal/service/upload"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger, logCloser := config.NewLogger(cfg.Log)
			defer logCloser.Close()
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("server starting",
		"version", buildInfo.String(),
		"environment", cfg.Server.Environment,
		"metadata_driver", cfg.Metadata.Driver,
		"storage_driver", cfg.Storage.Driver,
	)

	store, err := openMetadata(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer store.close()

	backend, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}

	// Services
	hub := progress.NewHub(cfg.Progress.Buffer, logger)
	folderService := hierarchy.NewFolderService(store.folders, store.files, backend, store.txManager, logger)
	uploadService := upload.NewUploadService(store.folders, store.files, backend, hub, upload.Config{
		ChunkSize:    cfg.Upload.ChunkSize,
		MaxSize:      cfg.Upload.MaxSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}, logger)

	checks := map[string]handler.HealthCheck{}
	if store.health != nil {
		checks["metadata"] = store.health
	}

	handlers := &handler.Handlers{
		Folders:  handler.NewFolderHandler(folderService, logger),
		Files:    handler.NewFileHandler(uploadService, cfg.Upload.MaxSize, logger),
		Progress: handler.NewProgressHandler(hub, &sse.Config{KeepAliveInterval: cfg.KeepAliveInterval()}, logger),
		Health:   handler.NewHealthHandler(buildInfo.String(), checks),
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Middleware wraps outward from the mux.
	// Order: CORS → Recovery → RequestLogger → Auth → Metrics → Routes
	var h http.Handler = mux
	h = middleware.Metrics()(h)

	if cfg.Auth.JWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.Auth.JWKSURL, logger)
		if err != nil {
			return fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		defer verifier.Close()
		h = middleware.Auth(verifier, logger)(h)
	} else {
		logger.Warn("authentication disabled, auth.jwks_url is not set")
	}

	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS must run before auth so OPTIONS pre-flight requests pass
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", handler.SessionHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // Disabled to allow long-lived SSE streams and uploads
		IdleTimeout:       60 * time.Second,
	}
	// Progress streams never finish on their own
	server.RegisterOnShutdown(hub.CloseAll)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
