package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/config"
	"github.com/ekaya-inc/ekaya-schema/pkg/handlers"
	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/mcp"
	"github.com/ekaya-inc/ekaya-schema/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-schema/pkg/middleware"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"), Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.Level())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("default_dialect", string(cfg.Dialect())),
		zap.String("normalization", string(cfg.NormalizationType())),
		zap.Bool("block_on_errors", cfg.BlockOnErrors()),
		zap.Bool("mcp_enabled", cfg.MCPEnabled()))

	schemaService := services.NewSchemaService(services.SchemaServiceConfig{
		DefaultDialect: cfg.Dialect(),
		IncludeDrop:    cfg.Schema.IncludeDrop,
		BlockOnErrors:  cfg.BlockOnErrors(),
		MaxAttributes:  cfg.Normalization.MaxAttributes,
	}, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaService, cfg.Server.MaxRequestBytes, logger).RegisterRoutes(mux)
	handlers.NewNormalizationHandler(schemaService, cfg.NormalizationType(), cfg.Server.MaxRequestBytes, logger).RegisterRoutes(mux)

	if cfg.MCPEnabled() {
		mcpServer := mcp.NewServer("ekaya-schema", cfg.Version, logger)
		mcpServer.RegisterSchemaTools(&tools.SchemaToolDeps{
			SchemaService:     schemaService,
			NormalizationType: cfg.NormalizationType(),
			Logger:            logger,
		})
		mux.Handle("/mcp", mcpServer.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-schema", zap.String("addr", cfg.Addr()), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
