package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/config"
	"github.com/garyjia/draftflow/internal/container"
	httpapi "github.com/garyjia/draftflow/internal/interfaces/http"
	"github.com/garyjia/draftflow/pkg/utils"
)

const version = "1.0.0"

func main() {
	// Load configuration. DRAFTFLOW_CONFIG points at a YAML file; without it
	// defaults and environment variables apply.
	cfg, err := config.Load(os.Getenv("DRAFTFLOW_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting draft approval service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("lark_notifications", cfg.LarkEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	deps := httpapi.Dependencies{
		Drafts:    services.Drafts,
		Templates: services.Templates,
		Groups:    services.Groups,
		Exporter:  c.Exporter(),
		Health: func(ctx context.Context) (bool, interface{}) {
			status := c.Health(ctx)
			return status.Overall, status.Components
		},
		Logger: utils.NewKVLogger(logger.Named("http")),
	}
	if m := c.Metrics(); m != nil {
		deps.Metrics = promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		MetricsPath:     cfg.Metrics.Path,
		Debug:           cfg.Logger.Level == "debug",
	}, deps)

	// Blocks until a signal arrives; the container closes after in-flight requests drain
	return server.Start(ctx)
}
