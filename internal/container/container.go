package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/dispatcher"
	"github.com/garyjia/draftflow/internal/infrastructure/directory"
	"github.com/garyjia/draftflow/internal/infrastructure/export"
	"github.com/garyjia/draftflow/internal/infrastructure/external/lark"
	"github.com/garyjia/draftflow/internal/infrastructure/idgen"
	"github.com/garyjia/draftflow/internal/infrastructure/storage"
	"github.com/garyjia/draftflow/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	db           *DatabaseBundle
	repositories *RepositoryBundle
	ids          *idgen.Generator
	directory    *directory.CachedDirectory
	storage      *storage.LocalFileStorage
	metrics      *MetricsBundle
	exporter     *export.HistoryExporter

	// Application
	dispatcher dispatcher.Dispatcher
	notifier   *lark.Notifier
	services   *ServiceBundle

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Order: database and repositories, ids and directory, storage and metrics,
// dispatcher and notifier, application services.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initInfrastructure(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	c.logger.Info("Infrastructure initialized")

	if err := c.initDispatcher(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized", zap.Bool("lark_notifications", c.notifier != nil))

	if err := c.initServices(); err != nil {
		_ = c.dispatcher.Close()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	c.ready.Store(false)

	var errs []error

	// in-flight notifications finish before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.db != nil {
		if err := c.db.DB.HealthCheck(ctx); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.dispatcher != nil && c.ready.Load() {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not running"}
		status.Overall = false
	}

	notifications := ComponentHealth{Healthy: true, Message: "disabled"}
	if c.notifier != nil {
		notifications.Message = "enabled"
	}
	status.Components["lark"] = notifications

	return status
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = dbBundle

	repos, err := ProvideRepositories(dbBundle.DB.DB, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initInfrastructure() error {
	ids, err := ProvideIDGenerator(&c.config.IDGen)
	if err != nil {
		return err
	}
	c.ids = ids

	c.directory = ProvideDirectory(&c.config.Directory, c.repositories.GroupMembers, c.logger.Named("directory"))

	st, err := ProvideStorage(&c.config.Storage, c.logger.Named("storage"))
	if err != nil {
		return err
	}
	c.storage = st

	c.metrics = ProvideMetrics(&c.config.Metrics)
	c.exporter = export.NewHistoryExporter(c.logger.Named("export"))
	return nil
}

func (c *Container) initDispatcher() error {
	d, err := ProvideDispatcher(&c.config.Dispatcher, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = d

	if c.metrics != nil {
		d.SubscribeAll("event_metrics", c.metrics.Workflow.CountEvent)
	}
	c.notifier = ProvideNotifier(&c.config.Lark, d, c.directory, c.logger.Named("lark"))
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db.TxManager,
		Directory:  c.directory,
		IDs:        c.ids,
		Storage:    c.storage,
		Dispatcher: c.dispatcher,
		Metrics:    c.metrics,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) closeDatabase() error {
	if c.db == nil {
		return nil
	}
	err := c.db.DB.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.db = nil
	return err
}

// DB returns the database handle.
func (c *Container) DB() *database.DB {
	if c.db == nil {
		return nil
	}
	return c.db.DB
}

// Repositories returns the repository bundle.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Metrics returns the metrics bundle, nil when disabled.
func (c *Container) Metrics() *MetricsBundle {
	return c.metrics
}

// Exporter returns the XLSX history exporter.
func (c *Container) Exporter() *export.HistoryExporter {
	return c.exporter
}

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container configuration.
func (c *Container) Config() *Config {
	return c.config
}
