package container

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/dispatcher"
	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/infrastructure/directory"
	"github.com/garyjia/draftflow/internal/infrastructure/external/lark"
	"github.com/garyjia/draftflow/internal/infrastructure/idgen"
	"github.com/garyjia/draftflow/internal/infrastructure/metrics"
	"github.com/garyjia/draftflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/draftflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/draftflow/internal/infrastructure/storage"
	"github.com/garyjia/draftflow/migrations"
	"github.com/garyjia/draftflow/pkg/database"
	"github.com/garyjia/draftflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB        *database.DB
	TxManager *sqlite.TxManager
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Drafts       *repository.DraftRepository
	Templates    *repository.TemplateRepository
	Forms        *repository.FormTemplateRepository
	GroupMembers *repository.GroupMemberRepository
}

// MetricsBundle holds the registry served on the metrics endpoint and the workflow collectors.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Workflow *metrics.Metrics
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Drafts    service.DraftService
	Templates service.TemplateService
	Groups    service.GroupService
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database migrations checked", zap.Int("applied", applied))

	return &DatabaseBundle{
		DB:        db,
		TxManager: sqlite.NewTxManager(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Drafts:       repository.NewDraftRepository(sqlDB, logger),
		Templates:    repository.NewTemplateRepository(sqlDB, logger),
		Forms:        repository.NewFormTemplateRepository(sqlDB, logger),
		GroupMembers: repository.NewGroupMemberRepository(sqlDB, logger),
	}, nil
}

// ProvideIDGenerator creates the sonyflake id generator.
func ProvideIDGenerator(cfg *IDGenConfig) (*idgen.Generator, error) {
	return idgen.New(idgen.Config{MachineID: cfg.MachineID})
}

// ProvideDirectory wraps group membership in a TTL cache.
func ProvideDirectory(cfg *DirectoryConfig, source directory.MemberSource, logger *zap.Logger) *directory.CachedDirectory {
	return directory.NewCachedDirectory(source, cfg.CacheTTL, logger)
}

// ProvideStorage creates the attachment storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*storage.LocalFileStorage, error) {
	if cfg.AttachmentDir == "" {
		return nil, fmt.Errorf("attachment directory is required")
	}
	return storage.NewLocalFileStorage(cfg.AttachmentDir, logger), nil
}

// ProvideMetrics creates a dedicated registry with process collectors and the workflow metrics.
// Returns nil when metrics are disabled.
func ProvideMetrics(cfg *MetricsConfig) *MetricsBundle {
	if !cfg.Enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsBundle{
		Registry: reg,
		Workflow: metrics.New(reg),
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *DispatcherConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
		dispatcher.WithHandlerTimeout(cfg.HandlerTimeout),
	), nil
}

// ProvideNotifier subscribes the Lark notifier to workflow events.
// Returns nil when Lark is not configured.
func ProvideNotifier(cfg *LarkConfig, d dispatcher.Dispatcher, dir port.ApprovalGroupDirectory, logger *zap.Logger) *lark.Notifier {
	if !cfg.Enabled {
		logger.Info("Lark notifications disabled")
		return nil
	}

	client := lark.NewClient(lark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
		BaseURL:       cfg.BaseURL,
	}, logger)
	notifier := lark.NewNotifier(lark.NewMessenger(client, logger), dir, logger)
	notifier.Register(d)
	return notifier
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Directory  *directory.CachedDirectory
	IDs        draft.IDGenerator
	Storage    port.FileStorage
	Dispatcher dispatcher.Dispatcher
	Metrics    *MetricsBundle
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Directory == nil ||
		deps.IDs == nil || deps.Storage == nil || deps.Dispatcher == nil || deps.Logger == nil {
		return nil, fmt.Errorf("incomplete service dependencies")
	}

	var opts []service.Option
	if deps.Metrics != nil {
		opts = append(opts, service.WithMetrics(deps.Metrics.Workflow))
	}
	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))

	return &ServiceBundle{
		Drafts: service.NewDraftService(
			deps.Repos.Drafts,
			deps.Repos.Templates,
			deps.Repos.Forms,
			deps.Directory,
			deps.TxManager,
			deps.IDs,
			deps.Storage,
			deps.Dispatcher,
			serviceLogger,
			opts...,
		),
		Templates: service.NewTemplateService(
			deps.Repos.Templates,
			deps.TxManager,
			deps.IDs,
			serviceLogger,
			opts...,
		),
		Groups: service.NewGroupService(
			deps.Repos.GroupMembers,
			deps.Directory,
			serviceLogger,
			opts...,
		),
	}, nil
}
