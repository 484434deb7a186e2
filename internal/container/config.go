// Package container provides dependency injection and lifecycle management
// for the draft approval service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database   DatabaseConfig
	Lark       LarkConfig
	Directory  DirectoryConfig
	IDGen      IDGenConfig
	Metrics    MetricsConfig
	Storage    StorageConfig
	Dispatcher DispatcherConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on chat notifications for workflow events
	Enabled bool

	AppID         string
	AppSecret     string
	ReceiveIDType string
	BaseURL       string
}

// DirectoryConfig holds approval group resolution settings.
type DirectoryConfig struct {
	// CacheTTL is how long resolved group members are reused. Zero disables caching.
	CacheTTL time.Duration
}

// IDGenConfig holds id generator settings.
type IDGenConfig struct {
	MachineID uint16
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
}

// StorageConfig holds attachment storage settings.
type StorageConfig struct {
	AttachmentDir string
}

// DispatcherConfig holds event dispatch settings.
type DispatcherConfig struct {
	HandlerTimeout time.Duration
}

// Validate checks the configuration for required values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Storage.AttachmentDir == "" {
		return fmt.Errorf("attachment directory is required")
	}
	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark app id and secret are required when notifications are enabled")
	}
	if c.Directory.CacheTTL < 0 {
		return fmt.Errorf("directory cache ttl cannot be negative")
	}
	return nil
}
