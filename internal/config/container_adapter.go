package config

import (
	"github.com/garyjia/draftflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// The container never reads viper directly.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lark: container.LarkConfig{
			Enabled:       c.LarkEnabled(),
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
			BaseURL:       c.Lark.BaseURL,
		},
		Directory: container.DirectoryConfig{
			CacheTTL: c.Directory.CacheTTL,
		},
		IDGen: container.IDGenConfig{
			MachineID: c.IDGen.MachineID,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
		},
		Storage: container.StorageConfig{
			AttachmentDir: c.Storage.AttachmentDir,
		},
		Dispatcher: container.DispatcherConfig{
			HandlerTimeout: c.Dispatcher.HandlerTimeout,
		},
	}
}
