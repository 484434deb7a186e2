package idgen

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/sonyflake"

	"github.com/garyjia/draftflow/internal/domain/draft"
)

// Config holds sonyflake settings
type Config struct {
	// MachineID identifies this process among writers of the same database.
	// Zero falls back to sonyflake's private-IP derived id.
	MachineID uint16
	StartTime time.Time
}

// Generator hands out time-ordered int64 ids
type Generator struct {
	flake *sonyflake.Sonyflake
}

// New creates a sonyflake generator
func New(cfg Config) (*Generator, error) {
	settings := sonyflake.Settings{StartTime: cfg.StartTime}
	if cfg.MachineID != 0 {
		id := cfg.MachineID
		settings.MachineID = func() (uint16, error) { return id, nil }
	}

	flake := sonyflake.NewSonyflake(settings)
	if flake == nil {
		return nil, errors.New("failed to initialize sonyflake: machine id unavailable or start time in the future")
	}
	return &Generator{flake: flake}, nil
}

// NextID returns the next id
func (g *Generator) NextID() (int64, error) {
	id, err := g.flake.NextID()
	if err != nil {
		return 0, fmt.Errorf("failed to generate id: %w", err)
	}
	return int64(id), nil
}

var _ draft.IDGenerator = (*Generator)(nil)
