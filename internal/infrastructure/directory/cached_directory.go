package directory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/port"
)

// MemberSource is the backing store of group membership
type MemberSource interface {
	FindActiveMembers(ctx context.Context, groupCode string) ([]string, error)
}

// CachedDirectory resolves approver groups through a TTL cache in front of a MemberSource
type CachedDirectory struct {
	source MemberSource
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCachedDirectory creates a directory whose entries live for ttl.
// A ttl of zero or less disables caching.
func NewCachedDirectory(source MemberSource, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 2*ttl)
	}
	return &CachedDirectory{
		source: source,
		cache:  c,
		logger: logger,
	}
}

// FindActiveMembers returns the active members of a group. Errors are never cached.
func (d *CachedDirectory) FindActiveMembers(ctx context.Context, groupCode string) ([]string, error) {
	if d.cache != nil {
		if cached, ok := d.cache.Get(groupCode); ok {
			return copyMembers(cached.([]string)), nil
		}
	}

	members, err := d.source.FindActiveMembers(ctx, groupCode)
	if err != nil {
		d.logger.Error("Failed to resolve approver group", zap.String("group_code", groupCode), zap.Error(err))
		return nil, err
	}

	if d.cache != nil {
		d.cache.SetDefault(groupCode, copyMembers(members))
	}
	d.logger.Debug("Resolved approver group",
		zap.String("group_code", groupCode),
		zap.Int("members", len(members)))
	return members, nil
}

// Invalidate drops the cached entry of a group after its membership changed
func (d *CachedDirectory) Invalidate(groupCode string) {
	if d.cache != nil {
		d.cache.Delete(groupCode)
	}
}

func copyMembers(members []string) []string {
	out := make([]string, len(members))
	copy(out, members)
	return out
}

var _ port.ApprovalGroupDirectory = (*CachedDirectory)(nil)
