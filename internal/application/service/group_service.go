package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

// GroupService administers approval group membership
type GroupService interface {
	ListMembers(ctx context.Context, caller Caller, groupCode string) ([]string, error)
	SetMember(ctx context.Context, caller Caller, groupCode, userID string, active bool) error
}

type groupServiceImpl struct {
	store  port.GroupMemberStore
	cache  port.DirectoryCache
	logger Logger
	opts   options
}

// NewGroupService creates a new GroupService. cache may be nil.
func NewGroupService(store port.GroupMemberStore, cache port.DirectoryCache, logger Logger, opts ...Option) GroupService {
	return &groupServiceImpl{
		store:  store,
		cache:  cache,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// ListMembers returns the active members of a group. Audit access is required.
func (s *groupServiceImpl) ListMembers(ctx context.Context, caller Caller, groupCode string) ([]string, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(groupCode) == "" {
		return nil, fmt.Errorf("%w: group code is required", draft.ErrInvalidArgument)
	}
	return s.store.FindActiveMembers(ctx, groupCode)
}

// SetMember adds, reactivates or deactivates a member. Audit access is required.
func (s *groupServiceImpl) SetMember(ctx context.Context, caller Caller, groupCode, userID string, active bool) (err error) {
	start := s.opts.now()
	defer func() { s.opts.metrics.ObserveOperation("set_group_member", err, time.Since(start)) }()

	if err := s.authorize(caller); err != nil {
		return err
	}
	groupCode, userID = strings.TrimSpace(groupCode), strings.TrimSpace(userID)
	if groupCode == "" || userID == "" {
		return fmt.Errorf("%w: group code and user id are required", draft.ErrInvalidArgument)
	}

	if err := s.store.SetMember(ctx, groupCode, userID, active); err != nil {
		s.logger.Error("Failed to set group member", "error", err, "group_code", groupCode, "user_id", userID)
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(groupCode)
	}

	s.logger.Info("Group membership changed",
		"group_code", groupCode,
		"user_id", userID,
		"active", active,
		"actor", caller.UserID)
	return nil
}

func (s *groupServiceImpl) authorize(caller Caller) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.AuditAccess {
		return fmt.Errorf("%w: group administration requires audit access", draft.ErrAccessDenied)
	}
	return nil
}
