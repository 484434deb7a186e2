package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/draftflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// GroupMemberRepository stores approval group membership
type GroupMemberRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGroupMemberRepository creates a new group member repository
func NewGroupMemberRepository(db *sql.DB, logger *zap.Logger) *GroupMemberRepository {
	return &GroupMemberRepository{
		db:     db,
		logger: logger,
	}
}

// FindActiveMembers returns the active user ids of a group, sorted
func (r *GroupMemberRepository) FindActiveMembers(ctx context.Context, groupCode string) ([]string, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT user_id FROM approval_group_members
		WHERE group_code = ? AND active = 1
		ORDER BY user_id ASC`, groupCode)
	if err != nil {
		r.logger.Error("Failed to find group members", zap.String("group_code", groupCode), zap.Error(err))
		return nil, fmt.Errorf("failed to find group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// SetMember adds a user to a group or toggles an existing membership
func (r *GroupMemberRepository) SetMember(ctx context.Context, groupCode, userID string, active bool) error {
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO approval_group_members (group_code, user_id, active, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (group_code, user_id) DO UPDATE SET
			active = excluded.active,
			updated_at = excluded.updated_at`,
		groupCode, userID, boolToInt(active), time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to set group member",
			zap.String("group_code", groupCode),
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to set group member: %w", err)
	}
	return nil
}
