package port

import (
	"context"

	"github.com/garyjia/draftflow/internal/domain/event"
)

// ApprovalGroupDirectory resolves approver groups to their current active members
type ApprovalGroupDirectory interface {
	FindActiveMembers(ctx context.Context, groupCode string) ([]string, error)
}

// EventPublisher hands committed workflow events to subscribers without waiting for them
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// MessageSender delivers plain text messages to users of the chat platform
type MessageSender interface {
	SendText(ctx context.Context, userID string, text string) error
}

// GroupMemberStore is the writable source of approval group membership
type GroupMemberStore interface {
	FindActiveMembers(ctx context.Context, groupCode string) ([]string, error)
	SetMember(ctx context.Context, groupCode, userID string, active bool) error
}

// DirectoryCache drops cached membership after a change
type DirectoryCache interface {
	Invalidate(groupCode string)
}
