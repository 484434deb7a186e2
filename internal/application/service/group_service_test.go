package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/draftflow/internal/domain/draft"
)

type mockGroupStore struct {
	members map[string]map[string]bool
	err     error
}

func (m *mockGroupStore) FindActiveMembers(ctx context.Context, groupCode string) ([]string, error) {
	var out []string
	for user, active := range m.members[groupCode] {
		if active {
			out = append(out, user)
		}
	}
	return out, nil
}

func (m *mockGroupStore) SetMember(ctx context.Context, groupCode, userID string, active bool) error {
	if m.err != nil {
		return m.err
	}
	if m.members == nil {
		m.members = make(map[string]map[string]bool)
	}
	if m.members[groupCode] == nil {
		m.members[groupCode] = make(map[string]bool)
	}
	m.members[groupCode][userID] = active
	return nil
}

type mockCache struct {
	invalidated []string
}

func (m *mockCache) Invalidate(groupCode string) {
	m.invalidated = append(m.invalidated, groupCode)
}

func TestGroupService_SetMember(t *testing.T) {
	store := &mockGroupStore{}
	cache := &mockCache{}
	svc := NewGroupService(store, cache, &mockLogger{})
	ctx := context.Background()

	require.NoError(t, svc.SetMember(ctx, auditor, " TEAM_LEAD ", "tom", true))
	assert.Equal(t, []string{"TEAM_LEAD"}, cache.invalidated)

	members, err := svc.ListMembers(ctx, auditor, "TEAM_LEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"tom"}, members)

	require.NoError(t, svc.SetMember(ctx, auditor, "TEAM_LEAD", "tom", false))
	members, err = svc.ListMembers(ctx, auditor, "TEAM_LEAD")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestGroupService_RequiresAuditAccess(t *testing.T) {
	svc := NewGroupService(&mockGroupStore{}, nil, &mockLogger{})
	ctx := context.Background()

	err := svc.SetMember(ctx, alice, "TEAM_LEAD", "alice", true)
	assert.ErrorIs(t, err, draft.ErrAccessDenied)

	_, err = svc.ListMembers(ctx, alice, "TEAM_LEAD")
	assert.ErrorIs(t, err, draft.ErrAccessDenied)
}

func TestGroupService_Validation(t *testing.T) {
	store := &mockGroupStore{}
	svc := NewGroupService(store, nil, &mockLogger{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetMember(ctx, auditor, "", "tom", true), draft.ErrInvalidArgument)
	assert.ErrorIs(t, svc.SetMember(ctx, auditor, "TEAM_LEAD", " ", true), draft.ErrInvalidArgument)

	_, err := svc.ListMembers(ctx, auditor, "")
	assert.ErrorIs(t, err, draft.ErrInvalidArgument)

	store.err = errors.New("db down")
	cache := &mockCache{}
	svc = NewGroupService(store, cache, &mockLogger{})
	assert.Error(t, svc.SetMember(ctx, auditor, "TEAM_LEAD", "tom", true))
	assert.Empty(t, cache.invalidated)
}
