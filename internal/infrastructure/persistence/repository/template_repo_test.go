package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	createTemplate(t, repo, 1, "EXP-STD")

	got, err := repo.GetActiveByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "EXP-STD", got.Code)
	assert.Equal(t, draft.ScopeGlobal, got.Scope)
	assert.True(t, got.Active)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, 1, got.Steps[0].StepOrder)
	assert.Equal(t, "TEAM_LEAD", got.Steps[0].ApproverGroupCode)
}

func TestTemplateRepository_DuplicateCode(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())

	createTemplate(t, repo, 1, "EXP-STD")

	dup := &draft.ApprovalLineTemplate{
		ID: 2, Code: "EXP-STD", BusinessFeature: "EXPENSE", Scope: draft.ScopeGlobal,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	err := repo.Create(context.Background(), dup)
	assert.True(t, errors.Is(err, draft.ErrInvalidArgument))
}

func TestTemplateRepository_UpdateReplacesSteps(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	tmpl := createTemplate(t, repo, 1, "EXP-STD")
	require.NoError(t, tmpl.ReplaceSteps([]draft.TemplateStep{
		{StepOrder: 1, ApproverGroupCode: "FINANCE"},
	}, testNow))
	tmpl.Active = false
	require.NoError(t, repo.Update(ctx, tmpl))

	_, err := repo.GetActiveByID(ctx, 1)
	assert.True(t, errors.Is(err, draft.ErrNotFound))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "FINANCE", got.Steps[0].ApproverGroupCode)
}

func TestTemplateRepository_UpdateMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())

	err := repo.Update(context.Background(), &draft.ApprovalLineTemplate{ID: 99, Scope: draft.ScopeGlobal})
	assert.True(t, errors.Is(err, draft.ErrNotFound))
}

func TestTemplateRepository_List(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	createTemplate(t, repo, 1, "A-GLOBAL")
	orgOnly := &draft.ApprovalLineTemplate{
		ID: 2, Code: "B-ORG2", BusinessFeature: "EXPENSE", Scope: draft.ScopeOrganization,
		OrganizationCode: "ORG2", Active: true, CreatedAt: testNow, UpdatedAt: testNow,
		Steps: []draft.TemplateStep{{StepOrder: 1, ApproverGroupCode: "CFO"}},
	}
	require.NoError(t, repo.Create(ctx, orgOnly))
	inactive := &draft.ApprovalLineTemplate{
		ID: 3, Code: "C-OLD", BusinessFeature: "EXPENSE", Scope: draft.ScopeGlobal,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, repo.Create(ctx, inactive))
	leave := &draft.ApprovalLineTemplate{
		ID: 4, Code: "D-LEAVE", BusinessFeature: "LEAVE", Scope: draft.ScopeGlobal,
		Active: true, CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, repo.Create(ctx, leave))

	codes := func(list []*draft.ApprovalLineTemplate) []string {
		var out []string
		for _, t := range list {
			out = append(out, t.Code)
		}
		return out
	}

	all, err := repo.List(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-GLOBAL", "B-ORG2", "C-OLD", "D-LEAVE"}, codes(all))

	org1, err := repo.List(ctx, "EXPENSE", "ORG1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-GLOBAL"}, codes(org1))
	assert.Len(t, org1[0].Steps, 2)

	org2, err := repo.List(ctx, "EXPENSE", "ORG2", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-GLOBAL", "B-ORG2"}, codes(org2))
}

func TestFormTemplateRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &port.FormTemplate{ID: 1, Code: "EXPENSE_FORM", Version: 1, Schema: `{}`, Active: true}))
	require.NoError(t, repo.Create(ctx, &port.FormTemplate{ID: 2, Code: "EXPENSE_FORM", Version: 2, Schema: `{"v":2}`, Active: false}))

	got, err := repo.GetActiveByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "EXPENSE_FORM", got.Code)
	assert.Equal(t, 1, got.Version)

	_, err = repo.GetActiveByID(ctx, 2)
	assert.True(t, errors.Is(err, draft.ErrNotFound))

	err = repo.Create(ctx, &port.FormTemplate{ID: 3, Code: "EXPENSE_FORM", Version: 1, Schema: `{}`})
	assert.True(t, errors.Is(err, draft.ErrInvalidArgument))
}

func TestGroupMemberRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewGroupMemberRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.SetMember(ctx, "TEAM_LEAD", "tom", true))
	require.NoError(t, repo.SetMember(ctx, "TEAM_LEAD", "ann", true))
	require.NoError(t, repo.SetMember(ctx, "DEPT_HEAD", "dora", true))

	members, err := repo.FindActiveMembers(ctx, "TEAM_LEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "tom"}, members)

	require.NoError(t, repo.SetMember(ctx, "TEAM_LEAD", "ann", false))
	members, err = repo.FindActiveMembers(ctx, "TEAM_LEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"tom"}, members)

	members, err = repo.FindActiveMembers(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, members)
}
