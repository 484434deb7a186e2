package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

func testConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		Database: DatabaseConfig{
			Path:         filepath.Join(dir, "db", "draftflow.db"),
			MaxOpenConns: 1,
		},
		IDGen:   IDGenConfig{MachineID: 7},
		Metrics: MetricsConfig{Enabled: true},
		Storage: StorageConfig{AttachmentDir: filepath.Join(dir, "attachments")},
	}
}

func TestNewContainerValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewContainer(nil, logger)
	assert.Error(t, err)

	cfg := testConfig(t)
	_, err = NewContainer(cfg, nil)
	assert.Error(t, err)

	cfg.Database.Path = ""
	_, err = NewContainer(cfg, logger)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Lark.Enabled = true
	_, err = NewContainer(cfg, logger)
	assert.Error(t, err)
}

func TestContainerLifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, c.Ready())

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "disabled", health.Components["lark"].Message)

	assert.NotNil(t, c.Services().Drafts)
	assert.NotNil(t, c.Metrics())
	assert.NotNil(t, c.Exporter())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainerApprovalFlow(t *testing.T) {
	c, err := NewContainer(testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	svc := c.Services()
	admin := service.Caller{UserID: "admin", OrganizationCode: "ORG1", AuditAccess: true}
	alice := service.Caller{UserID: "alice", OrganizationCode: "ORG1"}
	bob := service.Caller{UserID: "bob", OrganizationCode: "ORG1"}
	carol := service.Caller{UserID: "carol", OrganizationCode: "ORG1"}

	tmpl, err := svc.Templates.CreateTemplate(ctx, admin, service.CreateTemplateInput{
		Code:            "EXPENSE_STD",
		Name:            "Standard expenses",
		BusinessFeature: "EXPENSE",
		Scope:           "GLOBAL",
		Steps: []draft.TemplateStep{
			{StepOrder: 1, ApproverGroupCode: "TEAM_LEAD"},
			{StepOrder: 2, ApproverGroupCode: "FINANCE"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Groups.SetMember(ctx, admin, "TEAM_LEAD", "bob", true))
	require.NoError(t, svc.Groups.SetMember(ctx, admin, "FINANCE", "carol", true))

	snap, err := svc.Drafts.CreateDraft(ctx, alice, service.CreateDraftInput{
		Title:           "Conference trip",
		BusinessFeature: "EXPENSE",
		TemplateID:      tmpl.ID,
	})
	require.NoError(t, err)
	require.Len(t, snap.Steps, 2)

	snap, err = svc.Drafts.SubmitDraft(ctx, alice, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN_REVIEW", snap.Status)

	_, err = svc.Drafts.Approve(ctx, carol, snap.ID, snap.Steps[0].ID, "")
	assert.ErrorIs(t, err, draft.ErrAccessDenied)

	snap, err = svc.Drafts.Approve(ctx, bob, snap.ID, snap.Steps[0].ID, "ok")
	require.NoError(t, err)
	snap, err = svc.Drafts.Approve(ctx, carol, snap.ID, snap.Steps[1].ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", snap.Status)
	assert.NotNil(t, snap.CompletedAt)

	history, err := svc.Drafts.ListHistory(ctx, alice, snap.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "COMPLETED", history[len(history)-1].EventType)

	families, err := c.Metrics().Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["draftflow_operations_total"])
}
