package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/migrations"
	"github.com/garyjia/draftflow/pkg/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "draftflow.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Run(migrations.FS)
	require.NoError(t, err)
	return db
}

type seqIDs struct{ next int64 }

func (s *seqIDs) NextID() (int64, error) {
	s.next++
	return s.next, nil
}

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func createTemplate(t *testing.T, repo *TemplateRepository, id int64, code string) *draft.ApprovalLineTemplate {
	t.Helper()
	tmpl := &draft.ApprovalLineTemplate{
		ID:              id,
		Code:            code,
		Name:            "Expense approval",
		BusinessFeature: "EXPENSE",
		Scope:           draft.ScopeGlobal,
		Active:          true,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	require.NoError(t, tmpl.ReplaceSteps([]draft.TemplateStep{
		{StepOrder: 2, ApproverGroupCode: "DEPT_HEAD", Description: "department head"},
		{StepOrder: 1, ApproverGroupCode: "TEAM_LEAD", Description: "team lead"},
	}, testNow))
	require.NoError(t, repo.Create(context.Background(), tmpl))
	return tmpl
}

// newSubmittedDraft builds a submitted draft from a two step template
func newSubmittedDraft(t *testing.T, ids *seqIDs, tmpl *draft.ApprovalLineTemplate) *draft.Draft {
	t.Helper()
	id, _ := ids.NextID()
	d, err := draft.New(id, draft.NewParams{
		Title:            "Team offsite",
		Content:          "venue and travel",
		BusinessFeature:  tmpl.BusinessFeature,
		OrganizationCode: "ORG1",
		TemplateID:       tmpl.ID,
		TemplateCode:     tmpl.Code,
		CreatedBy:        "alice",
	}, testNow)
	require.NoError(t, err)

	steps, err := tmpl.InstantiateSteps(d.ID, ids)
	require.NoError(t, err)
	require.NoError(t, d.AttachSteps(steps))
	require.NoError(t, d.Submit("alice", testNow))
	return d
}
