package draft

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type seqIDs struct {
	next int64
	err  error
}

func (s *seqIDs) NextID() (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	return s.next, nil
}

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func twoStepTemplate() *ApprovalLineTemplate {
	return &ApprovalLineTemplate{
		ID:              7,
		Code:            "EXPENSE_DEFAULT",
		BusinessFeature: "EXPENSE",
		Scope:           ScopeGlobal,
		Active:          true,
		Steps: []TemplateStep{
			{StepOrder: 2, ApproverGroupCode: "DEPT_HEAD", Description: "department head"},
			{StepOrder: 1, ApproverGroupCode: "TEAM_LEAD", Description: "team lead"},
		},
	}
}

func newDraftWithSteps(t *testing.T) *Draft {
	t.Helper()
	ids := &seqIDs{next: 100}
	d, err := New(1, NewParams{
		Title:            "Team offsite",
		Content:          "venue + travel",
		BusinessFeature:  "EXPENSE",
		OrganizationCode: "ORG-A",
		TemplateID:       7,
		TemplateCode:     "EXPENSE_DEFAULT",
		CreatedBy:        "alice",
	}, baseTime)
	require.NoError(t, err)

	steps, err := twoStepTemplate().InstantiateSteps(d.ID, ids)
	require.NoError(t, err)
	require.NoError(t, d.AttachSteps(steps))
	return d
}

func submitted(t *testing.T) *Draft {
	t.Helper()
	d := newDraftWithSteps(t)
	require.NoError(t, d.Submit("alice", baseTime.Add(time.Minute)))
	return d
}

func countInProgress(d *Draft) int {
	n := 0
	for _, s := range d.Steps {
		if s.State == StepInProgress {
			n++
		}
	}
	return n
}

func historyTypes(d *Draft) []HistoryEventType {
	out := make([]HistoryEventType, 0, len(d.History))
	for _, h := range d.History {
		out = append(out, h.EventType)
	}
	return out
}

func isViolation(err error) bool {
	return errors.Is(err, ErrWorkflowViolation)
}
