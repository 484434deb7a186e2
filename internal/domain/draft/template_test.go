package draft

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantiateSteps_SortedAndFrozen(t *testing.T) {
	tmpl := &ApprovalLineTemplate{
		Code:  "T",
		Scope: ScopeGlobal,
		Steps: []TemplateStep{
			{StepOrder: 30, ApproverGroupCode: "CFO"},
			{StepOrder: 10, ApproverGroupCode: "TEAM_LEAD"},
			{StepOrder: 20, ApproverGroupCode: "DEPT_HEAD"},
		},
	}

	steps, err := tmpl.InstantiateSteps(42, &seqIDs{})
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, []int{10, 20, 30}, []int{steps[0].StepOrder, steps[1].StepOrder, steps[2].StepOrder})
	for _, s := range steps {
		assert.Equal(t, int64(42), s.DraftID)
		assert.Equal(t, StepWaiting, s.State)
		assert.NotZero(t, s.ID)
	}

	// template order is not touched by instantiation
	assert.Equal(t, 30, tmpl.Steps[0].StepOrder)

	tmpl.Steps[1].ApproverGroupCode = "SOMEONE_ELSE"
	require.NoError(t, tmpl.ReplaceSteps([]TemplateStep{{StepOrder: 1, ApproverGroupCode: "X"}}, time.Now()))
	assert.Equal(t, "TEAM_LEAD", steps[0].ApproverGroupCode)
	assert.Len(t, steps, 3)
}

func TestInstantiateSteps_DuplicateOrder(t *testing.T) {
	tmpl := &ApprovalLineTemplate{
		Code: "T",
		Steps: []TemplateStep{
			{StepOrder: 1, ApproverGroupCode: "A"},
			{StepOrder: 1, ApproverGroupCode: "B"},
		},
	}
	_, err := tmpl.InstantiateSteps(1, &seqIDs{})
	assert.True(t, isViolation(err))
}

func TestInstantiateSteps_IDError(t *testing.T) {
	tmpl := twoStepTemplate()
	_, err := tmpl.InstantiateSteps(1, &seqIDs{err: errors.New("clock moved backwards")})
	assert.Error(t, err)
}

func TestReplaceSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []TemplateStep
		wantErr error
		want    []int
	}{
		{
			name:  "re-sorted",
			steps: []TemplateStep{{StepOrder: 3, ApproverGroupCode: "C"}, {StepOrder: 1, ApproverGroupCode: "A"}},
			want:  []int{1, 3},
		},
		{
			name:    "duplicate order",
			steps:   []TemplateStep{{StepOrder: 1, ApproverGroupCode: "A"}, {StepOrder: 1, ApproverGroupCode: "B"}},
			wantErr: ErrWorkflowViolation,
		},
		{
			name:    "missing group",
			steps:   []TemplateStep{{StepOrder: 1, ApproverGroupCode: " "}},
			wantErr: ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := twoStepTemplate()
			before := append([]TemplateStep{}, tmpl.Steps...)

			err := tmpl.ReplaceSteps(tt.steps, baseTime)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, tmpl.Steps)
				return
			}
			require.NoError(t, err)
			got := make([]int, 0, len(tmpl.Steps))
			for _, s := range tmpl.Steps {
				got = append(got, s.StepOrder)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, baseTime, tmpl.UpdatedAt)
		})
	}
}

func TestApplicableTo(t *testing.T) {
	global := &ApprovalLineTemplate{Scope: ScopeGlobal}
	scoped := &ApprovalLineTemplate{Scope: ScopeOrganization, OrganizationCode: "ORG-A"}

	assert.True(t, global.ApplicableTo("ORG-Z"))
	assert.True(t, scoped.ApplicableTo("ORG-A"))
	assert.False(t, scoped.ApplicableTo("ORG-B"))
}

func TestTemplateValidate(t *testing.T) {
	assert.NoError(t, twoStepTemplate().Validate())

	noCode := twoStepTemplate()
	noCode.Code = ""
	assert.ErrorIs(t, noCode.Validate(), ErrInvalidArgument)

	orgless := twoStepTemplate()
	orgless.Scope = ScopeOrganization
	assert.ErrorIs(t, orgless.Validate(), ErrInvalidArgument)

	unknown := twoStepTemplate()
	unknown.Scope = "PLANET"
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidArgument)
}
