package draft

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TemplateScope decides which organizations may use a template
type TemplateScope string

const (
	ScopeGlobal       TemplateScope = "GLOBAL"
	ScopeOrganization TemplateScope = "ORGANIZATION"
)

// TemplateStep is one step definition of an approval line
type TemplateStep struct {
	StepOrder         int
	ApproverGroupCode string
	Description       string
}

// ApprovalLineTemplate is a reusable ordered list of steps for a business feature
type ApprovalLineTemplate struct {
	ID               int64
	Code             string
	Name             string
	BusinessFeature  string
	Scope            TemplateScope
	OrganizationCode string
	Active           bool
	Steps            []TemplateStep
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ApplicableTo returns true if the template is global or owned by the organization
func (t *ApprovalLineTemplate) ApplicableTo(organizationCode string) bool {
	if t.Scope == ScopeGlobal {
		return true
	}
	return t.OrganizationCode == organizationCode
}

// ReplaceSteps swaps the whole step list. On error the template is unchanged.
func (t *ApprovalLineTemplate) ReplaceSteps(steps []TemplateStep, now time.Time) error {
	sorted, err := normalizeTemplateSteps(steps)
	if err != nil {
		return err
	}
	t.Steps = sorted
	t.UpdatedAt = now
	return nil
}

// InstantiateSteps creates fresh WAITING steps for a draft, sorted by step order
func (t *ApprovalLineTemplate) InstantiateSteps(draftID int64, ids IDGenerator) ([]*Step, error) {
	defs := make([]TemplateStep, len(t.Steps))
	copy(defs, t.Steps)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].StepOrder < defs[j].StepOrder })

	steps := make([]*Step, 0, len(defs))
	for i, def := range defs {
		if i > 0 && defs[i-1].StepOrder == def.StepOrder {
			return nil, fmt.Errorf("%w: template %s has duplicate step order %d", ErrWorkflowViolation, t.Code, def.StepOrder)
		}
		id, err := ids.NextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate step id: %w", err)
		}
		steps = append(steps, &Step{
			ID:                id,
			DraftID:           draftID,
			StepOrder:         def.StepOrder,
			ApproverGroupCode: def.ApproverGroupCode,
			Description:       def.Description,
			State:             StepWaiting,
		})
	}
	return steps, nil
}

// Validate checks the template header fields
func (t *ApprovalLineTemplate) Validate() error {
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("%w: template code is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(t.BusinessFeature) == "" {
		return fmt.Errorf("%w: business feature is required", ErrInvalidArgument)
	}
	switch t.Scope {
	case ScopeGlobal:
	case ScopeOrganization:
		if t.OrganizationCode == "" {
			return fmt.Errorf("%w: organization scoped template needs an organization code", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown template scope %q", ErrInvalidArgument, t.Scope)
	}
	return nil
}

func normalizeTemplateSteps(steps []TemplateStep) ([]TemplateStep, error) {
	seen := make(map[int]bool, len(steps))
	out := make([]TemplateStep, 0, len(steps))
	for _, s := range steps {
		if seen[s.StepOrder] {
			return nil, fmt.Errorf("%w: duplicate step order %d", ErrWorkflowViolation, s.StepOrder)
		}
		if strings.TrimSpace(s.ApproverGroupCode) == "" {
			return nil, fmt.Errorf("%w: step %d has no approver group", ErrInvalidArgument, s.StepOrder)
		}
		seen[s.StepOrder] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}
