package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

// CreateTemplateInput describes a new approval line template
type CreateTemplateInput struct {
	Code             string
	Name             string
	BusinessFeature  string
	Scope            string
	OrganizationCode string
	Steps            []draft.TemplateStep
}

// TemplateView is the read model of an approval line template
type TemplateView struct {
	ID               int64              `json:"id"`
	Code             string             `json:"code"`
	Name             string             `json:"name"`
	BusinessFeature  string             `json:"business_feature"`
	Scope            string             `json:"scope"`
	OrganizationCode string             `json:"organization_code,omitempty"`
	Active           bool               `json:"active"`
	Steps            []TemplateStepView `json:"steps"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TemplateStepView is the read model of a template step
type TemplateStepView struct {
	StepOrder         int    `json:"step_order"`
	ApproverGroupCode string `json:"approver_group_code"`
	Description       string `json:"description,omitempty"`
}

// TemplateService administers approval line templates.
// Edits never reach drafts already created from a template.
type TemplateService interface {
	CreateTemplate(ctx context.Context, caller Caller, in CreateTemplateInput) (*TemplateView, error)
	ReplaceTemplateSteps(ctx context.Context, caller Caller, templateID int64, steps []draft.TemplateStep) (*TemplateView, error)
	GetTemplate(ctx context.Context, caller Caller, templateID int64) (*TemplateView, error)
	ListTemplates(ctx context.Context, caller Caller, businessFeature string) ([]TemplateView, error)
	DeactivateTemplate(ctx context.Context, caller Caller, templateID int64) (*TemplateView, error)
}

type templateServiceImpl struct {
	templateRepo port.TemplateRepository
	txManager    port.TransactionManager
	ids          draft.IDGenerator
	logger       Logger
	opts         options
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	templateRepo port.TemplateRepository,
	txManager port.TransactionManager,
	ids draft.IDGenerator,
	logger Logger,
	opts ...Option,
) TemplateService {
	return &templateServiceImpl{
		templateRepo: templateRepo,
		txManager:    txManager,
		ids:          ids,
		logger:       logger,
		opts:         buildOptions(opts),
	}
}

// CreateTemplate creates an active template
func (s *templateServiceImpl) CreateTemplate(ctx context.Context, caller Caller, in CreateTemplateInput) (*TemplateView, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	now := s.opts.now()
	t := &draft.ApprovalLineTemplate{
		Code:             in.Code,
		Name:             in.Name,
		BusinessFeature:  in.BusinessFeature,
		Scope:            draft.TemplateScope(in.Scope),
		OrganizationCode: in.OrganizationCode,
		Active:           true,
		CreatedAt:        now,
	}
	if t.Scope == draft.ScopeGlobal {
		t.OrganizationCode = ""
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.assertManage(caller, t); err != nil {
		return nil, err
	}
	if err := t.ReplaceSteps(in.Steps, now); err != nil {
		return nil, err
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate template id: %w", err)
	}
	t.ID = id

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.templateRepo.Create(txCtx, t)
	})
	if err != nil {
		s.logger.Error("Failed to create template", "error", err, "code", in.Code)
		return nil, err
	}

	s.logger.Info("Template created", "template_id", t.ID, "code", t.Code, "steps", len(t.Steps))
	return toTemplateView(t), nil
}

// ReplaceTemplateSteps swaps the step list of a template as one batch
func (s *templateServiceImpl) ReplaceTemplateSteps(ctx context.Context, caller Caller, templateID int64, steps []draft.TemplateStep) (*TemplateView, error) {
	return s.update(ctx, caller, templateID, func(t *draft.ApprovalLineTemplate, now time.Time) error {
		return t.ReplaceSteps(steps, now)
	})
}

// DeactivateTemplate stops a template from being used for new drafts
func (s *templateServiceImpl) DeactivateTemplate(ctx context.Context, caller Caller, templateID int64) (*TemplateView, error) {
	return s.update(ctx, caller, templateID, func(t *draft.ApprovalLineTemplate, now time.Time) error {
		t.Active = false
		t.UpdatedAt = now
		return nil
	})
}

func (s *templateServiceImpl) update(ctx context.Context, caller Caller, templateID int64, apply func(t *draft.ApprovalLineTemplate, now time.Time) error) (*TemplateView, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	var updated *draft.ApprovalLineTemplate
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		t, err := s.templateRepo.GetByID(txCtx, templateID)
		if err != nil {
			return err
		}
		if err := s.assertManage(caller, t); err != nil {
			return err
		}
		if err := apply(t, s.opts.now()); err != nil {
			return err
		}
		if err := s.templateRepo.Update(txCtx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update template", "error", err, "template_id", templateID)
		return nil, err
	}

	s.logger.Info("Template updated", "template_id", updated.ID, "active", updated.Active, "steps", len(updated.Steps))
	return toTemplateView(updated), nil
}

// GetTemplate returns a template visible to the caller
func (s *templateServiceImpl) GetTemplate(ctx context.Context, caller Caller, templateID int64) (*TemplateView, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	t, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !caller.AuditAccess && !t.ApplicableTo(caller.OrganizationCode) {
		return nil, fmt.Errorf("%w: template %d is not available to organization %s", draft.ErrAccessDenied, templateID, caller.OrganizationCode)
	}
	return toTemplateView(t), nil
}

// ListTemplates lists the active templates usable by the caller's organization
func (s *templateServiceImpl) ListTemplates(ctx context.Context, caller Caller, businessFeature string) ([]TemplateView, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	org := caller.OrganizationCode
	if caller.AuditAccess {
		org = ""
	}
	templates, err := s.templateRepo.List(ctx, businessFeature, org, !caller.AuditAccess)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateView, 0, len(templates))
	for _, t := range templates {
		out = append(out, *toTemplateView(t))
	}
	return out, nil
}

// assertManage allows organization templates to be managed by their organization;
// global templates need audit-wide access
func (s *templateServiceImpl) assertManage(caller Caller, t *draft.ApprovalLineTemplate) error {
	if caller.AuditAccess {
		return nil
	}
	if t.Scope == draft.ScopeOrganization && t.OrganizationCode == caller.OrganizationCode {
		return nil
	}
	return fmt.Errorf("%w: template %s cannot be managed by organization %s", draft.ErrAccessDenied, t.Code, caller.OrganizationCode)
}

func toTemplateView(t *draft.ApprovalLineTemplate) *TemplateView {
	v := &TemplateView{
		ID:               t.ID,
		Code:             t.Code,
		Name:             t.Name,
		BusinessFeature:  t.BusinessFeature,
		Scope:            string(t.Scope),
		OrganizationCode: t.OrganizationCode,
		Active:           t.Active,
		Steps:            make([]TemplateStepView, 0, len(t.Steps)),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	for _, s := range t.Steps {
		v.Steps = append(v.Steps, TemplateStepView{
			StepOrder:         s.StepOrder,
			ApproverGroupCode: s.ApproverGroupCode,
			Description:       s.Description,
		})
	}
	return v
}
