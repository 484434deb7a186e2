package http

import (
	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CreateDraftRequest is the body of POST /api/drafts
type CreateDraftRequest struct {
	Title           string   `json:"title" binding:"required,max=200"`
	Content         string   `json:"content" binding:"max=20000"`
	BusinessFeature string   `json:"business_feature" binding:"required,max=64"`
	TemplateID      int64    `json:"template_id" binding:"required,gt=0"`
	FormTemplateID  int64    `json:"form_template_id" binding:"omitempty,gt=0"`
	FormPayload     string   `json:"form_payload"`
	References      []string `json:"references" binding:"omitempty,max=50,dive,required,max=64"`
}

func (r CreateDraftRequest) toInput() service.CreateDraftInput {
	return service.CreateDraftInput{
		Title:           r.Title,
		Content:         r.Content,
		BusinessFeature: r.BusinessFeature,
		TemplateID:      r.TemplateID,
		FormTemplateID:  r.FormTemplateID,
		FormPayload:     r.FormPayload,
		References:      r.References,
	}
}

// ListDraftsRequest represents query parameters for listing drafts
type ListDraftsRequest struct {
	Status          string `form:"status" binding:"max=16"`
	BusinessFeature string `form:"business_feature"`
	CreatedBy       string `form:"created_by"`
	Title           string `form:"title"`
	Limit           int    `form:"limit" binding:"omitempty,min=0,max=100"`
	Offset          int    `form:"offset" binding:"omitempty,min=0"`
}

// StepActionRequest carries the optional comment of approve, reject, defer and approve-deferred
type StepActionRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

// DelegateRequest is the body of the delegate action
type DelegateRequest struct {
	DelegatedTo string `json:"delegated_to" binding:"required,max=64"`
	Comment     string `json:"comment" binding:"max=2000"`
}

// ReasonRequest carries the optional reason of cancel and withdraw
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// TemplateStepRequest is one step of a template request
type TemplateStepRequest struct {
	StepOrder         int    `json:"step_order" binding:"gte=0"`
	ApproverGroupCode string `json:"approver_group_code" binding:"required,max=64"`
	Description       string `json:"description" binding:"max=500"`
}

// CreateTemplateRequest is the body of POST /api/templates
type CreateTemplateRequest struct {
	Code             string                `json:"code" binding:"required,max=64"`
	Name             string                `json:"name" binding:"required,max=200"`
	BusinessFeature  string                `json:"business_feature" binding:"required,max=64"`
	Scope            string                `json:"scope" binding:"required,oneof=GLOBAL ORGANIZATION"`
	OrganizationCode string                `json:"organization_code" binding:"required_if=Scope ORGANIZATION,max=64"`
	Steps            []TemplateStepRequest `json:"steps" binding:"required,min=1,dive"`
}

func (r CreateTemplateRequest) toInput() service.CreateTemplateInput {
	return service.CreateTemplateInput{
		Code:             r.Code,
		Name:             r.Name,
		BusinessFeature:  r.BusinessFeature,
		Scope:            r.Scope,
		OrganizationCode: r.OrganizationCode,
		Steps:            toTemplateSteps(r.Steps),
	}
}

// ReplaceStepsRequest is the body of PUT /api/templates/:id/steps
type ReplaceStepsRequest struct {
	Steps []TemplateStepRequest `json:"steps" binding:"required,min=1,dive"`
}

// ListTemplatesRequest represents query parameters for listing templates
type ListTemplatesRequest struct {
	BusinessFeature string `form:"business_feature"`
}

// SetMemberRequest is the body of PUT /api/approval-groups/:code/members/:userId
type SetMemberRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// GroupMembersResponse lists the active members of an approval group
type GroupMembersResponse struct {
	GroupCode string   `json:"group_code"`
	Members   []string `json:"members"`
}

func toTemplateSteps(in []TemplateStepRequest) []draft.TemplateStep {
	out := make([]draft.TemplateStep, 0, len(in))
	for _, s := range in {
		out = append(out, draft.TemplateStep{
			StepOrder:         s.StepOrder,
			ApproverGroupCode: s.ApproverGroupCode,
			Description:       s.Description,
		})
	}
	return out
}
