package http

import (
	"context"

	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

type stepCall func(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error)

type mockDraftService struct {
	CreateDraftFunc     func(ctx context.Context, caller service.Caller, in service.CreateDraftInput) (*service.DraftSnapshot, error)
	SubmitDraftFunc     func(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error)
	ApproveFunc         stepCall
	RejectFunc          stepCall
	DeferFunc           stepCall
	ApproveDeferredFunc stepCall
	CancelFunc          func(ctx context.Context, caller service.Caller, draftID int64, reason string) (*service.DraftSnapshot, error)
	WithdrawFunc        func(ctx context.Context, caller service.Caller, draftID int64, reason string) (*service.DraftSnapshot, error)
	ResubmitFunc        func(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error)
	DelegateFunc        func(ctx context.Context, caller service.Caller, draftID, stepID int64, delegatedTo, comment string) (*service.DraftSnapshot, error)
	AddAttachmentFunc   func(ctx context.Context, caller service.Caller, draftID int64, upload service.AttachmentUpload) (*service.DraftSnapshot, error)
	GetAttachmentFunc   func(ctx context.Context, caller service.Caller, draftID, attachmentID int64) (*service.AttachmentContent, error)
	GetDraftFunc        func(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error)
	ListDraftsFunc      func(ctx context.Context, caller service.Caller, q service.ListDraftsQuery) (*service.DraftList, error)
	ListHistoryFunc     func(ctx context.Context, caller service.Caller, draftID int64) ([]service.HistoryView, error)
	ListReferencesFunc  func(ctx context.Context, caller service.Caller, draftID int64) ([]service.ReferenceView, error)
}

func (m *mockDraftService) CreateDraft(ctx context.Context, caller service.Caller, in service.CreateDraftInput) (*service.DraftSnapshot, error) {
	if m.CreateDraftFunc != nil {
		return m.CreateDraftFunc(ctx, caller, in)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) SubmitDraft(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error) {
	if m.SubmitDraftFunc != nil {
		return m.SubmitDraftFunc(ctx, caller, draftID)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Approve(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, caller, draftID, stepID, comment)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Reject(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, caller, draftID, stepID, comment)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Defer(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error) {
	if m.DeferFunc != nil {
		return m.DeferFunc(ctx, caller, draftID, stepID, comment)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) ApproveDeferred(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error) {
	if m.ApproveDeferredFunc != nil {
		return m.ApproveDeferredFunc(ctx, caller, draftID, stepID, comment)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Cancel(ctx context.Context, caller service.Caller, draftID int64, reason string) (*service.DraftSnapshot, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, caller, draftID, reason)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Withdraw(ctx context.Context, caller service.Caller, draftID int64, reason string) (*service.DraftSnapshot, error) {
	if m.WithdrawFunc != nil {
		return m.WithdrawFunc(ctx, caller, draftID, reason)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Resubmit(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error) {
	if m.ResubmitFunc != nil {
		return m.ResubmitFunc(ctx, caller, draftID)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) Delegate(ctx context.Context, caller service.Caller, draftID, stepID int64, delegatedTo, comment string) (*service.DraftSnapshot, error) {
	if m.DelegateFunc != nil {
		return m.DelegateFunc(ctx, caller, draftID, stepID, delegatedTo, comment)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) AddAttachment(ctx context.Context, caller service.Caller, draftID int64, upload service.AttachmentUpload) (*service.DraftSnapshot, error) {
	if m.AddAttachmentFunc != nil {
		return m.AddAttachmentFunc(ctx, caller, draftID, upload)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) GetAttachment(ctx context.Context, caller service.Caller, draftID, attachmentID int64) (*service.AttachmentContent, error) {
	if m.GetAttachmentFunc != nil {
		return m.GetAttachmentFunc(ctx, caller, draftID, attachmentID)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) GetDraft(ctx context.Context, caller service.Caller, draftID int64) (*service.DraftSnapshot, error) {
	if m.GetDraftFunc != nil {
		return m.GetDraftFunc(ctx, caller, draftID)
	}
	return nil, draft.ErrNotFound
}

func (m *mockDraftService) ListDrafts(ctx context.Context, caller service.Caller, q service.ListDraftsQuery) (*service.DraftList, error) {
	if m.ListDraftsFunc != nil {
		return m.ListDraftsFunc(ctx, caller, q)
	}
	return &service.DraftList{}, nil
}

func (m *mockDraftService) ListHistory(ctx context.Context, caller service.Caller, draftID int64) ([]service.HistoryView, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, caller, draftID)
	}
	return nil, nil
}

func (m *mockDraftService) ListReferences(ctx context.Context, caller service.Caller, draftID int64) ([]service.ReferenceView, error) {
	if m.ListReferencesFunc != nil {
		return m.ListReferencesFunc(ctx, caller, draftID)
	}
	return nil, nil
}

type mockTemplateService struct {
	CreateTemplateFunc       func(ctx context.Context, caller service.Caller, in service.CreateTemplateInput) (*service.TemplateView, error)
	ReplaceTemplateStepsFunc func(ctx context.Context, caller service.Caller, templateID int64, steps []draft.TemplateStep) (*service.TemplateView, error)
	GetTemplateFunc          func(ctx context.Context, caller service.Caller, templateID int64) (*service.TemplateView, error)
	ListTemplatesFunc        func(ctx context.Context, caller service.Caller, businessFeature string) ([]service.TemplateView, error)
	DeactivateTemplateFunc   func(ctx context.Context, caller service.Caller, templateID int64) (*service.TemplateView, error)
}

func (m *mockTemplateService) CreateTemplate(ctx context.Context, caller service.Caller, in service.CreateTemplateInput) (*service.TemplateView, error) {
	if m.CreateTemplateFunc != nil {
		return m.CreateTemplateFunc(ctx, caller, in)
	}
	return nil, draft.ErrNotFound
}

func (m *mockTemplateService) ReplaceTemplateSteps(ctx context.Context, caller service.Caller, templateID int64, steps []draft.TemplateStep) (*service.TemplateView, error) {
	if m.ReplaceTemplateStepsFunc != nil {
		return m.ReplaceTemplateStepsFunc(ctx, caller, templateID, steps)
	}
	return nil, draft.ErrNotFound
}

func (m *mockTemplateService) GetTemplate(ctx context.Context, caller service.Caller, templateID int64) (*service.TemplateView, error) {
	if m.GetTemplateFunc != nil {
		return m.GetTemplateFunc(ctx, caller, templateID)
	}
	return nil, draft.ErrNotFound
}

func (m *mockTemplateService) ListTemplates(ctx context.Context, caller service.Caller, businessFeature string) ([]service.TemplateView, error) {
	if m.ListTemplatesFunc != nil {
		return m.ListTemplatesFunc(ctx, caller, businessFeature)
	}
	return nil, nil
}

func (m *mockTemplateService) DeactivateTemplate(ctx context.Context, caller service.Caller, templateID int64) (*service.TemplateView, error) {
	if m.DeactivateTemplateFunc != nil {
		return m.DeactivateTemplateFunc(ctx, caller, templateID)
	}
	return nil, draft.ErrNotFound
}

type mockGroupService struct {
	ListMembersFunc func(ctx context.Context, caller service.Caller, groupCode string) ([]string, error)
	SetMemberFunc   func(ctx context.Context, caller service.Caller, groupCode, userID string, active bool) error
}

func (m *mockGroupService) ListMembers(ctx context.Context, caller service.Caller, groupCode string) ([]string, error) {
	if m.ListMembersFunc != nil {
		return m.ListMembersFunc(ctx, caller, groupCode)
	}
	return nil, nil
}

func (m *mockGroupService) SetMember(ctx context.Context, caller service.Caller, groupCode, userID string, active bool) error {
	if m.SetMemberFunc != nil {
		return m.SetMemberFunc(ctx, caller, groupCode, userID, active)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
