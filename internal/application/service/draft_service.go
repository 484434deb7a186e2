package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/domain/event"
	"github.com/garyjia/draftflow/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateDraftInput describes a new draft
type CreateDraftInput struct {
	Title           string
	Content         string
	BusinessFeature string
	TemplateID      int64
	FormTemplateID  int64
	FormPayload     string
	References      []string
}

// AttachmentUpload is the content of a new attachment
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Content     []byte
}

// AttachmentContent is a stored attachment returned for download
type AttachmentContent struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ListDraftsQuery filters a draft listing. The organization scope comes from the caller.
type ListDraftsQuery struct {
	Status          string
	BusinessFeature string
	CreatedBy       string
	Title           string
	Limit           int
	Offset          int
}

// DraftService is the application-service boundary of the approval workflow
type DraftService interface {
	CreateDraft(ctx context.Context, caller Caller, in CreateDraftInput) (*DraftSnapshot, error)
	SubmitDraft(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error)
	Approve(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error)
	Reject(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error)
	Defer(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error)
	ApproveDeferred(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error)
	Cancel(ctx context.Context, caller Caller, draftID int64, reason string) (*DraftSnapshot, error)
	Withdraw(ctx context.Context, caller Caller, draftID int64, reason string) (*DraftSnapshot, error)
	Resubmit(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error)
	Delegate(ctx context.Context, caller Caller, draftID, stepID int64, delegatedTo, comment string) (*DraftSnapshot, error)
	AddAttachment(ctx context.Context, caller Caller, draftID int64, upload AttachmentUpload) (*DraftSnapshot, error)
	GetAttachment(ctx context.Context, caller Caller, draftID, attachmentID int64) (*AttachmentContent, error)
	GetDraft(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error)
	ListDrafts(ctx context.Context, caller Caller, q ListDraftsQuery) (*DraftList, error)
	ListHistory(ctx context.Context, caller Caller, draftID int64) ([]HistoryView, error)
	ListReferences(ctx context.Context, caller Caller, draftID int64) ([]ReferenceView, error)
}

type draftServiceImpl struct {
	draftRepo    port.DraftRepository
	templateRepo port.TemplateRepository
	formRepo     port.FormTemplateRepository
	directory    port.ApprovalGroupDirectory
	txManager    port.TransactionManager
	ids          draft.IDGenerator
	storage      port.FileStorage
	publisher    port.EventPublisher
	logger       Logger
	opts         options
}

// NewDraftService creates a new DraftService
func NewDraftService(
	draftRepo port.DraftRepository,
	templateRepo port.TemplateRepository,
	formRepo port.FormTemplateRepository,
	directory port.ApprovalGroupDirectory,
	txManager port.TransactionManager,
	ids draft.IDGenerator,
	storage port.FileStorage,
	publisher port.EventPublisher,
	logger Logger,
	opts ...Option,
) DraftService {
	return &draftServiceImpl{
		draftRepo:    draftRepo,
		templateRepo: templateRepo,
		formRepo:     formRepo,
		directory:    directory,
		txManager:    txManager,
		ids:          ids,
		storage:      storage,
		publisher:    publisher,
		logger:       logger,
		opts:         buildOptions(opts),
	}
}

// CreateDraft creates a draft from an active template applicable to the caller's organization
func (s *draftServiceImpl) CreateDraft(ctx context.Context, caller Caller, in CreateDraftInput) (snap *DraftSnapshot, err error) {
	start := s.opts.now()
	defer func() { s.opts.metrics.ObserveOperation("create", err, time.Since(start)) }()

	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if caller.OrganizationCode == "" {
		return nil, fmt.Errorf("%w: drafts are created within an organization", draft.ErrInvalidArgument)
	}

	tmpl, err := s.templateRepo.GetActiveByID(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}
	if tmpl.BusinessFeature != in.BusinessFeature {
		return nil, fmt.Errorf("%w: template %s is not for business feature %s", draft.ErrInvalidArgument, tmpl.Code, in.BusinessFeature)
	}
	if !tmpl.ApplicableTo(caller.OrganizationCode) {
		return nil, fmt.Errorf("%w: template %s is not available to organization %s", draft.ErrAccessDenied, tmpl.Code, caller.OrganizationCode)
	}

	var form *port.FormTemplate
	if in.FormTemplateID != 0 {
		if form, err = s.formRepo.GetActiveByID(ctx, in.FormTemplateID); err != nil {
			return nil, err
		}
	}

	d, err := s.assembleDraft(caller, in, tmpl, form, start)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.draftRepo.Create(txCtx, d)
	})
	if err != nil {
		s.logger.Error("Failed to create draft", "error", err, "template_id", in.TemplateID, "user_id", caller.UserID)
		return nil, err
	}

	s.logger.Info("Draft created", "draft_id", d.ID, "template", tmpl.Code, "steps", len(d.Steps), "user_id", caller.UserID)
	s.publish(ctx, []*event.Event{event.NewEvent(event.TypeDraftCreated, d.ID, caller.UserID, draftPayload(d)).WithOrganization(d.OrganizationCode)})
	return toSnapshot(d), nil
}

func (s *draftServiceImpl) assembleDraft(caller Caller, in CreateDraftInput, tmpl *draft.ApprovalLineTemplate, form *port.FormTemplate, now time.Time) (*draft.Draft, error) {
	id, err := s.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft id: %w", err)
	}

	d, err := draft.New(id, draft.NewParams{
		Title:            utils.SanitizeString(in.Title),
		Content:          in.Content,
		BusinessFeature:  in.BusinessFeature,
		OrganizationCode: caller.OrganizationCode,
		TemplateID:       tmpl.ID,
		TemplateCode:     tmpl.Code,
		CreatedBy:        caller.UserID,
	}, now)
	if err != nil {
		return nil, err
	}

	steps, err := tmpl.InstantiateSteps(d.ID, s.ids)
	if err != nil {
		return nil, err
	}
	if err := d.AttachSteps(steps); err != nil {
		return nil, err
	}

	if form != nil {
		if err := d.AttachFormSnapshot(draft.FormSnapshot{
			FormTemplateID: form.ID,
			Version:        form.Version,
			Schema:         form.Schema,
			Payload:        in.FormPayload,
		}); err != nil {
			return nil, err
		}
	}

	for _, userID := range utils.NormalizeUserIDs(in.References) {
		refID, err := s.ids.NextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate reference id: %w", err)
		}
		if err := d.AddReference(refID, userID, now); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SubmitDraft sends a draft into review. Only the creator may submit.
func (s *draftServiceImpl) SubmitDraft(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error) {
	return s.mutate(ctx, "submit", caller, draftID, func(_ context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		if err := requireCreator(d, caller); err != nil {
			return nil, err
		}
		if err := d.Submit(caller.UserID, now); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeDraftSubmitted, d.ID, caller.UserID, draftPayload(d)), nil
	})
}

// Approve approves the in-progress step
func (s *draftServiceImpl) Approve(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error) {
	return s.stepAction(ctx, "approve", caller, draftID, stepID, event.TypeStepApproved, comment, (*draft.Draft).ApproveStep)
}

// Reject rejects the in-progress step and finishes the draft
func (s *draftServiceImpl) Reject(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error) {
	return s.stepAction(ctx, "reject", caller, draftID, stepID, event.TypeStepRejected, comment, (*draft.Draft).RejectStep)
}

// Defer postpones the decision on the in-progress step
func (s *draftServiceImpl) Defer(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error) {
	return s.stepAction(ctx, "defer", caller, draftID, stepID, event.TypeStepDeferred, comment, (*draft.Draft).DeferStep)
}

// ApproveDeferred completes a deferred step
func (s *draftServiceImpl) ApproveDeferred(ctx context.Context, caller Caller, draftID, stepID int64, comment string) (*DraftSnapshot, error) {
	return s.stepAction(ctx, "approve_deferred", caller, draftID, stepID, event.TypeStepPostApproved, comment, (*draft.Draft).ApproveDeferredStep)
}

type stepOperation func(d *draft.Draft, stepID int64, actor, comment string, now time.Time) error

func (s *draftServiceImpl) stepAction(ctx context.Context, op string, caller Caller, draftID, stepID int64, eventType event.Type, comment string, apply stepOperation) (*DraftSnapshot, error) {
	return s.mutate(ctx, op, caller, draftID, func(txCtx context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		step, err := s.authorizeStepActor(txCtx, d, stepID, caller)
		if err != nil {
			return nil, err
		}
		if err := apply(d, stepID, caller.UserID, comment, now); err != nil {
			return nil, err
		}
		return event.NewEvent(eventType, d.ID, caller.UserID, stepPayload(d, step, comment)), nil
	})
}

// Cancel cancels a draft that is not finished yet. The creator or an auditor may cancel.
func (s *draftServiceImpl) Cancel(ctx context.Context, caller Caller, draftID int64, reason string) (*DraftSnapshot, error) {
	return s.mutate(ctx, "cancel", caller, draftID, func(_ context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		if d.CreatedBy != caller.UserID && !caller.AuditAccess {
			return nil, fmt.Errorf("%w: only the creator may cancel draft %d", draft.ErrAccessDenied, d.ID)
		}
		if err := d.Cancel(caller.UserID, reason, now); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// Withdraw pulls an in-review draft back. Only the creator may withdraw.
func (s *draftServiceImpl) Withdraw(ctx context.Context, caller Caller, draftID int64, reason string) (*DraftSnapshot, error) {
	return s.mutate(ctx, "withdraw", caller, draftID, func(_ context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		if err := requireCreator(d, caller); err != nil {
			return nil, err
		}
		if err := d.Withdraw(caller.UserID, reason, now); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// Resubmit restarts the review of a withdrawn draft. Only the creator may resubmit.
func (s *draftServiceImpl) Resubmit(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error) {
	return s.mutate(ctx, "resubmit", caller, draftID, func(_ context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		if err := requireCreator(d, caller); err != nil {
			return nil, err
		}
		if err := d.Resubmit(caller.UserID, now); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeDraftResubmitted, d.ID, caller.UserID, draftPayload(d)), nil
	})
}

// Delegate names another user to act on a step
func (s *draftServiceImpl) Delegate(ctx context.Context, caller Caller, draftID, stepID int64, delegatedTo, comment string) (*DraftSnapshot, error) {
	return s.mutate(ctx, "delegate", caller, draftID, func(txCtx context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		step, err := s.authorizeStepActor(txCtx, d, stepID, caller)
		if err != nil {
			return nil, err
		}
		if err := d.Delegate(stepID, delegatedTo, comment, caller.UserID, now); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeStepDelegated, d.ID, caller.UserID, stepPayload(d, step, comment)), nil
	})
}

// AddAttachment stores a file and records it on a draft that is not finished yet
func (s *draftServiceImpl) AddAttachment(ctx context.Context, caller Caller, draftID int64, upload AttachmentUpload) (*DraftSnapshot, error) {
	if strings.TrimSpace(upload.FileName) == "" || len(upload.Content) == 0 {
		return nil, fmt.Errorf("%w: attachment needs a file name and content", draft.ErrInvalidArgument)
	}
	attachmentID, err := s.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attachment id: %w", err)
	}
	key := attachmentKey(draftID, attachmentID, upload.FileName)

	saved := false
	snap, err := s.mutate(ctx, "add_attachment", caller, draftID, func(txCtx context.Context, d *draft.Draft, now time.Time) (*event.Event, error) {
		if err := requireCreator(d, caller); err != nil {
			return nil, err
		}
		if err := d.AddAttachment(draft.Attachment{
			ID:          attachmentID,
			FileName:    upload.FileName,
			StorageKey:  key,
			ContentType: upload.ContentType,
			Size:        int64(len(upload.Content)),
			UploadedBy:  caller.UserID,
			CreatedAt:   now,
		}); err != nil {
			return nil, err
		}
		if err := s.storage.Save(txCtx, key, upload.Content); err != nil {
			return nil, fmt.Errorf("failed to store attachment: %w", err)
		}
		saved = true
		return nil, nil
	})
	if err != nil && saved {
		if delErr := s.storage.Delete(detached(ctx), key); delErr != nil {
			s.logger.Error("Failed to remove orphaned attachment", "error", delErr, "key", key)
		}
	}
	return snap, err
}

// GetAttachment reads an attachment of a draft visible to the caller
func (s *draftServiceImpl) GetAttachment(ctx context.Context, caller Caller, draftID, attachmentID int64) (*AttachmentContent, error) {
	d, err := s.loadVisible(ctx, caller, draftID)
	if err != nil {
		return nil, err
	}
	for _, a := range d.Attachments {
		if a.ID != attachmentID {
			continue
		}
		content, err := s.storage.Read(ctx, a.StorageKey)
		if err != nil {
			s.logger.Error("Failed to read attachment", "error", err, "draft_id", draftID, "attachment_id", attachmentID)
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		return &AttachmentContent{FileName: a.FileName, ContentType: a.ContentType, Content: content}, nil
	}
	return nil, fmt.Errorf("%w: attachment %d of draft %d", draft.ErrNotFound, attachmentID, draftID)
}

// GetDraft returns the snapshot of a draft visible to the caller
func (s *draftServiceImpl) GetDraft(ctx context.Context, caller Caller, draftID int64) (*DraftSnapshot, error) {
	d, err := s.loadVisible(ctx, caller, draftID)
	if err != nil {
		return nil, err
	}
	return toSnapshot(d), nil
}

// ListDrafts lists drafts in the caller's organization, or all drafts for auditors
func (s *draftServiceImpl) ListDrafts(ctx context.Context, caller Caller, q ListDraftsQuery) (*DraftList, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	page, err := s.draftRepo.List(ctx, port.DraftFilter{
		OrganizationCode: caller.OrganizationCode,
		AuditAccess:      caller.AuditAccess,
		Status:           draft.Status(strings.ToUpper(q.Status)),
		BusinessFeature:  q.BusinessFeature,
		CreatedBy:        q.CreatedBy,
		Title:            q.Title,
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		s.logger.Error("Failed to list drafts", "error", err, "user_id", caller.UserID)
		return nil, err
	}

	out := &DraftList{
		Items:  make([]DraftSummary, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  limit,
		Offset: offset,
	}
	for _, d := range page.Items {
		out.Items = append(out.Items, toSummary(d))
	}
	return out, nil
}

// ListHistory returns the audit trail of a draft
func (s *draftServiceImpl) ListHistory(ctx context.Context, caller Caller, draftID int64) ([]HistoryView, error) {
	if _, err := s.loadVisible(ctx, caller, draftID); err != nil {
		return nil, err
	}
	entries, err := s.draftRepo.ListHistory(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return toHistoryViews(entries), nil
}

// ListReferences returns the users CC'd on a draft
func (s *draftServiceImpl) ListReferences(ctx context.Context, caller Caller, draftID int64) ([]ReferenceView, error) {
	if _, err := s.loadVisible(ctx, caller, draftID); err != nil {
		return nil, err
	}
	refs, err := s.draftRepo.ListReferences(ctx, draftID)
	if err != nil {
		return nil, err
	}
	out := make([]ReferenceView, 0, len(refs))
	for _, r := range refs {
		out = append(out, ReferenceView{UserID: r.UserID, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (s *draftServiceImpl) loadVisible(ctx context.Context, caller Caller, draftID int64) (*draft.Draft, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	d, err := s.draftRepo.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := d.AssertOrganizationAccess(caller.OrganizationCode, caller.AuditAccess); err != nil {
		return nil, err
	}
	return d, nil
}

// mutateFunc applies one workflow operation to a loaded draft and returns the
// primary event to publish, if any
type mutateFunc func(txCtx context.Context, d *draft.Draft, now time.Time) (*event.Event, error)

// mutate runs load, authorize, apply and save in one transaction, then publishes events
func (s *draftServiceImpl) mutate(ctx context.Context, op string, caller Caller, draftID int64, apply mutateFunc) (snap *DraftSnapshot, err error) {
	start := s.opts.now()
	defer func() { s.opts.metrics.ObserveOperation(op, err, time.Since(start)) }()

	if err := caller.Validate(); err != nil {
		return nil, err
	}

	var (
		saved      *draft.Draft
		primary    *event.Event
		before     draft.Status
		beforeStep int64
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := s.draftRepo.GetByID(txCtx, draftID)
		if err != nil {
			return err
		}
		if err := d.AssertOrganizationAccess(caller.OrganizationCode, caller.AuditAccess); err != nil {
			return err
		}

		before = d.Status
		if cur := d.CurrentStep(); cur != nil {
			beforeStep = cur.ID
		}

		if primary, err = apply(txCtx, d, start); err != nil {
			return err
		}
		if err := s.draftRepo.Save(txCtx, d); err != nil {
			return err
		}
		saved = d
		return nil
	})
	if err != nil {
		if isClientError(err) {
			s.logger.Info("Draft operation rejected", "operation", op, "draft_id", draftID, "user_id", caller.UserID, "reason", err.Error())
		} else {
			s.logger.Error("Draft operation failed", "operation", op, "draft_id", draftID, "user_id", caller.UserID, "error", err)
		}
		return nil, err
	}

	if before != saved.Status {
		s.opts.metrics.ObserveStatusChange(before, saved.Status)
	}
	s.logger.Info("Draft updated", "operation", op, "draft_id", saved.ID, "status", saved.Status, "user_id", caller.UserID)
	s.publish(ctx, followUpEvents(saved, caller.UserID, primary, before, beforeStep))
	return toSnapshot(saved), nil
}

func (s *draftServiceImpl) publish(ctx context.Context, events []*event.Event) {
	if s.publisher == nil {
		return
	}
	for _, evt := range events {
		s.publisher.DispatchAsync(detached(ctx), evt)
	}
}

// authorizeStepActor allows the recorded delegate, or an active member of the step's group
func (s *draftServiceImpl) authorizeStepActor(ctx context.Context, d *draft.Draft, stepID int64, caller Caller) (*draft.Step, error) {
	step, ok := d.StepByID(stepID)
	if !ok {
		return nil, fmt.Errorf("%w: step %d not found on draft %d", draft.ErrNotFound, stepID, d.ID)
	}

	if step.DelegatedTo != "" {
		if step.DelegatedTo == caller.UserID {
			return step, nil
		}
		return nil, fmt.Errorf("%w: step %d is delegated to another user", draft.ErrAccessDenied, step.StepOrder)
	}

	members, err := s.directory.FindActiveMembers(ctx, step.ApproverGroupCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approver group %s: %w", step.ApproverGroupCode, err)
	}
	for _, m := range members {
		if m == caller.UserID {
			return step, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is not a member of approver group %s", draft.ErrAccessDenied, caller.UserID, step.ApproverGroupCode)
}

func requireCreator(d *draft.Draft, caller Caller) error {
	if d.CreatedBy != caller.UserID {
		return fmt.Errorf("%w: only the creator may change draft %d", draft.ErrAccessDenied, d.ID)
	}
	return nil
}

func isClientError(err error) bool {
	return errors.Is(err, draft.ErrWorkflowViolation) ||
		errors.Is(err, draft.ErrAccessDenied) ||
		errors.Is(err, draft.ErrNotFound) ||
		errors.Is(err, draft.ErrInvalidArgument) ||
		errors.Is(err, draft.ErrConcurrentModification)
}

func attachmentKey(draftID, attachmentID int64, fileName string) string {
	return fmt.Sprintf("drafts/%d/%d_%s", draftID, attachmentID, utils.SanitizeFileName(fileName))
}
