package draft

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/draftflow/internal/domain/workflow"
)

// FormSnapshot is a copy of a form template taken when the draft was created
type FormSnapshot struct {
	FormTemplateID int64
	Version        int
	Schema         string
	Payload        string
}

// Attachment is a file reference stored next to a draft. The file itself lives elsewhere.
type Attachment struct {
	ID          int64
	DraftID     int64
	FileName    string
	StorageKey  string
	ContentType string
	Size        int64
	UploadedBy  string
	CreatedAt   time.Time
}

// Reference is a user kept informed about the draft (CC)
type Reference struct {
	ID        int64
	DraftID   int64
	UserID    string
	CreatedAt time.Time
}

// Draft is the aggregate root of the approval workflow
type Draft struct {
	ID               int64
	Title            string
	Content          string
	BusinessFeature  string
	OrganizationCode string
	TemplateID       int64
	TemplateCode     string
	FormSnapshot     *FormSnapshot
	Status           Status
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SubmittedAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time

	Steps       []*Step
	History     []History
	Attachments []Attachment
	References  []Reference
}

// NewParams holds what is needed to create a draft
type NewParams struct {
	Title            string
	Content          string
	BusinessFeature  string
	OrganizationCode string
	TemplateID       int64
	TemplateCode     string
	CreatedBy        string
}

// New creates a draft in DRAFT status without steps
func New(id int64, p NewParams, now time.Time) (*Draft, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if p.CreatedBy == "" {
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidArgument)
	}
	if p.OrganizationCode == "" {
		return nil, fmt.Errorf("%w: organization code is required", ErrInvalidArgument)
	}

	d := &Draft{
		ID:               id,
		Title:            p.Title,
		Content:          p.Content,
		BusinessFeature:  p.BusinessFeature,
		OrganizationCode: p.OrganizationCode,
		TemplateID:       p.TemplateID,
		TemplateCode:     p.TemplateCode,
		Status:           StatusDraft,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	d.appendHistory(HistoryCreated, p.CreatedBy, p.Title, 0, now)
	return d, nil
}

// AttachSteps binds instantiated steps to the draft. Only allowed before submission.
func (d *Draft) AttachSteps(steps []*Step) error {
	if d.Status != StatusDraft {
		return fmt.Errorf("%w: steps can only be attached to a draft in %s status", ErrWorkflowViolation, StatusDraft)
	}
	seen := make(map[int]bool, len(steps))
	for _, s := range steps {
		if s.DraftID != d.ID {
			return fmt.Errorf("%w: step %d belongs to draft %d", ErrInvalidArgument, s.ID, s.DraftID)
		}
		if seen[s.StepOrder] {
			return fmt.Errorf("%w: duplicate step order %d", ErrWorkflowViolation, s.StepOrder)
		}
		seen[s.StepOrder] = true
	}

	attached := make([]*Step, len(steps))
	copy(attached, steps)
	sort.SliceStable(attached, func(i, j int) bool { return attached[i].StepOrder < attached[j].StepOrder })
	d.Steps = attached
	return nil
}

// AttachFormSnapshot stores a copy of the form schema and payload. Only allowed before submission.
func (d *Draft) AttachFormSnapshot(snapshot FormSnapshot) error {
	if d.Status != StatusDraft {
		return fmt.Errorf("%w: form can only be attached to a draft in %s status", ErrWorkflowViolation, StatusDraft)
	}
	s := snapshot
	d.FormSnapshot = &s
	return nil
}

// AddAttachment records a file reference on a draft that is not finished yet
func (d *Draft) AddAttachment(a Attachment) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: draft %d is already finished (%s)", ErrWorkflowViolation, d.ID, d.Status)
	}
	a.DraftID = d.ID
	d.Attachments = append(d.Attachments, a)
	return nil
}

// AddReference CCs a user on the draft. Duplicate users are ignored.
func (d *Draft) AddReference(id int64, userID string, now time.Time) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: draft is already finished", ErrWorkflowViolation)
	}
	if userID == "" {
		return fmt.Errorf("%w: reference user is required", ErrInvalidArgument)
	}
	for _, r := range d.References {
		if r.UserID == userID {
			return nil
		}
	}
	d.References = append(d.References, Reference{ID: id, DraftID: d.ID, UserID: userID, CreatedAt: now})
	return nil
}

// Submit sends the draft into review and starts the first step
func (d *Draft) Submit(actor string, now time.Time) error {
	next, err := d.checkTransition(workflow.TriggerSubmit)
	if err != nil {
		return err
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: no approval line configured", ErrWorkflowViolation)
	}

	d.enterReview(next, now)
	d.appendHistory(HistorySubmitted, actor, "", 0, now)
	return nil
}

// ApproveStep approves the in-progress step and advances the draft
func (d *Draft) ApproveStep(stepID int64, actor, comment string, now time.Time) error {
	_, step, err := d.actionableStep(workflow.TriggerApprove, stepID)
	if err != nil {
		return err
	}
	completed, err := d.checkTransition(workflow.TriggerComplete)
	if err != nil {
		return err
	}
	if err := step.approve(actor, comment, now); err != nil {
		return err
	}

	d.touch(now)
	d.appendHistory(HistoryStepApproved, actor, comment, step.ID, now)
	d.advance(completed, actor, now)
	return nil
}

// RejectStep rejects the in-progress step, finishes the draft as REJECTED
// and closes out every remaining step
func (d *Draft) RejectStep(stepID int64, actor, comment string, now time.Time) error {
	next, step, err := d.actionableStep(workflow.TriggerReject, stepID)
	if err != nil {
		return err
	}
	if err := step.reject(actor, comment, now); err != nil {
		return err
	}

	d.Status = next
	d.CompletedAt = timePtr(now)
	d.touch(now)
	d.appendHistory(HistoryStepRejected, actor, comment, step.ID, now)
	d.appendHistory(HistoryRejected, actor, comment, 0, now)
	d.skipRemaining(actor, "rejected", now)
	return nil
}

// DeferStep postpones the decision on the in-progress step.
// The draft waits on the deferred step until it is post-approved.
func (d *Draft) DeferStep(stepID int64, actor, comment string, now time.Time) error {
	_, step, err := d.actionableStep(workflow.TriggerDefer, stepID)
	if err != nil {
		return err
	}
	if err := step.deferDecision(actor, comment, now); err != nil {
		return err
	}

	d.touch(now)
	d.appendHistory(HistoryStepDeferred, actor, comment, step.ID, now)
	return nil
}

// ApproveDeferredStep completes a deferred step and advances the draft
func (d *Draft) ApproveDeferredStep(stepID int64, actor, comment string, now time.Time) error {
	_, step, err := d.actionableStep(workflow.TriggerApproveDeferred, stepID)
	if err != nil {
		return err
	}
	completed, err := d.checkTransition(workflow.TriggerComplete)
	if err != nil {
		return err
	}
	if err := step.approveDeferred(actor, comment, now); err != nil {
		return err
	}

	d.touch(now)
	d.appendHistory(HistoryStepPostApproved, actor, comment, step.ID, now)
	d.advance(completed, actor, now)
	return nil
}

// Cancel finishes a non-terminal draft as CANCELLED
func (d *Draft) Cancel(actor, reason string, now time.Time) error {
	next, err := d.checkTransition(workflow.TriggerCancel)
	if err != nil {
		return err
	}

	d.Status = next
	d.CancelledAt = timePtr(now)
	d.touch(now)
	d.appendHistory(HistoryCancelled, actor, reason, 0, now)
	d.skipRemaining(actor, "cancelled", now)
	return nil
}

// Withdraw pulls an in-review draft back. It can be resubmitted or cancelled later.
func (d *Draft) Withdraw(actor, reason string, now time.Time) error {
	next, err := d.checkTransition(workflow.TriggerWithdraw)
	if err != nil {
		return err
	}

	d.Status = next
	d.touch(now)
	d.appendHistory(HistoryWithdrawn, actor, reason, 0, now)
	d.skipRemaining(actor, "withdrawn", now)
	return nil
}

// Resubmit resets every step of a withdrawn draft and submits it again
func (d *Draft) Resubmit(actor string, now time.Time) error {
	next, err := d.checkTransition(workflow.TriggerResubmit)
	if err != nil {
		return err
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: no approval line configured", ErrWorkflowViolation)
	}

	for _, s := range d.Steps {
		s.reset()
	}
	d.enterReview(next, now)
	d.appendHistory(HistoryResubmitted, actor, "", 0, now)
	return nil
}

// Delegate names another user to act on a step that is not completed yet
func (d *Draft) Delegate(stepID int64, delegatedTo, comment, actor string, now time.Time) error {
	if strings.TrimSpace(delegatedTo) == "" {
		return fmt.Errorf("%w: delegate target is required", ErrInvalidArgument)
	}
	if _, err := d.checkTransition(workflow.TriggerDelegate); err != nil {
		return err
	}
	step, err := d.findStep(stepID)
	if err != nil {
		return err
	}
	if err := step.delegate(delegatedTo, comment); err != nil {
		return err
	}

	detail := fmt.Sprintf("delegated to %s", delegatedTo)
	if comment != "" {
		detail += ": " + comment
	}
	d.touch(now)
	d.appendHistory(HistoryDelegated, actor, detail, step.ID, now)
	return nil
}

// AssertOrganizationAccess fails unless the caller belongs to the draft's organization
// or has audit-wide access
func (d *Draft) AssertOrganizationAccess(callerOrg string, auditAccess bool) error {
	if auditAccess || d.OrganizationCode == callerOrg {
		return nil
	}
	return fmt.Errorf("%w: draft %d belongs to another organization", ErrAccessDenied, d.ID)
}

// AvailableActions lists the workflow operations the draft accepts in its
// current status, lowercased and sorted. Step operations are listed only when
// some step can take them.
func (d *Draft) AvailableActions() []string {
	actions := make([]string, 0)
	for _, trigger := range permittedDraftTriggers(d.Status) {
		switch trigger {
		case workflow.TriggerComplete:
			continue
		case workflow.TriggerSubmit, workflow.TriggerResubmit:
			if len(d.Steps) == 0 {
				continue
			}
		case workflow.TriggerApprove, workflow.TriggerReject, workflow.TriggerDefer,
			workflow.TriggerApproveDeferred, workflow.TriggerDelegate:
			if !d.anyStepCanFire(trigger) {
				continue
			}
		}
		actions = append(actions, strings.ToLower(trigger.String()))
	}
	return actions
}

func (d *Draft) anyStepCanFire(trigger workflow.Trigger) bool {
	for _, s := range d.Steps {
		if stepCanFire(s.State, trigger) {
			return true
		}
	}
	return false
}

// StepByID returns the step with the given id
func (d *Draft) StepByID(stepID int64) (*Step, bool) {
	for _, s := range d.Steps {
		if s.ID == stepID {
			return s, true
		}
	}
	return nil, false
}

// CurrentStep returns the IN_PROGRESS step, or nil when no step is active
func (d *Draft) CurrentStep() *Step {
	for _, s := range d.Steps {
		if s.State == StepInProgress {
			return s
		}
	}
	return nil
}

// UnpersistedHistory returns the history entries appended since the draft was loaded
func (d *Draft) UnpersistedHistory() []History {
	var out []History
	for _, h := range d.History {
		if !h.IsPersisted() {
			out = append(out, h)
		}
	}
	return out
}

func (d *Draft) checkTransition(trigger workflow.Trigger) (Status, error) {
	next, err := fireDraft(d.Status, trigger)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		return d.Status, fmt.Errorf("%w: %v", ErrWorkflowViolation, err)
	}

	switch {
	case d.Status == StatusDraft:
		return d.Status, fmt.Errorf("%w: draft %d is not yet submitted", ErrWorkflowViolation, d.ID)
	case d.Status.IsTerminal():
		return d.Status, fmt.Errorf("%w: draft %d is already finished (%s)", ErrWorkflowViolation, d.ID, d.Status)
	default:
		return d.Status, fmt.Errorf("%w: cannot %s draft %d in %s status", ErrWorkflowViolation, strings.ToLower(trigger.String()), d.ID, d.Status)
	}
}

func (d *Draft) actionableStep(trigger workflow.Trigger, stepID int64) (Status, *Step, error) {
	next, err := d.checkTransition(trigger)
	if err != nil {
		return d.Status, nil, err
	}
	step, err := d.findStep(stepID)
	if err != nil {
		return d.Status, nil, err
	}
	return next, step, nil
}

func (d *Draft) findStep(stepID int64) (*Step, error) {
	step, ok := d.StepByID(stepID)
	if !ok {
		return nil, fmt.Errorf("%w: step %d not found on draft %d", ErrNotFound, stepID, d.ID)
	}
	return step, nil
}

func (d *Draft) enterReview(status Status, now time.Time) {
	d.Status = status
	d.SubmittedAt = timePtr(now)
	d.touch(now)
	if next := d.nextWaitingStep(); next != nil {
		next.start()
	}
}

// advance starts the lowest-order WAITING step, or moves the draft to the
// completed status when none is left. A DEFERRED step holds the draft until
// it is post-approved.
func (d *Draft) advance(completed Status, actor string, now time.Time) {
	for _, s := range d.Steps {
		if s.State == StepInProgress || s.State == StepDeferred {
			return
		}
	}
	if next := d.nextWaitingStep(); next != nil {
		next.start()
		return
	}

	d.Status = completed
	d.CompletedAt = timePtr(now)
	d.appendHistory(HistoryCompleted, actor, "", 0, now)
}

func (d *Draft) nextWaitingStep() *Step {
	var next *Step
	for _, s := range d.Steps {
		if s.State != StepWaiting {
			continue
		}
		if next == nil || s.StepOrder < next.StepOrder {
			next = s
		}
	}
	return next
}

func (d *Draft) skipRemaining(actor, reason string, now time.Time) {
	for _, s := range d.Steps {
		s.skip(actor, reason, now)
	}
}

func (d *Draft) appendHistory(eventType HistoryEventType, actor, detail string, stepID int64, now time.Time) {
	d.History = append(d.History, History{
		DraftID:   d.ID,
		StepID:    stepID,
		EventType: eventType,
		Actor:     actor,
		Detail:    detail,
		CreatedAt: now,
	})
}

func (d *Draft) touch(now time.Time) {
	d.UpdatedAt = now
}

func timePtr(t time.Time) *time.Time {
	return &t
}
