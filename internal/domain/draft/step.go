package draft

import (
	"fmt"
	"time"

	"github.com/garyjia/draftflow/internal/domain/workflow"
)

// Step is one sequential approval checkpoint on a draft.
// A step is created already bound to its draft and is only mutated through the aggregate.
type Step struct {
	ID                int64
	DraftID           int64
	StepOrder         int
	ApproverGroupCode string
	Description       string
	State             StepState
	ActedBy           string
	ActedAt           *time.Time
	Comment           string
	DelegatedTo       string
	Version           int64
}

// IsCompleted returns true once the step reached APPROVED, REJECTED or SKIPPED
func (s *Step) IsCompleted() bool {
	return s.State.IsCompleted()
}

// transition checks the trigger against the step machine and returns the target state
func (s *Step) transition(trigger workflow.Trigger) (StepState, error) {
	next, err := fireStep(s.State, trigger)
	if err != nil {
		return s.State, fmt.Errorf("%w: step %d is %s, cannot %s", ErrWorkflowViolation, s.StepOrder, s.State, trigger)
	}
	return next, nil
}

// start activates a WAITING step. Any other state is left untouched.
func (s *Step) start() {
	if s.State != StepWaiting {
		return
	}
	next, err := s.transition(workflow.TriggerStart)
	if err != nil {
		return
	}
	s.State = next
}

func (s *Step) decide(trigger workflow.Trigger, actor, comment string, now time.Time) error {
	next, err := s.transition(trigger)
	if err != nil {
		return err
	}
	s.State = next
	s.record(actor, comment, now)
	return nil
}

func (s *Step) approve(actor, comment string, now time.Time) error {
	return s.decide(workflow.TriggerApprove, actor, comment, now)
}

func (s *Step) reject(actor, comment string, now time.Time) error {
	return s.decide(workflow.TriggerReject, actor, comment, now)
}

func (s *Step) deferDecision(actor, comment string, now time.Time) error {
	return s.decide(workflow.TriggerDefer, actor, comment, now)
}

func (s *Step) approveDeferred(actor, comment string, now time.Time) error {
	return s.decide(workflow.TriggerApproveDeferred, actor, comment, now)
}

// skip closes the step without a decision. Completed steps are left as they are.
func (s *Step) skip(actor, reason string, now time.Time) {
	if s.IsCompleted() {
		return
	}
	next, err := s.transition(workflow.TriggerSkip)
	if err != nil {
		return
	}
	s.State = next
	s.record(actor, reason, now)
}

// delegate names another user to act on the step; the state does not change
func (s *Step) delegate(delegatedTo, comment string) error {
	if s.IsCompleted() {
		return fmt.Errorf("%w: step %d is already %s", ErrWorkflowViolation, s.StepOrder, s.State)
	}
	if _, err := s.transition(workflow.TriggerDelegate); err != nil {
		return err
	}
	s.DelegatedTo = delegatedTo
	s.Comment = comment
	return nil
}

// reset returns the step to WAITING and clears any earlier decision
func (s *Step) reset() {
	next, err := s.transition(workflow.TriggerReset)
	if err != nil {
		return
	}
	s.State = next
	s.ActedBy = ""
	s.ActedAt = nil
	s.Comment = ""
	s.DelegatedTo = ""
}

func (s *Step) record(actor, comment string, now time.Time) {
	at := now
	s.ActedBy = actor
	s.ActedAt = &at
	s.Comment = comment
}

// Clone returns a deep copy of the step
func (s *Step) Clone() *Step {
	c := *s
	if s.ActedAt != nil {
		at := *s.ActedAt
		c.ActedAt = &at
	}
	return &c
}
