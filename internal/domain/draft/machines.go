package draft

import "github.com/garyjia/draftflow/internal/domain/workflow"

var (
	stepMachine  = buildStepMachine()
	draftMachine = buildDraftMachine()
)

func buildStepMachine() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(
		workflow.State(StepWaiting),
		workflow.State(StepInProgress),
		workflow.State(StepApproved),
		workflow.State(StepRejected),
		workflow.State(StepDeferred),
		workflow.State(StepSkipped),
	)

	b.Configure(workflow.State(StepWaiting)).
		Permit(workflow.TriggerStart, workflow.State(StepInProgress)).
		Permit(workflow.TriggerSkip, workflow.State(StepSkipped)).
		PermitReentry(workflow.TriggerDelegate).
		PermitReentry(workflow.TriggerReset)

	b.Configure(workflow.State(StepInProgress)).
		Permit(workflow.TriggerApprove, workflow.State(StepApproved)).
		Permit(workflow.TriggerReject, workflow.State(StepRejected)).
		Permit(workflow.TriggerDefer, workflow.State(StepDeferred)).
		Permit(workflow.TriggerSkip, workflow.State(StepSkipped)).
		PermitReentry(workflow.TriggerDelegate).
		Permit(workflow.TriggerReset, workflow.State(StepWaiting))

	b.Configure(workflow.State(StepDeferred)).
		Permit(workflow.TriggerApproveDeferred, workflow.State(StepApproved)).
		Permit(workflow.TriggerSkip, workflow.State(StepSkipped)).
		PermitReentry(workflow.TriggerDelegate).
		Permit(workflow.TriggerReset, workflow.State(StepWaiting))

	// Completed steps only go back to WAITING on resubmission
	for _, s := range []StepState{StepApproved, StepRejected, StepSkipped} {
		b.Configure(workflow.State(s)).
			Permit(workflow.TriggerReset, workflow.State(StepWaiting))
	}

	return b
}

func buildDraftMachine() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(
		workflow.State(StatusDraft),
		workflow.State(StatusInReview),
		workflow.State(StatusApproved),
		workflow.State(StatusRejected),
		workflow.State(StatusCancelled),
		workflow.State(StatusWithdrawn),
	)

	b.Configure(workflow.State(StatusDraft)).
		Permit(workflow.TriggerSubmit, workflow.State(StatusInReview)).
		Permit(workflow.TriggerCancel, workflow.State(StatusCancelled)).
		PermitReentry(workflow.TriggerDelegate)

	b.Configure(workflow.State(StatusInReview)).
		PermitReentry(workflow.TriggerApprove).
		PermitReentry(workflow.TriggerDefer).
		PermitReentry(workflow.TriggerApproveDeferred).
		PermitReentry(workflow.TriggerDelegate).
		Permit(workflow.TriggerComplete, workflow.State(StatusApproved)).
		Permit(workflow.TriggerReject, workflow.State(StatusRejected)).
		Permit(workflow.TriggerCancel, workflow.State(StatusCancelled)).
		Permit(workflow.TriggerWithdraw, workflow.State(StatusWithdrawn))

	b.Configure(workflow.State(StatusWithdrawn)).
		Permit(workflow.TriggerResubmit, workflow.State(StatusInReview)).
		Permit(workflow.TriggerCancel, workflow.State(StatusCancelled))

	// APPROVED, REJECTED and CANCELLED are terminal - no outgoing transitions

	return b
}

// fireStep validates a trigger against the step machine and returns the target state
func fireStep(current StepState, trigger workflow.Trigger) (StepState, error) {
	m := stepMachine.Build(workflow.State(current))
	if err := m.Fire(trigger); err != nil {
		return current, err
	}
	return StepState(m.State()), nil
}

// fireDraft validates a trigger against the draft machine and returns the target status
func fireDraft(current Status, trigger workflow.Trigger) (Status, error) {
	m := draftMachine.Build(workflow.State(current))
	if err := m.Fire(trigger); err != nil {
		return current, err
	}
	return Status(m.State()), nil
}

func permittedDraftTriggers(current Status) []workflow.Trigger {
	return draftMachine.Build(workflow.State(current)).PermittedTriggers()
}

func stepCanFire(current StepState, trigger workflow.Trigger) bool {
	return stepMachine.Build(workflow.State(current)).CanFire(trigger)
}
