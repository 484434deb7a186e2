package draft

// Status is the lifecycle status of a draft
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusInReview  Status = "IN_REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusWithdrawn Status = "WITHDRAWN"
)

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsTerminal returns true if no further workflow operation is allowed.
// WITHDRAWN is not terminal: it can be resubmitted or cancelled.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// StepState is the state of a single approval step
type StepState string

const (
	StepWaiting    StepState = "WAITING"
	StepInProgress StepState = "IN_PROGRESS"
	StepApproved   StepState = "APPROVED"
	StepRejected   StepState = "REJECTED"
	StepDeferred   StepState = "DEFERRED"
	StepSkipped    StepState = "SKIPPED"
)

// IsCompleted returns true for APPROVED, REJECTED and SKIPPED
func (s StepState) IsCompleted() bool {
	return s == StepApproved || s == StepRejected || s == StepSkipped
}

// String returns the string representation of the step state
func (s StepState) String() string {
	return string(s)
}
