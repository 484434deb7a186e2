package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit          Trigger = "SUBMIT"
	TriggerResubmit        Trigger = "RESUBMIT"
	TriggerStart           Trigger = "START"
	TriggerApprove         Trigger = "APPROVE"
	TriggerReject          Trigger = "REJECT"
	TriggerDefer           Trigger = "DEFER"
	TriggerApproveDeferred Trigger = "APPROVE_DEFERRED"
	TriggerSkip            Trigger = "SKIP"
	TriggerDelegate        Trigger = "DELEGATE"
	TriggerReset           Trigger = "RESET"
	TriggerComplete        Trigger = "COMPLETE"
	TriggerCancel          Trigger = "CANCEL"
	TriggerWithdraw        Trigger = "WITHDRAW"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
