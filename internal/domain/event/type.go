package event

// Type identifies the type of domain event
type Type string

const (
	TypeDraftCreated     Type = "draft.created"
	TypeDraftSubmitted   Type = "draft.submitted"
	TypeDraftResubmitted Type = "draft.resubmitted"
	TypeStepStarted      Type = "draft.step_started"
	TypeStepApproved     Type = "draft.step_approved"
	TypeStepRejected     Type = "draft.step_rejected"
	TypeStepDeferred     Type = "draft.step_deferred"
	TypeStepPostApproved Type = "draft.step_post_approved"
	TypeStepDelegated    Type = "draft.step_delegated"
	TypeDraftApproved    Type = "draft.approved"
	TypeDraftRejected    Type = "draft.rejected"
	TypeDraftCancelled   Type = "draft.cancelled"
	TypeDraftWithdrawn   Type = "draft.withdrawn"
)

// Payload keys shared by publishers and subscribers
const (
	KeyTitle         = "title"
	KeyCreatedBy     = "created_by"
	KeyStatus        = "status"
	KeyStepID        = "step_id"
	KeyStepOrder     = "step_order"
	KeyApproverGroup = "approver_group"
	KeyDelegatedTo   = "delegated_to"
	KeyComment       = "comment"
	KeyReferences    = "references"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDraftCreated,
		TypeDraftSubmitted,
		TypeDraftResubmitted,
		TypeStepStarted,
		TypeStepApproved,
		TypeStepRejected,
		TypeStepDeferred,
		TypeStepPostApproved,
		TypeStepDelegated,
		TypeDraftApproved,
		TypeDraftRejected,
		TypeDraftCancelled,
		TypeDraftWithdrawn:
		return true
	default:
		return false
	}
}

// IsFinal reports whether the event closes the workflow of a draft
func (t Type) IsFinal() bool {
	return t == TypeDraftApproved || t == TypeDraftRejected || t == TypeDraftCancelled
}
