package draft

import "time"

// HistoryEventType names a lifecycle event recorded on a draft
type HistoryEventType string

const (
	HistoryCreated          HistoryEventType = "CREATED"
	HistorySubmitted        HistoryEventType = "SUBMITTED"
	HistoryStepApproved     HistoryEventType = "STEP_APPROVED"
	HistoryStepRejected     HistoryEventType = "STEP_REJECTED"
	HistoryStepDeferred     HistoryEventType = "STEP_DEFERRED"
	HistoryStepPostApproved HistoryEventType = "STEP_POST_APPROVED"
	HistoryDelegated        HistoryEventType = "DELEGATED"
	HistoryCompleted        HistoryEventType = "COMPLETED"
	HistoryRejected         HistoryEventType = "REJECTED"
	HistoryCancelled        HistoryEventType = "CANCELLED"
	HistoryWithdrawn        HistoryEventType = "WITHDRAWN"
	HistoryResubmitted      HistoryEventType = "RESUBMITTED"
)

// History is one immutable audit entry.
// ID is assigned by the store; zero means the entry has not been persisted yet.
type History struct {
	ID        int64
	DraftID   int64
	StepID    int64
	EventType HistoryEventType
	Actor     string
	Detail    string
	CreatedAt time.Time
}

// IsPersisted reports whether the entry was already written
func (h History) IsPersisted() bool {
	return h.ID != 0
}
