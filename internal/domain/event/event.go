package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a workflow event published after a draft change was committed
type Event struct {
	ID               string                 `json:"id"`
	Type             Type                   `json:"type"`
	DraftID          int64                  `json:"draft_id"`
	OrganizationCode string                 `json:"organization_code"`
	Actor            string                 `json:"actor"`
	Payload          map[string]interface{} `json:"payload"`
	Timestamp        time.Time              `json:"timestamp"`
	CorrelationID    string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, draftID int64, actor string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		DraftID:       draftID,
		Actor:         actor,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewEventWithCorrelation creates an event that belongs to an existing correlation chain.
// All events produced by one request share the correlation id of the first.
func NewEventWithCorrelation(eventType Type, draftID int64, actor string, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, draftID, actor, payload)
	if correlationID != "" {
		evt.CorrelationID = correlationID
	}
	return evt
}

// WithPayload returns a copy of the event with an added payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// WithOrganization returns a copy of the event scoped to an organization
func (e *Event) WithOrganization(code string) *Event {
	cp := *e
	cp.OrganizationCode = code
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadStrings retrieves a string list from the payload
func (e *Event) GetPayloadStrings(key string) []string {
	val, ok := e.Payload[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
