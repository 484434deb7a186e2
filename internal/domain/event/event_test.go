package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"submitted", TypeDraftSubmitted, true},
		{"step started", TypeStepStarted, true},
		{"delegated", TypeStepDelegated, true},
		{"withdrawn", TypeDraftWithdrawn, true},
		{"unknown", Type("draft.exploded"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestType_IsFinal(t *testing.T) {
	assert.True(t, TypeDraftApproved.IsFinal())
	assert.True(t, TypeDraftCancelled.IsFinal())
	assert.False(t, TypeDraftWithdrawn.IsFinal())
	assert.False(t, TypeStepApproved.IsFinal())
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeDraftSubmitted, 42, "alice", map[string]interface{}{KeyTitle: "offsite"})

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, int64(42), evt.DraftID)
	assert.Equal(t, "alice", evt.Actor)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, "offsite", evt.GetPayloadString(KeyTitle))

	other := NewEvent(TypeDraftSubmitted, 42, "alice", nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestNewEventWithCorrelation(t *testing.T) {
	first := NewEvent(TypeStepApproved, 1, "tom", nil)
	next := NewEventWithCorrelation(TypeStepStarted, 1, "tom", nil, first.CorrelationID)

	assert.NotEqual(t, first.ID, next.ID)
	assert.Equal(t, first.CorrelationID, next.CorrelationID)
}

func TestWithPayload_DoesNotMutateOriginal(t *testing.T) {
	evt := NewEvent(TypeStepStarted, 1, "tom", map[string]interface{}{KeyStepID: int64(5)})
	updated := evt.WithPayload(KeyApproverGroup, "DEPT_HEAD").WithOrganization("ORG-A")

	assert.Equal(t, "", evt.GetPayloadString(KeyApproverGroup))
	assert.Equal(t, "", evt.OrganizationCode)
	assert.Equal(t, "DEPT_HEAD", updated.GetPayloadString(KeyApproverGroup))
	assert.Equal(t, int64(5), updated.GetPayloadInt(KeyStepID))
	assert.Equal(t, "ORG-A", updated.OrganizationCode)
	assert.Equal(t, evt.ID, updated.ID)
}

func TestPayloadStrings_SurvivesJSON(t *testing.T) {
	evt := NewEvent(TypeDraftApproved, 1, "dora", map[string]interface{}{KeyReferences: []string{"erin", "finn"}})
	assert.Equal(t, []string{"erin", "finn"}, evt.GetPayloadStrings(KeyReferences))

	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, []string{"erin", "finn"}, decoded.GetPayloadStrings(KeyReferences))
	assert.Equal(t, int64(1), decoded.DraftID)
	assert.Nil(t, decoded.GetPayloadStrings("missing"))
}
