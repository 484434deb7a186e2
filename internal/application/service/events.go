package service

import (
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/domain/event"
)

func draftPayload(d *draft.Draft) map[string]interface{} {
	refs := make([]string, 0, len(d.References))
	for _, r := range d.References {
		refs = append(refs, r.UserID)
	}
	return map[string]interface{}{
		event.KeyTitle:      d.Title,
		event.KeyCreatedBy:  d.CreatedBy,
		event.KeyStatus:     d.Status.String(),
		event.KeyReferences: refs,
	}
}

func stepPayload(d *draft.Draft, step *draft.Step, comment string) map[string]interface{} {
	p := draftPayload(d)
	p[event.KeyStepID] = step.ID
	p[event.KeyStepOrder] = step.StepOrder
	p[event.KeyApproverGroup] = step.ApproverGroupCode
	p[event.KeyComment] = comment
	if step.DelegatedTo != "" {
		p[event.KeyDelegatedTo] = step.DelegatedTo
	}
	return p
}

var statusEvents = map[draft.Status]event.Type{
	draft.StatusApproved:  event.TypeDraftApproved,
	draft.StatusRejected:  event.TypeDraftRejected,
	draft.StatusCancelled: event.TypeDraftCancelled,
	draft.StatusWithdrawn: event.TypeDraftWithdrawn,
}

// followUpEvents returns the primary event followed by the events implied by the
// state change: a newly started step and a status change.
// All events share the correlation id of the first one.
func followUpEvents(d *draft.Draft, actor string, primary *event.Event, before draft.Status, beforeStep int64) []*event.Event {
	var events []*event.Event
	correlationID := ""
	add := func(t event.Type, payload map[string]interface{}) {
		evt := event.NewEventWithCorrelation(t, d.ID, actor, payload, correlationID).WithOrganization(d.OrganizationCode)
		if correlationID == "" {
			correlationID = evt.CorrelationID
		}
		events = append(events, evt)
	}

	if primary != nil {
		add(primary.Type, primary.Payload)
	}
	if cur := d.CurrentStep(); cur != nil && cur.ID != beforeStep {
		add(event.TypeStepStarted, stepPayload(d, cur, ""))
	}
	if t, ok := statusEvents[d.Status]; ok && d.Status != before {
		add(t, draftPayload(d))
	}
	return events
}
