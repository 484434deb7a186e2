package lark

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/dispatcher"
	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/event"
)

// Notifier turns committed workflow events into chat messages
type Notifier struct {
	sender    port.MessageSender
	directory port.ApprovalGroupDirectory
	logger    *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(sender port.MessageSender, directory port.ApprovalGroupDirectory, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		directory: directory,
		logger:    logger,
	}
}

// Register subscribes the notifier to the events it reacts to
func (n *Notifier) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeStepStarted,
		event.TypeStepDelegated,
		event.TypeStepDeferred,
		event.TypeDraftApproved,
		event.TypeDraftRejected,
		event.TypeDraftCancelled,
		event.TypeDraftWithdrawn,
	} {
		d.Subscribe(t, "lark_notifier", n.Handle)
	}
}

// Handle sends the messages for one event. A failed recipient does not stop the others.
func (n *Notifier) Handle(ctx context.Context, evt *event.Event) error {
	recipients, err := n.recipients(ctx, evt)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		n.logger.Debug("No recipients for event",
			zap.String("event_type", string(evt.Type)),
			zap.Int64("draft_id", evt.DraftID))
		return nil
	}

	text := messageText(evt)
	var errs []error
	for _, userID := range recipients {
		if err := n.sender.SendText(ctx, userID, text); err != nil {
			n.logger.Error("Failed to notify user",
				zap.String("user_id", userID),
				zap.String("event_type", string(evt.Type)),
				zap.Int64("draft_id", evt.DraftID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) recipients(ctx context.Context, evt *event.Event) ([]string, error) {
	switch evt.Type {
	case event.TypeStepStarted:
		if delegate := evt.GetPayloadString(event.KeyDelegatedTo); delegate != "" {
			return []string{delegate}, nil
		}
		group := evt.GetPayloadString(event.KeyApproverGroup)
		members, err := n.directory.FindActiveMembers(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve approver group %s: %w", group, err)
		}
		return members, nil
	case event.TypeStepDelegated:
		return uniqueExcept(evt.Actor, evt.GetPayloadString(event.KeyDelegatedTo)), nil
	case event.TypeStepDeferred:
		return uniqueExcept(evt.Actor, evt.GetPayloadString(event.KeyCreatedBy)), nil
	default:
		users := append([]string{evt.GetPayloadString(event.KeyCreatedBy)}, evt.GetPayloadStrings(event.KeyReferences)...)
		return uniqueExcept(evt.Actor, users...), nil
	}
}

func messageText(evt *event.Event) string {
	title := evt.GetPayloadString(event.KeyTitle)
	step := evt.GetPayloadInt(event.KeyStepOrder)

	var text string
	switch evt.Type {
	case event.TypeStepStarted:
		text = fmt.Sprintf("Draft %q (#%d) is waiting for your approval at step %d.", title, evt.DraftID, step)
	case event.TypeStepDelegated:
		text = fmt.Sprintf("%s delegated step %d of draft %q (#%d) to you.", evt.Actor, step, title, evt.DraftID)
	case event.TypeStepDeferred:
		text = fmt.Sprintf("%s deferred step %d of your draft %q (#%d).", evt.Actor, step, title, evt.DraftID)
	case event.TypeDraftApproved:
		text = fmt.Sprintf("Draft %q (#%d) was approved.", title, evt.DraftID)
	case event.TypeDraftRejected:
		text = fmt.Sprintf("Draft %q (#%d) was rejected by %s.", title, evt.DraftID, evt.Actor)
	case event.TypeDraftCancelled:
		text = fmt.Sprintf("Draft %q (#%d) was cancelled by %s.", title, evt.DraftID, evt.Actor)
	case event.TypeDraftWithdrawn:
		text = fmt.Sprintf("Draft %q (#%d) was withdrawn by %s.", title, evt.DraftID, evt.Actor)
	default:
		text = fmt.Sprintf("Draft %q (#%d): %s", title, evt.DraftID, evt.Type)
	}

	if comment := evt.GetPayloadString(event.KeyComment); comment != "" {
		text += "\nComment: " + comment
	}
	return text
}

// uniqueExcept drops empty ids, duplicates and the acting user
func uniqueExcept(actor string, users ...string) []string {
	seen := map[string]bool{actor: true, "": true}
	var out []string
	for _, u := range users {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
