package service

import (
	"time"

	"github.com/garyjia/draftflow/internal/domain/draft"
)

// StepSnapshot is the read model of one approval step
type StepSnapshot struct {
	ID                int64      `json:"id"`
	StepOrder         int        `json:"step_order"`
	ApproverGroupCode string     `json:"approver_group_code"`
	Description       string     `json:"description,omitempty"`
	State             string     `json:"state"`
	ActedBy           string     `json:"acted_by,omitempty"`
	ActedAt           *time.Time `json:"acted_at,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	DelegatedTo       string     `json:"delegated_to,omitempty"`
	Version           int64      `json:"version"`
}

// AttachmentView is the read model of a draft attachment
type AttachmentView struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// FormView is the read model of the form snapshot
type FormView struct {
	FormTemplateID int64  `json:"form_template_id"`
	Version        int    `json:"version"`
	Schema         string `json:"schema"`
	Payload        string `json:"payload"`
}

// DraftSnapshot is the full read model returned by every write operation
type DraftSnapshot struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	BusinessFeature  string           `json:"business_feature"`
	OrganizationCode string           `json:"organization_code"`
	TemplateCode     string           `json:"template_code"`
	Status           string           `json:"status"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CurrentStepID    *int64           `json:"current_step_id,omitempty"`
	Form             *FormView        `json:"form,omitempty"`
	Steps            []StepSnapshot   `json:"steps"`
	Attachments      []AttachmentView `json:"attachments"`
	References       []string         `json:"references"`
	AvailableActions []string         `json:"available_actions"`
}

// DraftSummary is the list item read model
type DraftSummary struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	BusinessFeature  string     `json:"business_feature"`
	OrganizationCode string     `json:"organization_code"`
	Status           string     `json:"status"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
}

// DraftList is one page of draft summaries
type DraftList struct {
	Items  []DraftSummary `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// HistoryView is the read model of one audit entry
type HistoryView struct {
	ID        int64     `json:"id"`
	StepID    *int64    `json:"step_id,omitempty"`
	EventType string    `json:"event_type"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReferenceView is the read model of a CC'd user
type ReferenceView struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toSnapshot(d *draft.Draft) *DraftSnapshot {
	snap := &DraftSnapshot{
		ID:               d.ID,
		Title:            d.Title,
		Content:          d.Content,
		BusinessFeature:  d.BusinessFeature,
		OrganizationCode: d.OrganizationCode,
		TemplateCode:     d.TemplateCode,
		Status:           d.Status.String(),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		SubmittedAt:      copyTime(d.SubmittedAt),
		CompletedAt:      copyTime(d.CompletedAt),
		CancelledAt:      copyTime(d.CancelledAt),
		Steps:            make([]StepSnapshot, 0, len(d.Steps)),
		Attachments:      make([]AttachmentView, 0, len(d.Attachments)),
		References:       make([]string, 0, len(d.References)),
		AvailableActions: d.AvailableActions(),
	}

	if d.FormSnapshot != nil {
		snap.Form = &FormView{
			FormTemplateID: d.FormSnapshot.FormTemplateID,
			Version:        d.FormSnapshot.Version,
			Schema:         d.FormSnapshot.Schema,
			Payload:        d.FormSnapshot.Payload,
		}
	}
	if cur := d.CurrentStep(); cur != nil {
		id := cur.ID
		snap.CurrentStepID = &id
	}
	for _, s := range d.Steps {
		snap.Steps = append(snap.Steps, StepSnapshot{
			ID:                s.ID,
			StepOrder:         s.StepOrder,
			ApproverGroupCode: s.ApproverGroupCode,
			Description:       s.Description,
			State:             s.State.String(),
			ActedBy:           s.ActedBy,
			ActedAt:           copyTime(s.ActedAt),
			Comment:           s.Comment,
			DelegatedTo:       s.DelegatedTo,
			Version:           s.Version,
		})
	}
	for _, a := range d.Attachments {
		snap.Attachments = append(snap.Attachments, AttachmentView{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Size:        a.Size,
			UploadedBy:  a.UploadedBy,
			CreatedAt:   a.CreatedAt,
		})
	}
	for _, r := range d.References {
		snap.References = append(snap.References, r.UserID)
	}
	return snap
}

func toSummary(d *draft.Draft) DraftSummary {
	return DraftSummary{
		ID:               d.ID,
		Title:            d.Title,
		BusinessFeature:  d.BusinessFeature,
		OrganizationCode: d.OrganizationCode,
		Status:           d.Status.String(),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		SubmittedAt:      copyTime(d.SubmittedAt),
	}
}

func toHistoryViews(entries []draft.History) []HistoryView {
	out := make([]HistoryView, 0, len(entries))
	for _, h := range entries {
		v := HistoryView{
			ID:        h.ID,
			EventType: string(h.EventType),
			Actor:     h.Actor,
			Detail:    h.Detail,
			CreatedAt: h.CreatedAt,
		}
		if h.StepID != 0 {
			stepID := h.StepID
			v.StepID = &stepID
		}
		out = append(out, v)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
