package port

import (
	"context"

	"github.com/garyjia/draftflow/internal/domain/draft"
)

// DraftFilter narrows a draft listing. Zero values mean "no filter".
type DraftFilter struct {
	OrganizationCode string
	AuditAccess      bool
	Status           draft.Status
	BusinessFeature  string
	CreatedBy        string
	Title            string
	Limit            int
	Offset           int
}

// DraftPage is one page of a draft listing
type DraftPage struct {
	Items []*draft.Draft
	Total int
}

// DraftRepository defines persistence operations for the Draft aggregate
type DraftRepository interface {
	// Create inserts a new draft together with its steps, history, attachments and references
	Create(ctx context.Context, d *draft.Draft) error

	// GetByID loads a draft with all of its children; draft.ErrNotFound if absent
	GetByID(ctx context.Context, id int64) (*draft.Draft, error)

	// Save writes the draft header, steps (version checked), new history entries,
	// attachments and references. draft.ErrConcurrentModification on a stale step.
	Save(ctx context.Context, d *draft.Draft) error

	// List returns drafts matching the filter, newest first, without children
	List(ctx context.Context, filter DraftFilter) (*DraftPage, error)

	// ListHistory returns the audit trail of a draft in insertion order
	ListHistory(ctx context.Context, draftID int64) ([]draft.History, error)

	// ListReferences returns the users CC'd on a draft
	ListReferences(ctx context.Context, draftID int64) ([]draft.Reference, error)
}

// TemplateRepository defines persistence operations for approval line templates
type TemplateRepository interface {
	Create(ctx context.Context, t *draft.ApprovalLineTemplate) error
	Update(ctx context.Context, t *draft.ApprovalLineTemplate) error
	GetByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error)

	// GetActiveByID returns draft.ErrNotFound for unknown or inactive templates
	GetActiveByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error)

	// List returns templates for a business feature usable by an organization.
	// Empty arguments disable the corresponding filter.
	List(ctx context.Context, businessFeature, organizationCode string, activeOnly bool) ([]*draft.ApprovalLineTemplate, error)
}

// FormTemplate is the versioned schema a draft's form payload conforms to
type FormTemplate struct {
	ID      int64
	Code    string
	Version int
	Schema  string
	Active  bool
}

// FormTemplateRepository defines read access to form templates
type FormTemplateRepository interface {
	// GetActiveByID returns draft.ErrNotFound for unknown or inactive form templates
	GetActiveByID(ctx context.Context, id int64) (*FormTemplate, error)
}

// TransactionManager runs fn inside one database transaction carried by the context
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
