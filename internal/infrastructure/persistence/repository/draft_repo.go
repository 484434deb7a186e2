package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const draftColumns = `
	id, title, content, business_feature, organization_code, template_id, template_code,
	form_template_id, form_version, form_schema, form_payload,
	status, created_by, created_at, updated_at, submitted_at, completed_at, cancelled_at`

// DraftRepository implements port.DraftRepository on sqlite
type DraftRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *sql.DB, logger *zap.Logger) *DraftRepository {
	return &DraftRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a draft and all of its children
func (r *DraftRepository) Create(ctx context.Context, d *draft.Draft) error {
	exec := sqlite.Executor(ctx, r.db)

	var formID, formVersion sql.NullInt64
	var formSchema, formPayload sql.NullString
	if f := d.FormSnapshot; f != nil {
		formID = nullInt64(f.FormTemplateID)
		formVersion = sql.NullInt64{Int64: int64(f.Version), Valid: true}
		formSchema = sql.NullString{String: f.Schema, Valid: true}
		formPayload = sql.NullString{String: f.Payload, Valid: true}
	}

	_, err := exec.ExecContext(ctx, `INSERT INTO drafts (`+draftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.BusinessFeature, d.OrganizationCode, d.TemplateID, d.TemplateCode,
		formID, formVersion, formSchema, formPayload,
		string(d.Status), d.CreatedBy, d.CreatedAt, d.UpdatedAt,
		nullTime(d.SubmittedAt), nullTime(d.CompletedAt), nullTime(d.CancelledAt),
	)
	if err != nil {
		r.logger.Error("Failed to create draft", zap.Int64("draft_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to create draft: %w", err)
	}

	for _, s := range d.Steps {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO draft_approval_steps (
				id, draft_id, step_order, approver_group_code, description, state,
				acted_by, acted_at, comment, delegated_to, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, d.ID, s.StepOrder, s.ApproverGroupCode, s.Description, string(s.State),
			s.ActedBy, nullTime(s.ActedAt), s.Comment, s.DelegatedTo, s.Version,
		)
		if err != nil {
			r.logger.Error("Failed to create draft step", zap.Int64("draft_id", d.ID), zap.Int("step_order", s.StepOrder), zap.Error(err))
			return fmt.Errorf("failed to create draft step: %w", err)
		}
	}

	return r.saveChildren(ctx, exec, d)
}

// GetByID loads a draft with steps, history, attachments and references
func (r *DraftRepository) GetByID(ctx context.Context, id int64) (*draft.Draft, error) {
	exec := sqlite.Executor(ctx, r.db)

	row := exec.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: draft %d", draft.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get draft", zap.Int64("draft_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if d.Steps, err = r.loadSteps(ctx, exec, id); err != nil {
		return nil, err
	}
	if d.History, err = r.loadHistory(ctx, exec, id); err != nil {
		return nil, err
	}
	if d.Attachments, err = r.loadAttachments(ctx, exec, id); err != nil {
		return nil, err
	}
	if d.References, err = r.loadReferences(ctx, exec, id); err != nil {
		return nil, err
	}
	return d, nil
}

// Save writes the header, the steps under optimistic version checks and any new children.
// It should run inside a transaction so a conflict on one step discards the whole write.
func (r *DraftRepository) Save(ctx context.Context, d *draft.Draft) error {
	if !sqlite.InTransaction(ctx) {
		r.logger.Warn("Draft saved outside a transaction", zap.Int64("draft_id", d.ID))
	}
	exec := sqlite.Executor(ctx, r.db)

	var formPayload sql.NullString
	if d.FormSnapshot != nil {
		formPayload = sql.NullString{String: d.FormSnapshot.Payload, Valid: true}
	}

	res, err := exec.ExecContext(ctx, `
		UPDATE drafts SET
			title = ?, content = ?, form_payload = ?, status = ?, updated_at = ?,
			submitted_at = ?, completed_at = ?, cancelled_at = ?
		WHERE id = ?`,
		d.Title, d.Content, formPayload, string(d.Status), d.UpdatedAt,
		nullTime(d.SubmittedAt), nullTime(d.CompletedAt), nullTime(d.CancelledAt),
		d.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.Int64("draft_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: draft %d", draft.ErrNotFound, d.ID)
	}

	for _, s := range d.Steps {
		res, err := exec.ExecContext(ctx, `
			UPDATE draft_approval_steps SET
				state = ?, acted_by = ?, acted_at = ?, comment = ?, delegated_to = ?,
				version = version + 1
			WHERE id = ? AND draft_id = ? AND version = ?`,
			string(s.State), s.ActedBy, nullTime(s.ActedAt), s.Comment, s.DelegatedTo,
			s.ID, d.ID, s.Version,
		)
		if err != nil {
			r.logger.Error("Failed to update draft step", zap.Int64("step_id", s.ID), zap.Error(err))
			return fmt.Errorf("failed to update draft step: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: step %d of draft %d was changed by another request", draft.ErrConcurrentModification, s.StepOrder, d.ID)
		}
	}

	if err := r.saveChildren(ctx, exec, d); err != nil {
		return err
	}

	for _, s := range d.Steps {
		s.Version++
	}
	return nil
}

// saveChildren appends new history entries and inserts attachments and references not yet stored
func (r *DraftRepository) saveChildren(ctx context.Context, exec sqlite.DBTX, d *draft.Draft) error {
	for i := range d.History {
		h := &d.History[i]
		if h.IsPersisted() {
			continue
		}
		res, err := exec.ExecContext(ctx, `
			INSERT INTO draft_history (draft_id, step_id, event_type, actor, detail, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, nullInt64(h.StepID), string(h.EventType), h.Actor, h.Detail, h.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to append draft history", zap.Int64("draft_id", d.ID), zap.Error(err))
			return fmt.Errorf("failed to append draft history: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		h.ID = id
		h.DraftID = d.ID
	}

	for _, a := range d.Attachments {
		_, err := exec.ExecContext(ctx, `
			INSERT OR IGNORE INTO draft_attachments (
				id, draft_id, file_name, storage_key, content_type, size, uploaded_by, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, d.ID, a.FileName, a.StorageKey, a.ContentType, a.Size, a.UploadedBy, a.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to save attachment", zap.Int64("draft_id", d.ID), zap.Error(err))
			return fmt.Errorf("failed to save attachment: %w", err)
		}
	}

	for _, ref := range d.References {
		_, err := exec.ExecContext(ctx, `
			INSERT OR IGNORE INTO draft_references (id, draft_id, user_id, created_at)
			VALUES (?, ?, ?, ?)`,
			ref.ID, d.ID, ref.UserID, ref.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to save reference", zap.Int64("draft_id", d.ID), zap.Error(err))
			return fmt.Errorf("failed to save reference: %w", err)
		}
	}
	return nil
}

// List returns a page of drafts matching the filter, newest first
func (r *DraftRepository) List(ctx context.Context, filter port.DraftFilter) (*port.DraftPage, error) {
	exec := sqlite.Executor(ctx, r.db)

	var where []string
	var args []interface{}
	if !filter.AuditAccess {
		where = append(where, "organization_code = ?")
		args = append(args, filter.OrganizationCode)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.BusinessFeature != "" {
		where = append(where, "business_feature = ?")
		args = append(args, filter.BusinessFeature)
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.Title != "" {
		where = append(where, "title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Title)+"%")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := &port.DraftPage{}
	if err := exec.QueryRowContext(ctx, "SELECT COUNT(*) FROM drafts"+clause, args...).Scan(&page.Total); err != nil {
		r.logger.Error("Failed to count drafts", zap.Error(err))
		return nil, fmt.Errorf("failed to count drafts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + draftColumns + " FROM drafts" + clause + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := exec.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		r.logger.Error("Failed to list drafts", zap.Error(err))
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		page.Items = append(page.Items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}
	return page, nil
}

// ListHistory returns the audit trail of a draft in insertion order
func (r *DraftRepository) ListHistory(ctx context.Context, draftID int64) ([]draft.History, error) {
	return r.loadHistory(ctx, sqlite.Executor(ctx, r.db), draftID)
}

// ListReferences returns the users CC'd on a draft
func (r *DraftRepository) ListReferences(ctx context.Context, draftID int64) ([]draft.Reference, error) {
	return r.loadReferences(ctx, sqlite.Executor(ctx, r.db), draftID)
}

func (r *DraftRepository) loadSteps(ctx context.Context, exec sqlite.DBTX, draftID int64) ([]*draft.Step, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, draft_id, step_order, approver_group_code, description, state,
			acted_by, acted_at, comment, delegated_to, version
		FROM draft_approval_steps
		WHERE draft_id = ?
		ORDER BY step_order ASC`, draftID)
	if err != nil {
		r.logger.Error("Failed to load draft steps", zap.Int64("draft_id", draftID), zap.Error(err))
		return nil, fmt.Errorf("failed to load draft steps: %w", err)
	}
	defer rows.Close()

	var steps []*draft.Step
	for rows.Next() {
		var s draft.Step
		var state string
		var actedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.DraftID, &s.StepOrder, &s.ApproverGroupCode, &s.Description, &state,
			&s.ActedBy, &actedAt, &s.Comment, &s.DelegatedTo, &s.Version); err != nil {
			return nil, fmt.Errorf("failed to scan draft step: %w", err)
		}
		s.State = draft.StepState(state)
		s.ActedAt = timePtr(actedAt)
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}

func (r *DraftRepository) loadHistory(ctx context.Context, exec sqlite.DBTX, draftID int64) ([]draft.History, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, draft_id, step_id, event_type, actor, detail, created_at
		FROM draft_history
		WHERE draft_id = ?
		ORDER BY id ASC`, draftID)
	if err != nil {
		r.logger.Error("Failed to load draft history", zap.Int64("draft_id", draftID), zap.Error(err))
		return nil, fmt.Errorf("failed to load draft history: %w", err)
	}
	defer rows.Close()

	var history []draft.History
	for rows.Next() {
		var h draft.History
		var stepID sql.NullInt64
		var eventType string
		if err := rows.Scan(&h.ID, &h.DraftID, &stepID, &eventType, &h.Actor, &h.Detail, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft history: %w", err)
		}
		h.StepID = stepID.Int64
		h.EventType = draft.HistoryEventType(eventType)
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *DraftRepository) loadAttachments(ctx context.Context, exec sqlite.DBTX, draftID int64) ([]draft.Attachment, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, draft_id, file_name, storage_key, content_type, size, uploaded_by, created_at
		FROM draft_attachments
		WHERE draft_id = ?
		ORDER BY created_at ASC, id ASC`, draftID)
	if err != nil {
		r.logger.Error("Failed to load attachments", zap.Int64("draft_id", draftID), zap.Error(err))
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	defer rows.Close()

	var out []draft.Attachment
	for rows.Next() {
		var a draft.Attachment
		if err := rows.Scan(&a.ID, &a.DraftID, &a.FileName, &a.StorageKey, &a.ContentType, &a.Size, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *DraftRepository) loadReferences(ctx context.Context, exec sqlite.DBTX, draftID int64) ([]draft.Reference, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, draft_id, user_id, created_at
		FROM draft_references
		WHERE draft_id = ?
		ORDER BY id ASC`, draftID)
	if err != nil {
		r.logger.Error("Failed to load references", zap.Int64("draft_id", draftID), zap.Error(err))
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	defer rows.Close()

	var out []draft.Reference
	for rows.Next() {
		var ref draft.Reference
		if err := rows.Scan(&ref.ID, &ref.DraftID, &ref.UserID, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func scanDraft(row rowScanner) (*draft.Draft, error) {
	var d draft.Draft
	var status string
	var formID, formVersion sql.NullInt64
	var formSchema, formPayload sql.NullString
	var submittedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.Title, &d.Content, &d.BusinessFeature, &d.OrganizationCode, &d.TemplateID, &d.TemplateCode,
		&formID, &formVersion, &formSchema, &formPayload,
		&status, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt, &submittedAt, &completedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = draft.Status(status)
	d.SubmittedAt = timePtr(submittedAt)
	d.CompletedAt = timePtr(completedAt)
	d.CancelledAt = timePtr(cancelledAt)
	if formID.Valid {
		d.FormSnapshot = &draft.FormSnapshot{
			FormTemplateID: formID.Int64,
			Version:        int(formVersion.Int64),
			Schema:         formSchema.String,
			Payload:        formPayload.String,
		}
	}
	return &d, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ port.DraftRepository = (*DraftRepository)(nil)
