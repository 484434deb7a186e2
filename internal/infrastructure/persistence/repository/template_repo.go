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

const templateColumns = `id, code, name, business_feature, scope, organization_code, active, created_at, updated_at`

// TemplateRepository implements port.TemplateRepository on sqlite
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new approval line template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a template and its steps
func (r *TemplateRepository) Create(ctx context.Context, t *draft.ApprovalLineTemplate) error {
	exec := sqlite.Executor(ctx, r.db)

	_, err := exec.ExecContext(ctx, `INSERT INTO approval_line_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Code, t.Name, t.BusinessFeature, string(t.Scope), t.OrganizationCode,
		boolToInt(t.Active), t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: template code %q already exists", draft.ErrInvalidArgument, t.Code)
	}
	if err != nil {
		r.logger.Error("Failed to create template", zap.String("code", t.Code), zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}

	return r.insertSteps(ctx, exec, t)
}

// Update rewrites the template header and replaces its steps
func (r *TemplateRepository) Update(ctx context.Context, t *draft.ApprovalLineTemplate) error {
	exec := sqlite.Executor(ctx, r.db)

	res, err := exec.ExecContext(ctx, `
		UPDATE approval_line_templates SET
			name = ?, business_feature = ?, scope = ?, organization_code = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.BusinessFeature, string(t.Scope), t.OrganizationCode, boolToInt(t.Active), t.UpdatedAt, t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update template", zap.Int64("template_id", t.ID), zap.Error(err))
		return fmt.Errorf("failed to update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: template %d", draft.ErrNotFound, t.ID)
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM approval_line_template_steps WHERE template_id = ?`, t.ID); err != nil {
		r.logger.Error("Failed to clear template steps", zap.Int64("template_id", t.ID), zap.Error(err))
		return fmt.Errorf("failed to clear template steps: %w", err)
	}
	return r.insertSteps(ctx, exec, t)
}

// GetByID loads a template regardless of its active flag
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error) {
	return r.get(ctx, id, false)
}

// GetActiveByID loads an active template
func (r *TemplateRepository) GetActiveByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error) {
	return r.get(ctx, id, true)
}

func (r *TemplateRepository) get(ctx context.Context, id int64, activeOnly bool) (*draft.ApprovalLineTemplate, error) {
	exec := sqlite.Executor(ctx, r.db)

	query := `SELECT ` + templateColumns + ` FROM approval_line_templates WHERE id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}

	t, err := scanTemplate(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: template %d", draft.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.Int64("template_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if t.Steps, err = r.loadSteps(ctx, exec, id); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns templates ordered by code
func (r *TemplateRepository) List(ctx context.Context, businessFeature, organizationCode string, activeOnly bool) ([]*draft.ApprovalLineTemplate, error) {
	exec := sqlite.Executor(ctx, r.db)

	var where []string
	var args []interface{}
	if businessFeature != "" {
		where = append(where, "business_feature = ?")
		args = append(args, businessFeature)
	}
	if organizationCode != "" {
		where = append(where, "(scope = ? OR organization_code = ?)")
		args = append(args, string(draft.ScopeGlobal), organizationCode)
	}
	if activeOnly {
		where = append(where, "active = 1")
	}

	query := `SELECT ` + templateColumns + ` FROM approval_line_templates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY code ASC"

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var templates []*draft.ApprovalLineTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	// steps are loaded after the cursor is closed; a transaction holds one connection
	rows.Close()

	for _, t := range templates {
		if t.Steps, err = r.loadSteps(ctx, exec, t.ID); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *TemplateRepository) insertSteps(ctx context.Context, exec sqlite.DBTX, t *draft.ApprovalLineTemplate) error {
	for _, s := range t.Steps {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO approval_line_template_steps (template_id, step_order, approver_group_code, description)
			VALUES (?, ?, ?, ?)`,
			t.ID, s.StepOrder, s.ApproverGroupCode, s.Description,
		)
		if err != nil {
			r.logger.Error("Failed to insert template step",
				zap.Int64("template_id", t.ID),
				zap.Int("step_order", s.StepOrder),
				zap.Error(err))
			return fmt.Errorf("failed to insert template step: %w", err)
		}
	}
	return nil
}

func (r *TemplateRepository) loadSteps(ctx context.Context, exec sqlite.DBTX, templateID int64) ([]draft.TemplateStep, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT step_order, approver_group_code, description
		FROM approval_line_template_steps
		WHERE template_id = ?
		ORDER BY step_order ASC`, templateID)
	if err != nil {
		r.logger.Error("Failed to load template steps", zap.Int64("template_id", templateID), zap.Error(err))
		return nil, fmt.Errorf("failed to load template steps: %w", err)
	}
	defer rows.Close()

	var steps []draft.TemplateStep
	for rows.Next() {
		var s draft.TemplateStep
		if err := rows.Scan(&s.StepOrder, &s.ApproverGroupCode, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan template step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func scanTemplate(row rowScanner) (*draft.ApprovalLineTemplate, error) {
	var t draft.ApprovalLineTemplate
	var scope string
	var active int
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.BusinessFeature, &scope, &t.OrganizationCode,
		&active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Scope = draft.TemplateScope(scope)
	t.Active = active == 1
	return &t, nil
}

var _ port.TemplateRepository = (*TemplateRepository)(nil)
