package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// FormTemplateRepository implements port.FormTemplateRepository
type FormTemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFormTemplateRepository creates a new form template repository
func NewFormTemplateRepository(db *sql.DB, logger *zap.Logger) *FormTemplateRepository {
	return &FormTemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create registers a form schema version. The (code, version) pair must be unique.
func (r *FormTemplateRepository) Create(ctx context.Context, f *port.FormTemplate) error {
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO form_templates (id, code, version, schema_json, active)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Code, f.Version, f.Schema, boolToInt(f.Active),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: form %s version %d already exists", draft.ErrInvalidArgument, f.Code, f.Version)
	}
	if err != nil {
		r.logger.Error("Failed to create form template", zap.String("code", f.Code), zap.Error(err))
		return fmt.Errorf("failed to create form template: %w", err)
	}
	return nil
}

// GetActiveByID retrieves an active form template
func (r *FormTemplateRepository) GetActiveByID(ctx context.Context, id int64) (*port.FormTemplate, error) {
	var f port.FormTemplate
	var active int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, code, version, schema_json, active
		FROM form_templates
		WHERE id = ? AND active = 1`, id,
	).Scan(&f.ID, &f.Code, &f.Version, &f.Schema, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: form template %d", draft.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get form template", zap.Int64("form_template_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get form template: %w", err)
	}
	f.Active = active == 1
	return &f, nil
}

var _ port.FormTemplateRepository = (*FormTemplateRepository)(nil)
