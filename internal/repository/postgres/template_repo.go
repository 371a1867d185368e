package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"silkroute/internal/domain"
	"silkroute/internal/port"
)

type templateRepo struct {
	db *sqlx.DB
}

// NewTemplateRepo creates a new PostgreSQL-backed TemplateRepository.
func NewTemplateRepo(db *sqlx.DB) port.TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) Create(ctx context.Context, tpl *domain.Template) error {
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("templateRepo.Create begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO templates (
			id, name, category, version, is_active, doc_type_priority,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tpl.ID, tpl.Name, tpl.Category, tpl.Version, tpl.IsActive, tpl.DocTypePriority,
		tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("templateRepo.Create: %w", err)
	}

	if err := insertFields(ctx, tx, tpl); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("templateRepo.Create commit: %w", err)
	}
	return nil
}

func insertFields(ctx context.Context, tx *sqlx.Tx, tpl *domain.Template) error {
	now := time.Now().UTC()
	for i := range tpl.Fields {
		f := &tpl.Fields[i]
		f.TemplateID = tpl.ID
		f.Position = i
		f.CreatedAt = now
		f.UpdatedAt = now
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO template_fields (
				id, template_id, name, label, section, required,
				data_type, rule_config, position, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			f.ID, f.TemplateID, f.Name, f.Label, f.Section, f.Required,
			f.DataType, f.RuleConfig, f.Position, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("templateRepo insert field %q: %w", f.Name, err)
		}
	}
	return nil
}

func (r *templateRepo) GetByID(ctx context.Context, templateID uuid.UUID) (*domain.Template, error) {
	var tpl domain.Template
	err := r.db.GetContext(ctx, &tpl, "SELECT * FROM templates WHERE id = $1", templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("templateRepo.GetByID: %w", err)
	}
	if err := r.loadFields(ctx, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepo) GetActiveByCategory(ctx context.Context, category string) (*domain.Template, error) {
	var tpl domain.Template
	err := r.db.GetContext(ctx, &tpl,
		"SELECT * FROM templates WHERE category = $1 AND is_active = TRUE", category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMissingActiveTemplate
		}
		return nil, fmt.Errorf("templateRepo.GetActiveByCategory: %w", err)
	}
	if err := r.loadFields(ctx, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepo) loadFields(ctx context.Context, tpl *domain.Template) error {
	err := r.db.SelectContext(ctx, &tpl.Fields,
		"SELECT * FROM template_fields WHERE template_id = $1 ORDER BY position ASC",
		tpl.ID)
	if err != nil {
		return fmt.Errorf("templateRepo.loadFields: %w", err)
	}
	return nil
}

func (r *templateRepo) List(ctx context.Context, offset, limit int) ([]domain.Template, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM templates")
	if err != nil {
		return nil, 0, fmt.Errorf("templateRepo.List count: %w", err)
	}

	var templates []domain.Template
	err = r.db.SelectContext(ctx, &templates,
		"SELECT * FROM templates ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("templateRepo.List: %w", err)
	}
	return templates, total, nil
}

// Update replaces the template row and its whole field list. Field rows
// are rewritten so positions stay dense and ordered.
func (r *templateRepo) Update(ctx context.Context, tpl *domain.Template) error {
	tpl.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("templateRepo.Update begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE templates SET
			name = $1, category = $2, version = $3,
			doc_type_priority = $4, updated_at = $5
		 WHERE id = $6`,
		tpl.Name, tpl.Category, tpl.Version,
		tpl.DocTypePriority, tpl.UpdatedAt, tpl.ID)
	if err != nil {
		return fmt.Errorf("templateRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrTemplateNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM template_fields WHERE template_id = $1", tpl.ID); err != nil {
		return fmt.Errorf("templateRepo.Update clear fields: %w", err)
	}
	if err := insertFields(ctx, tx, tpl); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("templateRepo.Update commit: %w", err)
	}
	return nil
}

// Activate marks the template active and deactivates every other
// template of the same category in one transaction.
func (r *templateRepo) Activate(ctx context.Context, templateID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("templateRepo.Activate begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var category string
	err = tx.GetContext(ctx, &category,
		"SELECT category FROM templates WHERE id = $1", templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTemplateNotFound
		}
		return fmt.Errorf("templateRepo.Activate: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE templates SET is_active = FALSE, updated_at = $1 WHERE category = $2 AND id != $3",
		now, category, templateID); err != nil {
		return fmt.Errorf("templateRepo.Activate deactivate others: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE templates SET is_active = TRUE, updated_at = $1 WHERE id = $2",
		now, templateID); err != nil {
		return fmt.Errorf("templateRepo.Activate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("templateRepo.Activate commit: %w", err)
	}
	return nil
}

func (r *templateRepo) Deactivate(ctx context.Context, templateID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE templates SET is_active = FALSE, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), templateID)
	if err != nil {
		return fmt.Errorf("templateRepo.Deactivate: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}
