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

type declarationRepo struct {
	db *sqlx.DB
}

// NewDeclarationRepo creates a new PostgreSQL-backed DeclarationRepository.
func NewDeclarationRepo(db *sqlx.DB) port.DeclarationRepository {
	return &declarationRepo{db: db}
}

// Upsert inserts the declaration or, when one already exists for the
// shipment, replaces its record and resets review state. Regenerating a
// declaration invalidates any earlier review.
func (r *declarationRepo) Upsert(ctx context.Context, decl *domain.Declaration) error {
	now := time.Now().UTC()
	decl.CreatedAt = now
	decl.UpdatedAt = now

	query := `INSERT INTO declarations (
		id, shipment_id, template_id, record,
		total_fields, filled_fields, required_fields, filled_required,
		status, reviewed_by, reviewed_at, generated_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12, $13, $14
	)
	ON CONFLICT (shipment_id) DO UPDATE SET
		template_id = EXCLUDED.template_id,
		record = EXCLUDED.record,
		total_fields = EXCLUDED.total_fields,
		filled_fields = EXCLUDED.filled_fields,
		required_fields = EXCLUDED.required_fields,
		filled_required = EXCLUDED.filled_required,
		status = EXCLUDED.status,
		reviewed_by = NULL,
		reviewed_at = NULL,
		generated_at = EXCLUDED.generated_at,
		updated_at = EXCLUDED.updated_at
	RETURNING id, created_at`

	row := r.db.QueryRowxContext(ctx, query,
		decl.ID, decl.ShipmentID, decl.TemplateID, decl.Record,
		decl.TotalFields, decl.FilledFields, decl.RequiredFields, decl.FilledRequired,
		decl.Status, decl.ReviewedBy, decl.ReviewedAt, decl.GeneratedAt,
		decl.CreatedAt, decl.UpdatedAt)
	if err := row.Scan(&decl.ID, &decl.CreatedAt); err != nil {
		return fmt.Errorf("declarationRepo.Upsert: %w", err)
	}
	return nil
}

func (r *declarationRepo) GetByID(ctx context.Context, declID uuid.UUID) (*domain.Declaration, error) {
	var decl domain.Declaration
	err := r.db.GetContext(ctx, &decl, "SELECT * FROM declarations WHERE id = $1", declID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeclarationNotFound
		}
		return nil, fmt.Errorf("declarationRepo.GetByID: %w", err)
	}
	return &decl, nil
}

func (r *declarationRepo) GetByShipment(ctx context.Context, shipmentID uuid.UUID) (*domain.Declaration, error) {
	var decl domain.Declaration
	err := r.db.GetContext(ctx, &decl,
		"SELECT * FROM declarations WHERE shipment_id = $1", shipmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeclarationNotFound
		}
		return nil, fmt.Errorf("declarationRepo.GetByShipment: %w", err)
	}
	return &decl, nil
}

func (r *declarationRepo) UpdateReview(ctx context.Context, decl *domain.Declaration) error {
	decl.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE declarations SET
			record = $1, status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $5
		 WHERE id = $6`,
		decl.Record, decl.Status, decl.ReviewedBy, decl.ReviewedAt, decl.UpdatedAt,
		decl.ID)
	if err != nil {
		return fmt.Errorf("declarationRepo.UpdateReview: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDeclarationNotFound
	}
	return nil
}

func (r *declarationRepo) CountByTemplate(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM declarations WHERE template_id = $1", templateID)
	if err != nil {
		return 0, fmt.Errorf("declarationRepo.CountByTemplate: %w", err)
	}
	return count, nil
}
