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

type shipmentRepo struct {
	db *sqlx.DB
}

// NewShipmentRepo creates a new PostgreSQL-backed ShipmentRepository.
func NewShipmentRepo(db *sqlx.DB) port.ShipmentRepository {
	return &shipmentRepo{db: db}
}

func (r *shipmentRepo) Create(ctx context.Context, shipment *domain.Shipment) error {
	now := time.Now().UTC()
	shipment.CreatedAt = now
	shipment.UpdatedAt = now

	query := `INSERT INTO shipments (
		id, user_id, name, category, status, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		shipment.ID, shipment.UserID, shipment.Name, shipment.Category,
		shipment.Status, shipment.CreatedAt, shipment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("shipmentRepo.Create: %w", err)
	}
	return nil
}

func (r *shipmentRepo) GetByID(ctx context.Context, shipmentID uuid.UUID) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.db.GetContext(ctx, &shipment, "SELECT * FROM shipments WHERE id = $1", shipmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("shipmentRepo.GetByID: %w", err)
	}
	return &shipment, nil
}

func (r *shipmentRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Shipment, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM shipments WHERE user_id = $1", userID)
	if err != nil {
		return nil, 0, fmt.Errorf("shipmentRepo.ListByUser count: %w", err)
	}

	var shipments []domain.Shipment
	err = r.db.SelectContext(ctx, &shipments,
		`SELECT * FROM shipments WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("shipmentRepo.ListByUser: %w", err)
	}
	return shipments, total, nil
}

func (r *shipmentRepo) UpdateStatus(ctx context.Context, shipmentID uuid.UUID, status domain.ShipmentStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE shipments SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), shipmentID)
	if err != nil {
		return fmt.Errorf("shipmentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

func (r *shipmentRepo) Delete(ctx context.Context, shipmentID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM shipments WHERE id = $1", shipmentID)
	if err != nil {
		return fmt.Errorf("shipmentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}
