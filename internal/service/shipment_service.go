package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"silkroute/internal/domain"
	"silkroute/internal/port"
)

// CreateShipmentInput is the DTO for creating a shipment.
type CreateShipmentInput struct {
	UserID   uuid.UUID
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// ShipmentService defines the shipment management contract.
type ShipmentService interface {
	Create(ctx context.Context, input CreateShipmentInput) (*domain.Shipment, error)
	GetByID(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Shipment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Shipment, int, error)
	Delete(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) error
}

type shipmentService struct {
	shipmentRepo port.ShipmentRepository
	docRepo      port.DocumentRepository
	storage      port.ObjectStorage
}

// NewShipmentService creates a new ShipmentService implementation.
func NewShipmentService(
	shipmentRepo port.ShipmentRepository,
	docRepo port.DocumentRepository,
	storage port.ObjectStorage,
) ShipmentService {
	return &shipmentService{
		shipmentRepo: shipmentRepo,
		docRepo:      docRepo,
		storage:      storage,
	}
}

func (s *shipmentService) Create(ctx context.Context, input CreateShipmentInput) (*domain.Shipment, error) {
	shipment := &domain.Shipment{
		ID:       uuid.New(),
		UserID:   input.UserID,
		Name:     input.Name,
		Category: input.Category,
		Status:   domain.ShipmentStatusProcessing,
	}
	if err := s.shipmentRepo.Create(ctx, shipment); err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *shipmentService) GetByID(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, userID, role); err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *shipmentService) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Shipment, int, error) {
	return s.shipmentRepo.ListByUser(ctx, userID, offset, limit)
}

// Delete removes the shipment, its documents, and its stored files. Object
// deletion failures are logged upstream by the storage client and do not
// block row deletion.
func (s *shipmentService) Delete(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) error {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if err := requireShipmentAccess(shipment, userID, role); err != nil {
		return err
	}

	docs, err := s.docRepo.ListByShipment(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("shipmentService.Delete: %w", err)
	}
	for i := range docs {
		_ = s.storage.Delete(ctx, docs[i].S3Bucket, docs[i].S3Key)
	}

	return s.shipmentRepo.Delete(ctx, shipmentID)
}

// requireShipmentAccess allows the shipment owner and admins.
func requireShipmentAccess(shipment *domain.Shipment, userID uuid.UUID, role domain.UserRole) error {
	if role == domain.RoleAdmin || shipment.UserID == userID {
		return nil
	}
	return domain.ErrForbidden
}
