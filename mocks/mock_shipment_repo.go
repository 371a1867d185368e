package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"silkroute/internal/domain"
)

// MockShipmentRepo is a mock implementation of port.ShipmentRepository.
type MockShipmentRepo struct {
	mock.Mock
}

func (m *MockShipmentRepo) Create(ctx context.Context, shipment *domain.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepo) GetByID(ctx context.Context, shipmentID uuid.UUID) (*domain.Shipment, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *MockShipmentRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Shipment, int, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Shipment), args.Int(1), args.Error(2)
}

func (m *MockShipmentRepo) UpdateStatus(ctx context.Context, shipmentID uuid.UUID, status domain.ShipmentStatus) error {
	args := m.Called(ctx, shipmentID, status)
	return args.Error(0)
}

func (m *MockShipmentRepo) Delete(ctx context.Context, shipmentID uuid.UUID) error {
	args := m.Called(ctx, shipmentID)
	return args.Error(0)
}
