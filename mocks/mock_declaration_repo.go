package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"silkroute/internal/domain"
)

// MockDeclarationRepo is a mock implementation of port.DeclarationRepository.
type MockDeclarationRepo struct {
	mock.Mock
}

func (m *MockDeclarationRepo) Upsert(ctx context.Context, decl *domain.Declaration) error {
	args := m.Called(ctx, decl)
	return args.Error(0)
}

func (m *MockDeclarationRepo) GetByID(ctx context.Context, declID uuid.UUID) (*domain.Declaration, error) {
	args := m.Called(ctx, declID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Declaration), args.Error(1)
}

func (m *MockDeclarationRepo) GetByShipment(ctx context.Context, shipmentID uuid.UUID) (*domain.Declaration, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Declaration), args.Error(1)
}

func (m *MockDeclarationRepo) UpdateReview(ctx context.Context, decl *domain.Declaration) error {
	args := m.Called(ctx, decl)
	return args.Error(0)
}

func (m *MockDeclarationRepo) CountByTemplate(ctx context.Context, templateID uuid.UUID) (int, error) {
	args := m.Called(ctx, templateID)
	return args.Int(0), args.Error(1)
}
