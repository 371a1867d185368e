package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"silkroute/internal/domain"
	"silkroute/internal/service"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input *service.UploadDocumentInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetByID(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error) {
	args := m.Called(ctx, docID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListByShipment(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) ([]domain.Document, error) {
	args := m.Called(ctx, shipmentID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetDownloadURL(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (string, error) {
	args := m.Called(ctx, docID, userID, role)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Retry(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error) {
	args := m.Called(ctx, docID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) error {
	args := m.Called(ctx, docID, userID, role)
	return args.Error(0)
}

func (m *MockDocumentService) ProcessDocument(ctx context.Context, doc *domain.Document, maxAttempts int) {
	m.Called(ctx, doc, maxAttempts)
}
