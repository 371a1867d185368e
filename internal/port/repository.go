package port

import (
	"context"

	"github.com/google/uuid"

	"silkroute/internal/domain"
)

// UserRepository defines the contract for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, int, error)
	Update(ctx context.Context, user *domain.User) error
}

// ShipmentRepository defines the contract for shipment persistence.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *domain.Shipment) error
	GetByID(ctx context.Context, shipmentID uuid.UUID) (*domain.Shipment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]domain.Shipment, int, error)
	UpdateStatus(ctx context.Context, shipmentID uuid.UUID, status domain.ShipmentStatus) error
	Delete(ctx context.Context, shipmentID uuid.UUID) error
}

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Document, error)
	UpdateExtraction(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, docID uuid.UUID, status domain.DocumentStatus, processingError string) error
	// ClaimQueued atomically claims up to limit queued documents for
	// processing, marking them processing so concurrent workers never
	// pick up the same document twice.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error)
	Delete(ctx context.Context, docID uuid.UUID) error
}

// TemplateRepository defines the contract for template persistence.
// Loading methods return the template with its full, ordered field list
// as a consistent snapshot.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.Template) error
	GetByID(ctx context.Context, templateID uuid.UUID) (*domain.Template, error)
	GetActiveByCategory(ctx context.Context, category string) (*domain.Template, error)
	List(ctx context.Context, offset, limit int) ([]domain.Template, int, error)
	Update(ctx context.Context, tpl *domain.Template) error
	// Activate marks the template active and deactivates any other
	// template of the same category in one transaction.
	Activate(ctx context.Context, templateID uuid.UUID) error
	Deactivate(ctx context.Context, templateID uuid.UUID) error
}

// DeclarationRepository defines the contract for declaration persistence.
type DeclarationRepository interface {
	Upsert(ctx context.Context, decl *domain.Declaration) error
	GetByID(ctx context.Context, declID uuid.UUID) (*domain.Declaration, error)
	GetByShipment(ctx context.Context, shipmentID uuid.UUID) (*domain.Declaration, error)
	UpdateReview(ctx context.Context, decl *domain.Declaration) error
	CountByTemplate(ctx context.Context, templateID uuid.UUID) (int, error)
}
