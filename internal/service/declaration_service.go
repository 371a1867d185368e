package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"silkroute/internal/domain"
	"silkroute/internal/extraction"
	"silkroute/internal/port"
)

// ReviewDeclarationInput is the DTO for reviewing a declaration. Edits
// replace the stored record field values before the status change.
type ReviewDeclarationInput struct {
	DeclarationID uuid.UUID
	ReviewerID    uuid.UUID
	Role          domain.UserRole
	Status        domain.DeclarationStatus
	FieldValues   map[string]string `json:"field_values"`
}

// DeclarationService defines the declaration generation and review contract.
type DeclarationService interface {
	// Generate aggregates the extracted fields of every completed document
	// in the shipment into one declaration record and persists it.
	Generate(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Declaration, error)
	GetByShipment(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Declaration, error)
	Review(ctx context.Context, input ReviewDeclarationInput) (*domain.Declaration, error)
	Record(decl *domain.Declaration) (*extraction.DeclarationRecord, error)
}

type declarationService struct {
	declRepo     port.DeclarationRepository
	shipmentRepo port.ShipmentRepository
	docRepo      port.DocumentRepository
	templateRepo port.TemplateRepository
	userRepo     port.UserRepository
	emailSender  port.EmailSender
}

// NewDeclarationService creates a new DeclarationService implementation.
func NewDeclarationService(
	declRepo port.DeclarationRepository,
	shipmentRepo port.ShipmentRepository,
	docRepo port.DocumentRepository,
	templateRepo port.TemplateRepository,
	userRepo port.UserRepository,
	emailSender port.EmailSender,
) DeclarationService {
	return &declarationService{
		declRepo:     declRepo,
		shipmentRepo: shipmentRepo,
		docRepo:      docRepo,
		templateRepo: templateRepo,
		userRepo:     userRepo,
		emailSender:  emailSender,
	}
}

func (s *declarationService) Generate(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Declaration, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, userID, role); err != nil {
		return nil, err
	}

	tpl, err := s.templateRepo.GetActiveByCategory(ctx, shipment.Category)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	extractions, err := completedExtractions(docs)
	if err != nil {
		return nil, err
	}
	if len(extractions) == 0 {
		return nil, domain.ErrDocumentsNotReady
	}

	aggregated := extraction.Aggregate(extractions, tpl.PriorityOrder())
	record := extraction.Assemble(aggregated, tpl)

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("declarationService.Generate: encoding record: %w", err)
	}

	decl := &domain.Declaration{
		ID:             uuid.New(),
		ShipmentID:     shipmentID,
		TemplateID:     tpl.ID,
		Record:         recordJSON,
		TotalFields:    record.Stats.TotalFields,
		FilledFields:   record.Stats.FilledFields,
		RequiredFields: record.Stats.RequiredFields,
		FilledRequired: record.Stats.FilledRequired,
		Status:         domain.DeclarationStatusDraft,
		GeneratedAt:    time.Now().UTC(),
	}
	if err := s.declRepo.Upsert(ctx, decl); err != nil {
		return nil, err
	}

	if err := s.shipmentRepo.UpdateStatus(ctx, shipmentID, domain.ShipmentStatusCompleted); err != nil {
		log.Printf("declarationService.Generate: failed to update shipment %s status: %v", shipmentID, err)
	}

	s.notifyOwner(ctx, shipment, decl)
	return decl, nil
}

func (s *declarationService) GetByShipment(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) (*domain.Declaration, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, userID, role); err != nil {
		return nil, err
	}
	return s.declRepo.GetByShipment(ctx, shipmentID)
}

func (s *declarationService) Review(ctx context.Context, input ReviewDeclarationInput) (*domain.Declaration, error) {
	decl, err := s.declRepo.GetByID(ctx, input.DeclarationID)
	if err != nil {
		return nil, err
	}

	shipment, err := s.shipmentRepo.GetByID(ctx, decl.ShipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, input.ReviewerID, input.Role); err != nil {
		return nil, err
	}

	switch input.Status {
	case domain.DeclarationStatusReviewed, domain.DeclarationStatusSubmitted:
	default:
		return nil, fmt.Errorf("declarationService.Review: invalid status %q", input.Status)
	}

	if len(input.FieldValues) > 0 {
		record, err := s.Record(decl)
		if err != nil {
			return nil, err
		}
		applyFieldEdits(record, input.FieldValues)
		recordJSON, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("declarationService.Review: encoding record: %w", err)
		}
		decl.Record = recordJSON
	}

	now := time.Now().UTC()
	decl.Status = input.Status
	decl.ReviewedBy = &input.ReviewerID
	decl.ReviewedAt = &now

	if err := s.declRepo.UpdateReview(ctx, decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// Record decodes the stored declaration record.
func (s *declarationService) Record(decl *domain.Declaration) (*extraction.DeclarationRecord, error) {
	var record extraction.DeclarationRecord
	if err := json.Unmarshal(decl.Record, &record); err != nil {
		return nil, fmt.Errorf("declarationService.Record: decoding record: %w", err)
	}
	return &record, nil
}

// completedExtractions decodes the stored extraction of every completed
// document. Documents still queued or failed are skipped; a completed
// document with an undecodable payload aborts generation.
func completedExtractions(docs []domain.Document) ([]extraction.DocumentExtraction, error) {
	extractions := make([]extraction.DocumentExtraction, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		if doc.Status != domain.DocumentStatusCompleted || len(doc.ExtractedFields) == 0 {
			continue
		}
		var fields []extraction.ExtractedField
		if err := json.Unmarshal(doc.ExtractedFields, &fields); err != nil {
			return nil, fmt.Errorf("document %s: %w: %v", doc.ID, domain.ErrMalformedOCROutput, err)
		}
		processedAt := doc.CreatedAt
		if doc.ProcessedAt != nil {
			processedAt = *doc.ProcessedAt
		}
		extractions = append(extractions, extraction.DocumentExtraction{
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			ProcessedAt:  processedAt,
			Fields:       fields,
		})
	}
	return extractions, nil
}

// applyFieldEdits overwrites record values with reviewer-supplied ones.
// An edited field counts as filled with full confidence.
func applyFieldEdits(record *extraction.DeclarationRecord, edits map[string]string) {
	for i := range record.Fields {
		f := &record.Fields[i]
		value, ok := edits[f.Name]
		if !ok {
			continue
		}
		wasFilled := f.Filled
		f.Value = value
		f.Filled = value != ""
		f.Confidence = 1.0
		if f.Filled && !wasFilled {
			record.Stats.FilledFields++
			if f.Required {
				record.Stats.FilledRequired++
			}
		} else if !f.Filled && wasFilled {
			record.Stats.FilledFields--
			if f.Required {
				record.Stats.FilledRequired--
			}
		}
	}
}

// notifyOwner emails the shipment owner that the draft is ready. Email
// failures never block generation.
func (s *declarationService) notifyOwner(ctx context.Context, shipment *domain.Shipment, decl *domain.Declaration) {
	owner, err := s.userRepo.GetByID(ctx, shipment.UserID)
	if err != nil {
		log.Printf("declarationService.notifyOwner: loading owner for shipment %s: %v", shipment.ID, err)
		return
	}
	notice := port.DeclarationReadyNotice{
		ShipmentName:   shipment.Name,
		TotalFields:    decl.TotalFields,
		FilledFields:   decl.FilledFields,
		RequiredFields: decl.RequiredFields,
		FilledRequired: decl.FilledRequired,
	}
	if err := s.emailSender.SendDeclarationReady(ctx, owner.Email, owner.FullName, notice); err != nil {
		log.Printf("declarationService.notifyOwner: sending notice for shipment %s: %v", shipment.ID, err)
	}
}
