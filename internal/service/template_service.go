package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"silkroute/internal/domain"
	"silkroute/internal/extraction"
	"silkroute/internal/port"
)

// FieldDefinitionInput is the DTO for one template field.
type FieldDefinitionInput struct {
	Name       string          `json:"name" binding:"required"`
	Label      string          `json:"label" binding:"required"`
	Section    string          `json:"section"`
	Required   bool            `json:"required"`
	DataType   string          `json:"data_type" binding:"required"`
	RuleConfig json.RawMessage `json:"rule_config" binding:"required"`
}

// CreateTemplateInput is the DTO for creating a template.
type CreateTemplateInput struct {
	Name            string                 `json:"name" binding:"required"`
	Category        string                 `json:"category" binding:"required"`
	DocTypePriority []domain.DocumentType  `json:"doc_type_priority"`
	Fields          []FieldDefinitionInput `json:"fields" binding:"required"`
	CreatedBy       uuid.UUID              `json:"-"`
}

// UpdateTemplateInput is the DTO for updating a template.
type UpdateTemplateInput struct {
	TemplateID      uuid.UUID
	Name            string                 `json:"name" binding:"required"`
	DocTypePriority []domain.DocumentType  `json:"doc_type_priority"`
	Fields          []FieldDefinitionInput `json:"fields" binding:"required"`
}

// TemplateService defines the template management contract. Every field's
// rule configuration is validated and compiled before a template is
// persisted, so stored templates are always extraction-ready.
type TemplateService interface {
	Create(ctx context.Context, input CreateTemplateInput) (*domain.Template, error)
	GetByID(ctx context.Context, templateID uuid.UUID) (*domain.Template, error)
	GetActiveByCategory(ctx context.Context, category string) (*domain.Template, error)
	List(ctx context.Context, offset, limit int) ([]domain.Template, int, error)
	Update(ctx context.Context, input UpdateTemplateInput) (*domain.Template, error)
	Activate(ctx context.Context, templateID uuid.UUID) error
	Deactivate(ctx context.Context, templateID uuid.UUID) error
}

type templateService struct {
	templateRepo port.TemplateRepository
}

// NewTemplateService creates a new TemplateService implementation.
func NewTemplateService(templateRepo port.TemplateRepository) TemplateService {
	return &templateService{templateRepo: templateRepo}
}

func (s *templateService) Create(ctx context.Context, input CreateTemplateInput) (*domain.Template, error) {
	fields, err := buildFieldDefinitions(input.Fields)
	if err != nil {
		return nil, err
	}
	priority, err := marshalPriority(input.DocTypePriority)
	if err != nil {
		return nil, err
	}

	tpl := &domain.Template{
		ID:              uuid.New(),
		Name:            input.Name,
		Category:        input.Category,
		Version:         1,
		IsActive:        false,
		DocTypePriority: priority,
		CreatedBy:       input.CreatedBy,
		Fields:          fields,
	}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *templateService) GetByID(ctx context.Context, templateID uuid.UUID) (*domain.Template, error) {
	return s.templateRepo.GetByID(ctx, templateID)
}

func (s *templateService) GetActiveByCategory(ctx context.Context, category string) (*domain.Template, error) {
	return s.templateRepo.GetActiveByCategory(ctx, category)
}

func (s *templateService) List(ctx context.Context, offset, limit int) ([]domain.Template, int, error) {
	return s.templateRepo.List(ctx, offset, limit)
}

func (s *templateService) Update(ctx context.Context, input UpdateTemplateInput) (*domain.Template, error) {
	tpl, err := s.templateRepo.GetByID(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}

	fields, err := buildFieldDefinitions(input.Fields)
	if err != nil {
		return nil, err
	}
	priority, err := marshalPriority(input.DocTypePriority)
	if err != nil {
		return nil, err
	}

	tpl.Name = input.Name
	tpl.DocTypePriority = priority
	tpl.Fields = fields
	tpl.Version++

	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *templateService) Activate(ctx context.Context, templateID uuid.UUID) error {
	// Re-validate before activation: a template that cannot compile must
	// never become the active extraction source.
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return err
	}
	if _, err := extraction.CompileFields(tpl.Fields); err != nil {
		return err
	}
	return s.templateRepo.Activate(ctx, templateID)
}

func (s *templateService) Deactivate(ctx context.Context, templateID uuid.UUID) error {
	return s.templateRepo.Deactivate(ctx, templateID)
}

// buildFieldDefinitions validates the rule config of every field and
// converts the DTOs into domain field definitions in request order.
func buildFieldDefinitions(inputs []FieldDefinitionInput) ([]domain.FieldDefinition, error) {
	fields := make([]domain.FieldDefinition, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if seen[in.Name] {
			return nil, fmt.Errorf("%w: duplicate field name %q", domain.ErrInvalidRuleConfig, in.Name)
		}
		seen[in.Name] = true

		if _, err := extraction.ParseRule(in.RuleConfig); err != nil {
			return nil, fmt.Errorf("field %q: %w", in.Name, err)
		}

		dataType := domain.FieldDataType(in.DataType)
		switch dataType {
		case domain.FieldDataTypeText, domain.FieldDataTypeNumber, domain.FieldDataTypeDate:
		default:
			return nil, fmt.Errorf("%w: field %q: unknown data type %q", domain.ErrInvalidRuleConfig, in.Name, in.DataType)
		}

		fields = append(fields, domain.FieldDefinition{
			ID:         uuid.New(),
			Name:       in.Name,
			Label:      in.Label,
			Section:    in.Section,
			Required:   in.Required,
			DataType:   dataType,
			RuleConfig: in.RuleConfig,
			Position:   i,
		})
	}
	return fields, nil
}

func marshalPriority(priority []domain.DocumentType) (json.RawMessage, error) {
	if len(priority) == 0 {
		return nil, nil
	}
	for _, dt := range priority {
		if !domain.KnownDocumentTypes[dt] {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, dt)
		}
	}
	raw, err := json.Marshal(priority)
	if err != nil {
		return nil, fmt.Errorf("marshaling doc type priority: %w", err)
	}
	return raw, nil
}
