package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Shipment groups the documents of one customs consignment.
type Shipment struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Name      string         `db:"name" json:"name"`
	Category  string         `db:"category" json:"category"`
	Status    ShipmentStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Document represents an uploaded shipment document and its extraction state.
type Document struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ShipmentID       uuid.UUID       `db:"shipment_id" json:"shipment_id"`
	DocumentType     DocumentType    `db:"document_type" json:"document_type"`
	OriginalFilename string          `db:"original_filename" json:"original_filename"`
	FileType         FileType        `db:"file_type" json:"file_type"`
	FileSize         int64           `db:"file_size" json:"file_size"`
	S3Bucket         string          `db:"s3_bucket" json:"s3_bucket"`
	S3Key            string          `db:"s3_key" json:"s3_key"`
	ContentType      string          `db:"content_type" json:"content_type"`
	Status           DocumentStatus  `db:"status" json:"status"`
	OCRProvider      string          `db:"ocr_provider" json:"ocr_provider"`
	ExtractedFields  json.RawMessage `db:"extracted_fields" json:"extracted_fields"`
	ProcessingError  string          `db:"processing_error" json:"processing_error"`
	Attempts         int             `db:"attempts" json:"attempts"`
	ProcessedAt      *time.Time      `db:"processed_at" json:"processed_at"`
	UploadedBy       uuid.UUID       `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Template is a named, versioned set of field definitions for one
// declaration category. At most one template per category is active.
type Template struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Category        string          `db:"category" json:"category"`
	Version         int             `db:"version" json:"version"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	DocTypePriority json.RawMessage `db:"doc_type_priority" json:"doc_type_priority"`
	CreatedBy       uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	// Fields is the ordered field definition list, loaded alongside the
	// template row. Not a DB column.
	Fields []FieldDefinition `db:"-" json:"fields"`
}

// PriorityOrder decodes the document-type priority configuration,
// highest priority first. Returns nil when none is configured.
func (t *Template) PriorityOrder() []DocumentType {
	if len(t.DocTypePriority) == 0 {
		return nil
	}
	var order []DocumentType
	if err := json.Unmarshal(t.DocTypePriority, &order); err != nil {
		return nil
	}
	return order
}

// FieldDefinition is one extractable datum within a template. RuleConfig
// holds the extraction rule as stored JSON; it is decoded into a typed
// rule when the template is loaded.
type FieldDefinition struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	TemplateID uuid.UUID       `db:"template_id" json:"template_id"`
	Name       string          `db:"name" json:"name"`
	Label      string          `db:"label" json:"label"`
	Section    string          `db:"section" json:"section"`
	Required   bool            `db:"required" json:"required"`
	DataType   FieldDataType   `db:"data_type" json:"data_type"`
	RuleConfig json.RawMessage `db:"rule_config" json:"rule_config"`
	Position   int             `db:"position" json:"position"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Declaration stores the assembled declaration record for a shipment.
type Declaration struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	ShipmentID     uuid.UUID         `db:"shipment_id" json:"shipment_id"`
	TemplateID     uuid.UUID         `db:"template_id" json:"template_id"`
	Record         json.RawMessage   `db:"record" json:"record"`
	TotalFields    int               `db:"total_fields" json:"total_fields"`
	FilledFields   int               `db:"filled_fields" json:"filled_fields"`
	RequiredFields int               `db:"required_fields" json:"required_fields"`
	FilledRequired int               `db:"filled_required" json:"filled_required"`
	Status         DeclarationStatus `db:"status" json:"status"`
	ReviewedBy     *uuid.UUID        `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt     *time.Time        `db:"reviewed_at" json:"reviewed_at"`
	GeneratedAt    time.Time         `db:"generated_at" json:"generated_at"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}
