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

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO documents (
		id, shipment_id, document_type, original_filename, file_type, file_size,
		s3_bucket, s3_key, content_type, status, ocr_provider,
		extracted_fields, processing_error, attempts, processed_at,
		uploaded_by, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13, $14, $15,
		$16, $17, $18
	)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.ShipmentID, doc.DocumentType, doc.OriginalFilename, doc.FileType, doc.FileSize,
		doc.S3Bucket, doc.S3Key, doc.ContentType, doc.Status, doc.OCRProvider,
		doc.ExtractedFields, doc.ProcessingError, doc.Attempts, doc.ProcessedAt,
		doc.UploadedBy, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE shipment_id = $1 ORDER BY created_at ASC", shipmentID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListByShipment: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpdateExtraction(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
			status = $1, ocr_provider = $2, extracted_fields = $3,
			processing_error = $4, attempts = $5, processed_at = $6, updated_at = $7
		 WHERE id = $8`,
		doc.Status, doc.OCRProvider, doc.ExtractedFields,
		doc.ProcessingError, doc.Attempts, doc.ProcessedAt, doc.UpdatedAt,
		doc.ID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateExtraction: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, docID uuid.UUID, status domain.DocumentStatus, processingError string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = $1, processing_error = $2, updated_at = $3 WHERE id = $4",
		status, processingError, time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ClaimQueued flips up to limit queued documents to processing and returns
// them. FOR UPDATE SKIP LOCKED keeps concurrent workers from claiming the
// same rows.
func (r *documentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE documents SET status = $1, attempts = attempts + 1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM documents WHERE status = $3
			ORDER BY created_at ASC LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.DocumentStatusProcessing, time.Now().UTC(), domain.DocumentStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) Delete(ctx context.Context, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
