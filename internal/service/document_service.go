package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"silkroute/internal/config"
	"silkroute/internal/domain"
	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
)

// ocrPageConcurrency caps the parallel OCR calls for one multi-page document.
const ocrPageConcurrency = 3

// UploadDocumentInput is the DTO for uploading a shipment document.
type UploadDocumentInput struct {
	ShipmentID   uuid.UUID
	DocumentType string
	Filename     string
	ContentType  string
	FileBytes    []byte
	UploadedBy   uuid.UUID
	Role         domain.UserRole
}

// DocumentService defines the document upload and processing contract.
type DocumentService interface {
	Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error)
	GetByID(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error)
	ListByShipment(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) ([]domain.Document, error)
	GetDownloadURL(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (string, error)
	Retry(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error)
	Delete(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) error
	// ProcessDocument runs the OCR and extraction pipeline for one claimed
	// document and persists the outcome. Never returns an error: failures
	// are recorded on the document row.
	ProcessDocument(ctx context.Context, doc *domain.Document, maxAttempts int)
}

type documentService struct {
	docRepo      port.DocumentRepository
	shipmentRepo port.ShipmentRepository
	templateRepo port.TemplateRepository
	storage      port.ObjectStorage
	provider     port.OCRProvider
	s3Cfg        config.S3Config
	engineCfg    config.EngineConfig
	preprocess   bool
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	shipmentRepo port.ShipmentRepository,
	templateRepo port.TemplateRepository,
	storage port.ObjectStorage,
	provider port.OCRProvider,
	s3Cfg config.S3Config,
	engineCfg config.EngineConfig,
	preprocess bool,
) DocumentService {
	return &documentService{
		docRepo:      docRepo,
		shipmentRepo: shipmentRepo,
		templateRepo: templateRepo,
		storage:      storage,
		provider:     provider,
		s3Cfg:        s3Cfg,
		engineCfg:    engineCfg,
		preprocess:   preprocess,
	}
}

func (s *documentService) Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, input.ShipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, input.UploadedBy, input.Role); err != nil {
		return nil, err
	}

	docType := domain.DocumentType(input.DocumentType)
	if !domain.KnownDocumentTypes[docType] {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, input.DocumentType)
	}

	fileType, err := resolveFileType(input.Filename, input.ContentType)
	if err != nil {
		return nil, err
	}

	maxBytes := s.s3Cfg.MaxFileSizeMB * 1024 * 1024
	if int64(len(input.FileBytes)) > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	if fileType == domain.FileTypePDF {
		if err := ocr.ValidatePDF(input.FileBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
	}

	docID := uuid.New()
	key := fmt.Sprintf("shipments/%s/%s/%s", input.ShipmentID, docID, input.Filename)

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(input.FileBytes),
		ContentType: input.ContentType,
		Size:        int64(len(input.FileBytes)),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	doc := &domain.Document{
		ID:               docID,
		ShipmentID:       input.ShipmentID,
		DocumentType:     docType,
		OriginalFilename: input.Filename,
		FileType:         fileType,
		FileSize:         int64(len(input.FileBytes)),
		S3Bucket:         s.s3Cfg.Bucket,
		S3Key:            key,
		ContentType:      input.ContentType,
		Status:           domain.DocumentStatusQueued,
		UploadedBy:       input.UploadedBy,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(ctx, s.s3Cfg.Bucket, key)
		return nil, err
	}
	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDocumentAccess(ctx, doc, userID, role); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) ListByShipment(ctx context.Context, shipmentID, userID uuid.UUID, role domain.UserRole) ([]domain.Document, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(shipment, userID, role); err != nil {
		return nil, err
	}
	return s.docRepo.ListByShipment(ctx, shipmentID)
}

func (s *documentService) GetDownloadURL(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (string, error) {
	doc, err := s.GetByID(ctx, docID, userID, role)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, doc.S3Bucket, doc.S3Key, s.s3Cfg.PresignExpiry)
}

// Retry requeues a failed document for another extraction attempt.
func (s *documentService) Retry(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) (*domain.Document, error) {
	doc, err := s.GetByID(ctx, docID, userID, role)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusError {
		return doc, nil
	}
	if err := s.docRepo.UpdateStatus(ctx, docID, domain.DocumentStatusQueued, ""); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatusQueued
	doc.ProcessingError = ""
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, docID, userID uuid.UUID, role domain.UserRole) error {
	doc, err := s.GetByID(ctx, docID, userID, role)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.S3Bucket, doc.S3Key); err != nil {
		log.Printf("documentService.Delete: failed to delete object %s/%s: %v", doc.S3Bucket, doc.S3Key, err)
	}
	return s.docRepo.Delete(ctx, docID)
}

func (s *documentService) requireDocumentAccess(ctx context.Context, doc *domain.Document, userID uuid.UUID, role domain.UserRole) error {
	shipment, err := s.shipmentRepo.GetByID(ctx, doc.ShipmentID)
	if err != nil {
		return err
	}
	return requireShipmentAccess(shipment, userID, role)
}

func (s *documentService) ProcessDocument(ctx context.Context, doc *domain.Document, maxAttempts int) {
	shipment, err := s.shipmentRepo.GetByID(ctx, doc.ShipmentID)
	if err != nil {
		s.failProcessing(ctx, doc, fmt.Sprintf("loading shipment: %v", err))
		return
	}

	tpl, err := s.templateRepo.GetActiveByCategory(ctx, shipment.Category)
	if err != nil {
		s.failProcessing(ctx, doc, fmt.Sprintf("loading template: %v", err))
		return
	}
	specs, err := extraction.CompileFields(tpl.Fields)
	if err != nil {
		s.failProcessing(ctx, doc, fmt.Sprintf("compiling template rules: %v", err))
		return
	}

	fileBytes, err := s.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		s.failProcessing(ctx, doc, fmt.Sprintf("downloading file: %v", err))
		return
	}

	result, err := s.recognize(ctx, doc, fileBytes)
	if err != nil {
		s.handleProcessError(ctx, doc, err, maxAttempts)
		return
	}

	now := time.Now().UTC()
	docExtraction := extraction.ExtractDocument(doc.ID, doc.DocumentType, specs, result, now)

	fieldsJSON, err := json.Marshal(docExtraction.Fields)
	if err != nil {
		s.failProcessing(ctx, doc, fmt.Sprintf("encoding extracted fields: %v", err))
		return
	}

	doc.Status = domain.DocumentStatusCompleted
	doc.OCRProvider = s.provider.Name()
	doc.ExtractedFields = fieldsJSON
	doc.ProcessingError = ""
	doc.ProcessedAt = &now

	if err := s.docRepo.UpdateExtraction(ctx, doc); err != nil {
		log.Printf("documentService.ProcessDocument: failed to save results for %s: %v", doc.ID, err)
		return
	}
	log.Printf("documentService.ProcessDocument: document %s processed (%d fields)", doc.ID, len(docExtraction.Fields))
}

// recognize converts the stored file into a single normalized line list.
// PDFs are split into pages which are recognized in parallel; page order
// is preserved when the per-page results are merged.
func (s *documentService) recognize(ctx context.Context, doc *domain.Document, fileBytes []byte) (*extraction.NormalizedResult, error) {
	pages, err := s.preparePages(doc, fileBytes)
	if err != nil {
		return nil, err
	}

	results := make([]*extraction.NormalizedResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ocrPageConcurrency)
	for i := range pages {
		g.Go(func() error {
			raw, err := s.provider.Recognize(gctx, port.OCRInput{
				FileBytes:   pages[i],
				ContentType: doc.ContentType,
			})
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			normalized, err := extraction.NormalizeWithTolerance(raw, s.engineCfg.LineTolerancePx)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = normalized
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &extraction.NormalizedResult{}
	for _, res := range results {
		merged.Lines = append(merged.Lines, res.Lines...)
	}
	return merged, nil
}

// preparePages turns the uploaded file into per-page OCR inputs. Images
// are optionally enhanced; a failed enhancement falls back to the
// original bytes.
func (s *documentService) preparePages(doc *domain.Document, fileBytes []byte) ([][]byte, error) {
	if doc.FileType == domain.FileTypePDF {
		pages, err := ocr.SplitPDFPages(fileBytes)
		if err != nil {
			return nil, err
		}
		return pages, nil
	}

	if s.preprocess {
		enhanced, err := ocr.EnhanceImage(fileBytes)
		if err != nil {
			log.Printf("documentService.preparePages: image enhancement failed for %s: %v", doc.ID, err)
		} else {
			fileBytes = enhanced
		}
	}
	return [][]byte{fileBytes}, nil
}

// handleProcessError requeues rate-limited documents under the attempt
// threshold and fails everything else.
func (s *documentService) handleProcessError(ctx context.Context, doc *domain.Document, procErr error, maxAttempts int) {
	var rlErr *ocr.RateLimitError
	if errors.As(procErr, &rlErr) && doc.Attempts < maxAttempts {
		msg := fmt.Sprintf("rate limited by %s, queued for retry", rlErr.Provider)
		if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusQueued, msg); err != nil {
			log.Printf("documentService.handleProcessError: failed to requeue document %s: %v", doc.ID, err)
		}
		return
	}
	s.failProcessing(ctx, doc, procErr.Error())
}

func (s *documentService) failProcessing(ctx context.Context, doc *domain.Document, reason string) {
	log.Printf("documentService: document %s failed: %s", doc.ID, reason)
	if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusError, reason); err != nil {
		log.Printf("documentService.failProcessing: failed to update document %s: %v", doc.ID, err)
	}
}

// resolveFileType determines the file type from the content type, falling
// back to the filename extension.
func resolveFileType(filename, contentType string) (domain.FileType, error) {
	if ft, ok := domain.AllowedContentTypes[strings.ToLower(contentType)]; ok {
		return ft, nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ft, ok := domain.AllowedExtensions[ext]; ok {
		return ft, nil
	}
	return "", domain.ErrUnsupportedFileType
}
