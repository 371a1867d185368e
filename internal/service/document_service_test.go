package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"silkroute/internal/config"
	"silkroute/internal/domain"
	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
	"silkroute/internal/service"
	"silkroute/mocks"
)

func testS3Config() config.S3Config {
	return config.S3Config{
		Region:        "us-east-1",
		Bucket:        "test-bucket",
		MaxFileSizeMB: 1,
		PresignExpiry: 3600,
	}
}

func newDocumentService(
	docRepo *mocks.MockDocumentRepo,
	shipmentRepo *mocks.MockShipmentRepo,
	templateRepo *mocks.MockTemplateRepo,
	storage *mocks.MockObjectStorage,
	provider *mocks.MockOCRProvider,
) service.DocumentService {
	return service.NewDocumentService(
		docRepo, shipmentRepo, templateRepo, storage, provider,
		testS3Config(), config.EngineConfig{LineTolerancePx: 10}, false,
	)
}

func memberShipment(userID uuid.UUID) *domain.Shipment {
	return &domain.Shipment{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     "Gasoline batch 42",
		Category: "russian_customs",
		Status:   domain.ShipmentStatusProcessing,
	}
}

func TestDocumentService_Upload_Success(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ShipmentID == shipment.ID &&
			d.DocumentType == domain.DocTypeInvoice &&
			d.FileType == domain.FileTypeJPG &&
			d.Status == domain.DocumentStatusQueued
	})).Return(nil)

	doc, err := svc.Upload(context.Background(), &service.UploadDocumentInput{
		ShipmentID:   shipment.ID,
		DocumentType: "invoice",
		Filename:     "invoice.jpg",
		ContentType:  "image/jpeg",
		FileBytes:    []byte("fake-jpeg-bytes"),
		UploadedBy:   userID,
		Role:         domain.RoleMember,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusQueued, doc.Status)
	assert.Contains(t, doc.S3Key, "shipments/"+shipment.ID.String())
	docRepo.AssertExpectations(t)
}

func TestDocumentService_Upload_UnknownDocumentType(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	_, err := svc.Upload(context.Background(), &service.UploadDocumentInput{
		ShipmentID:   shipment.ID,
		DocumentType: "tax_return",
		Filename:     "doc.pdf",
		ContentType:  "application/pdf",
		FileBytes:    []byte("%PDF-1.4"),
		UploadedBy:   userID,
		Role:         domain.RoleMember,
	})

	assert.ErrorIs(t, err, domain.ErrUnknownDocumentType)
}

func TestDocumentService_Upload_UnsupportedFileType(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	_, err := svc.Upload(context.Background(), &service.UploadDocumentInput{
		ShipmentID:   shipment.ID,
		DocumentType: "invoice",
		Filename:     "invoice.docx",
		ContentType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		FileBytes:    []byte("PK"),
		UploadedBy:   userID,
		Role:         domain.RoleMember,
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestDocumentService_Upload_FileTooLarge(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	// 1 MB limit in testS3Config.
	big := make([]byte, 2*1024*1024)
	_, err := svc.Upload(context.Background(), &service.UploadDocumentInput{
		ShipmentID:   shipment.ID,
		DocumentType: "invoice",
		Filename:     "scan.png",
		ContentType:  "image/png",
		FileBytes:    big,
		UploadedBy:   userID,
		Role:         domain.RoleMember,
	})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestDocumentService_Upload_ForbiddenForOtherMember(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	shipment := memberShipment(uuid.New())
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	_, err := svc.Upload(context.Background(), &service.UploadDocumentInput{
		ShipmentID:   shipment.ID,
		DocumentType: "invoice",
		Filename:     "invoice.jpg",
		ContentType:  "image/jpeg",
		FileBytes:    []byte("bytes"),
		UploadedBy:   uuid.New(),
		Role:         domain.RoleMember,
	})

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func weightTemplate(category string) *domain.Template {
	return &domain.Template{
		ID:       uuid.New(),
		Name:     "Test template",
		Category: category,
		Version:  1,
		IsActive: true,
		Fields: []domain.FieldDefinition{
			{
				Name:       "gross_weight",
				Label:      "Вес брутто",
				Required:   true,
				DataType:   domain.FieldDataTypeNumber,
				RuleConfig: json.RawMessage(`{"type":"regex","pattern":"брутто[:\\s]*(\\d+)"}`),
			},
			{
				Name:       "contract_number",
				Label:      "Номер контракта",
				DataType:   domain.FieldDataTypeText,
				RuleConfig: json.RawMessage(`{"type":"keyword","anchor":"контракт","mode":"same_line"}`),
			},
		},
	}
}

func queuedDocument(shipmentID uuid.UUID) *domain.Document {
	return &domain.Document{
		ID:           uuid.New(),
		ShipmentID:   shipmentID,
		DocumentType: domain.DocTypeInvoice,
		FileType:     domain.FileTypePNG,
		S3Bucket:     "test-bucket",
		S3Key:        "shipments/x/doc.png",
		ContentType:  "image/png",
		Status:       domain.DocumentStatusProcessing,
		Attempts:     1,
	}
}

func TestDocumentService_ProcessDocument_Success(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	doc := queuedDocument(shipment.ID)

	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(weightTemplate(shipment.Category), nil)
	storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return([]byte("png-bytes"), nil)
	provider.On("Recognize", mock.Anything, mock.Anything).Return(&extraction.RawOCROutput{
		Text:       "Вес брутто: 58276 кг\nКонтракт № 2024/17-В",
		Confidence: 0.93,
	}, nil)
	provider.On("Name").Return("vision")
	docRepo.On("UpdateExtraction", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusCompleted && d.OCRProvider == "vision" && d.ProcessedAt != nil
	})).Return(nil)

	svc.ProcessDocument(context.Background(), doc, 3)

	require.Equal(t, domain.DocumentStatusCompleted, doc.Status)
	var fields []extraction.ExtractedField
	require.NoError(t, json.Unmarshal(doc.ExtractedFields, &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "gross_weight", fields[0].Name)
	assert.Equal(t, "58276", fields[0].Value)
	docRepo.AssertExpectations(t)
}

func TestDocumentService_ProcessDocument_RateLimitedRequeues(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	doc := queuedDocument(shipment.ID)

	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(weightTemplate(shipment.Category), nil)
	storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return([]byte("png-bytes"), nil)
	provider.On("Recognize", mock.Anything, mock.Anything).Return(nil, ocr.NewRateLimitError("vision", assert.AnError, 0))
	docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusQueued, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	svc.ProcessDocument(context.Background(), doc, 3)

	docRepo.AssertExpectations(t)
	docRepo.AssertNotCalled(t, "UpdateExtraction", mock.Anything, mock.Anything)
}

func TestDocumentService_ProcessDocument_RateLimitedExhaustedFails(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	doc := queuedDocument(shipment.ID)
	doc.Attempts = 3

	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(weightTemplate(shipment.Category), nil)
	storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return([]byte("png-bytes"), nil)
	provider.On("Recognize", mock.Anything, mock.Anything).Return(nil, ocr.NewRateLimitError("vision", assert.AnError, 0))
	docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusError, mock.Anything).Return(nil)

	svc.ProcessDocument(context.Background(), doc, 3)

	docRepo.AssertExpectations(t)
}

func TestDocumentService_ProcessDocument_MissingTemplateFails(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	doc := queuedDocument(shipment.ID)

	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(nil, domain.ErrMissingActiveTemplate)
	docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusError, mock.Anything).Return(nil)

	svc.ProcessDocument(context.Background(), doc, 3)

	docRepo.AssertExpectations(t)
	storage.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Retry_RequeuesErroredDocument(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	shipmentRepo := new(mocks.MockShipmentRepo)
	templateRepo := new(mocks.MockTemplateRepo)
	storage := new(mocks.MockObjectStorage)
	provider := new(mocks.MockOCRProvider)
	svc := newDocumentService(docRepo, shipmentRepo, templateRepo, storage, provider)

	userID := uuid.New()
	shipment := memberShipment(userID)
	doc := queuedDocument(shipment.ID)
	doc.Status = domain.DocumentStatusError
	doc.ProcessingError = "all OCR providers failed"

	docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusQueued, "").Return(nil)

	got, err := svc.Retry(context.Background(), doc.ID, userID, domain.RoleMember)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusQueued, got.Status)
	assert.Empty(t, got.ProcessingError)
	docRepo.AssertExpectations(t)
}
