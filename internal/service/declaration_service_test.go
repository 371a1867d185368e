package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"silkroute/internal/domain"
	"silkroute/internal/extraction"
	"silkroute/internal/service"
	"silkroute/mocks"
)

type declarationMocks struct {
	declRepo     *mocks.MockDeclarationRepo
	shipmentRepo *mocks.MockShipmentRepo
	docRepo      *mocks.MockDocumentRepo
	templateRepo *mocks.MockTemplateRepo
	userRepo     *mocks.MockUserRepo
	emailSender  *mocks.MockEmailSender
}

func newDeclarationService(t *testing.T) (service.DeclarationService, *declarationMocks) {
	t.Helper()
	m := &declarationMocks{
		declRepo:     new(mocks.MockDeclarationRepo),
		shipmentRepo: new(mocks.MockShipmentRepo),
		docRepo:      new(mocks.MockDocumentRepo),
		templateRepo: new(mocks.MockTemplateRepo),
		userRepo:     new(mocks.MockUserRepo),
		emailSender:  new(mocks.MockEmailSender),
	}
	svc := service.NewDeclarationService(m.declRepo, m.shipmentRepo, m.docRepo, m.templateRepo, m.userRepo, m.emailSender)
	return svc, m
}

func declarationTemplate() *domain.Template {
	priority, _ := json.Marshal([]domain.DocumentType{
		domain.DocTypeCustomsDeclaration,
		domain.DocTypeInvoice,
	})
	return &domain.Template{
		ID:              uuid.New(),
		Name:            "Российская таможенная декларация",
		Category:        "russian_customs",
		Version:         1,
		IsActive:        true,
		DocTypePriority: priority,
		Fields: []domain.FieldDefinition{
			{
				Name: "gross_weight", Label: "Вес брутто", Required: true,
				DataType:   domain.FieldDataTypeNumber,
				RuleConfig: json.RawMessage(`{"type":"regex","pattern":"(\\d+)"}`),
			},
			{
				Name: "sender_name", Label: "Отправитель", Required: true,
				DataType:   domain.FieldDataTypeText,
				RuleConfig: json.RawMessage(`{"type":"keyword","anchor":"отправитель"}`),
			},
		},
	}
}

func completedDoc(shipmentID uuid.UUID, docType domain.DocumentType, fields []extraction.ExtractedField, processedAt time.Time) domain.Document {
	raw, _ := json.Marshal(fields)
	return domain.Document{
		ID:              uuid.New(),
		ShipmentID:      shipmentID,
		DocumentType:    docType,
		Status:          domain.DocumentStatusCompleted,
		ExtractedFields: raw,
		ProcessedAt:     &processedAt,
	}
}

func TestDeclarationService_Generate_Success(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	tpl := declarationTemplate()
	now := time.Now().UTC()

	// Invoice has higher confidence but the customs declaration outranks
	// it in the document-type priority order.
	invoice := completedDoc(shipment.ID, domain.DocTypeInvoice, []extraction.ExtractedField{
		{Name: "gross_weight", Value: "58000", Confidence: 0.99},
		{Name: "sender_name", Value: "", Confidence: 0},
	}, now)
	customs := completedDoc(shipment.ID, domain.DocTypeCustomsDeclaration, []extraction.ExtractedField{
		{Name: "gross_weight", Value: "58276", Confidence: 0.80},
		{Name: "sender_name", Value: "GIGAFLEX ASIA LIMITED", Confidence: 0.91},
	}, now.Add(time.Minute))

	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(tpl, nil)
	m.docRepo.On("ListByShipment", mock.Anything, shipment.ID).Return([]domain.Document{invoice, customs}, nil)
	m.declRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Declaration) bool {
		return d.ShipmentID == shipment.ID &&
			d.TemplateID == tpl.ID &&
			d.Status == domain.DeclarationStatusDraft &&
			d.TotalFields == 2 && d.FilledFields == 2
	})).Return(nil)
	m.shipmentRepo.On("UpdateStatus", mock.Anything, shipment.ID, domain.ShipmentStatusCompleted).Return(nil)
	m.userRepo.On("GetByID", mock.Anything, userID).Return(&domain.User{
		ID: userID, Email: "owner@test.com", FullName: "Owner",
	}, nil)
	m.emailSender.On("SendDeclarationReady", mock.Anything, "owner@test.com", "Owner", mock.Anything).Return(nil)

	decl, err := svc.Generate(context.Background(), shipment.ID, userID, domain.RoleMember)

	require.NoError(t, err)
	var record extraction.DeclarationRecord
	require.NoError(t, json.Unmarshal(decl.Record, &record))
	require.Len(t, record.Fields, 2)
	assert.Equal(t, "58276", record.Fields[0].Value)
	assert.Equal(t, domain.DocTypeCustomsDeclaration, record.Fields[0].SourceDocumentType)
	assert.Equal(t, "GIGAFLEX ASIA LIMITED", record.Fields[1].Value)
	m.declRepo.AssertExpectations(t)
	m.emailSender.AssertExpectations(t)
}

func TestDeclarationService_Generate_NoCompletedDocuments(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	tpl := declarationTemplate()

	queued := domain.Document{
		ID:           uuid.New(),
		ShipmentID:   shipment.ID,
		DocumentType: domain.DocTypeInvoice,
		Status:       domain.DocumentStatusQueued,
	}

	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(tpl, nil)
	m.docRepo.On("ListByShipment", mock.Anything, shipment.ID).Return([]domain.Document{queued}, nil)

	decl, err := svc.Generate(context.Background(), shipment.ID, userID, domain.RoleMember)

	assert.Nil(t, decl)
	assert.ErrorIs(t, err, domain.ErrDocumentsNotReady)
	m.declRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestDeclarationService_Generate_MissingActiveTemplate(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)

	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(nil, domain.ErrMissingActiveTemplate)

	decl, err := svc.Generate(context.Background(), shipment.ID, userID, domain.RoleMember)

	assert.Nil(t, decl)
	assert.ErrorIs(t, err, domain.ErrMissingActiveTemplate)
}

func TestDeclarationService_Generate_MalformedExtraction(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	tpl := declarationTemplate()

	broken := domain.Document{
		ID:              uuid.New(),
		ShipmentID:      shipment.ID,
		DocumentType:    domain.DocTypeInvoice,
		Status:          domain.DocumentStatusCompleted,
		ExtractedFields: json.RawMessage(`{"not":"a list"}`),
	}

	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.templateRepo.On("GetActiveByCategory", mock.Anything, shipment.Category).Return(tpl, nil)
	m.docRepo.On("ListByShipment", mock.Anything, shipment.ID).Return([]domain.Document{broken}, nil)

	decl, err := svc.Generate(context.Background(), shipment.ID, userID, domain.RoleMember)

	assert.Nil(t, decl)
	assert.ErrorIs(t, err, domain.ErrMalformedOCROutput)
}

func TestDeclarationService_Generate_ForbiddenForOtherMember(t *testing.T) {
	svc, m := newDeclarationService(t)

	shipment := memberShipment(uuid.New())
	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	decl, err := svc.Generate(context.Background(), shipment.ID, uuid.New(), domain.RoleMember)

	assert.Nil(t, decl)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func draftDeclaration(shipmentID uuid.UUID, record *extraction.DeclarationRecord) *domain.Declaration {
	raw, _ := json.Marshal(record)
	return &domain.Declaration{
		ID:         uuid.New(),
		ShipmentID: shipmentID,
		TemplateID: uuid.New(),
		Record:     raw,
		Status:     domain.DeclarationStatusDraft,
	}
}

func TestDeclarationService_Review_AppliesEdits(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	record := &extraction.DeclarationRecord{
		Fields: []extraction.RecordField{
			{Name: "gross_weight", Label: "Вес брутто", Required: true, Filled: true, Value: "58276", Confidence: 0.8},
			{Name: "sender_name", Label: "Отправитель", Required: true, Filled: false},
		},
		Stats: extraction.Stats{TotalFields: 2, FilledFields: 1, RequiredFields: 2, FilledRequired: 1},
	}
	decl := draftDeclaration(shipment.ID, record)

	m.declRepo.On("GetByID", mock.Anything, decl.ID).Return(decl, nil)
	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.declRepo.On("UpdateReview", mock.Anything, mock.MatchedBy(func(d *domain.Declaration) bool {
		return d.Status == domain.DeclarationStatusReviewed && d.ReviewedBy != nil && *d.ReviewedBy == userID
	})).Return(nil)

	got, err := svc.Review(context.Background(), service.ReviewDeclarationInput{
		DeclarationID: decl.ID,
		ReviewerID:    userID,
		Role:          domain.RoleMember,
		Status:        domain.DeclarationStatusReviewed,
		FieldValues:   map[string]string{"sender_name": "GIGAFLEX ASIA LIMITED"},
	})

	require.NoError(t, err)
	var updated extraction.DeclarationRecord
	require.NoError(t, json.Unmarshal(got.Record, &updated))
	assert.Equal(t, "GIGAFLEX ASIA LIMITED", updated.Fields[1].Value)
	assert.True(t, updated.Fields[1].Filled)
	assert.Equal(t, 1.0, updated.Fields[1].Confidence)
	assert.Equal(t, 2, updated.Stats.FilledFields)
	assert.Equal(t, 2, updated.Stats.FilledRequired)
	m.declRepo.AssertExpectations(t)
}

func TestDeclarationService_Review_RejectsInvalidStatus(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	decl := draftDeclaration(shipment.ID, &extraction.DeclarationRecord{})

	m.declRepo.On("GetByID", mock.Anything, decl.ID).Return(decl, nil)
	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)

	got, err := svc.Review(context.Background(), service.ReviewDeclarationInput{
		DeclarationID: decl.ID,
		ReviewerID:    userID,
		Role:          domain.RoleMember,
		Status:        domain.DeclarationStatusDraft,
	})

	assert.Nil(t, got)
	assert.Error(t, err)
	m.declRepo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything)
}

func TestDeclarationService_GetByShipment(t *testing.T) {
	svc, m := newDeclarationService(t)

	userID := uuid.New()
	shipment := memberShipment(userID)
	decl := draftDeclaration(shipment.ID, &extraction.DeclarationRecord{})

	m.shipmentRepo.On("GetByID", mock.Anything, shipment.ID).Return(shipment, nil)
	m.declRepo.On("GetByShipment", mock.Anything, shipment.ID).Return(decl, nil)

	got, err := svc.GetByShipment(context.Background(), shipment.ID, userID, domain.RoleMember)

	require.NoError(t, err)
	assert.Equal(t, decl.ID, got.ID)
}
