package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"silkroute/internal/service"
)

// DocumentHandler handles shipment document endpoints.
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload handles POST /api/v1/shipments/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shipment ID")
		return
	}

	docType := c.PostForm("document_type")
	if docType == "" {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "document_type field is required")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "could not read uploaded file")
		return
	}

	input := &service.UploadDocumentInput{
		ShipmentID:   shipmentID,
		DocumentType: docType,
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		FileBytes:    fileBytes,
		UploadedBy:   userID,
		Role:         role,
	}

	doc, err := h.docService.Upload(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, doc)
}

// ListByShipment handles GET /api/v1/shipments/:id/documents
func (h *DocumentHandler) ListByShipment(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shipment ID")
		return
	}

	docs, err := h.docService.ListByShipment(c.Request.Context(), shipmentID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, docs)
}

// GetByID handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	doc, err := h.docService.GetByID(c.Request.Context(), docID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	downloadURL, err := h.docService.GetDownloadURL(c.Request.Context(), docID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"document":     doc,
		"download_url": downloadURL,
	})
}

// Retry handles POST /api/v1/documents/:id/retry
func (h *DocumentHandler) Retry(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	doc, err := h.docService.Retry(c.Request.Context(), docID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, doc)
}

// Delete handles DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	if err := h.docService.Delete(c.Request.Context(), docID, userID, role); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "document deleted"})
}
