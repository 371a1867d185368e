package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"silkroute/internal/domain"
	"silkroute/internal/export"
	"silkroute/internal/service"
)

// DeclarationHandler handles declaration generation, review, and export.
type DeclarationHandler struct {
	declService service.DeclarationService
}

// NewDeclarationHandler creates a new DeclarationHandler.
func NewDeclarationHandler(declService service.DeclarationService) *DeclarationHandler {
	return &DeclarationHandler{declService: declService}
}

// reviewRequest is the JSON body for the review endpoint.
type reviewRequest struct {
	Status      string            `json:"status" binding:"required"`
	FieldValues map[string]string `json:"field_values"`
}

// Generate handles POST /api/v1/shipments/:id/declaration
func (h *DeclarationHandler) Generate(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shipment ID")
		return
	}

	decl, err := h.declService.Generate(c.Request.Context(), shipmentID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, decl)
}

// GetByShipment handles GET /api/v1/shipments/:id/declaration
func (h *DeclarationHandler) GetByShipment(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shipment ID")
		return
	}

	decl, err := h.declService.GetByShipment(c.Request.Context(), shipmentID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	record, err := h.declService.Record(decl)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"declaration": decl,
		"record":      record,
	})
}

// Review handles POST /api/v1/declarations/:id/review
func (h *DeclarationHandler) Review(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	declID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid declaration ID")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	status := domain.DeclarationStatus(req.Status)
	switch status {
	case domain.DeclarationStatusReviewed, domain.DeclarationStatusSubmitted:
	default:
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "status must be reviewed or submitted")
		return
	}

	decl, err := h.declService.Review(c.Request.Context(), service.ReviewDeclarationInput{
		DeclarationID: declID,
		ReviewerID:    userID,
		Role:          role,
		Status:        status,
		FieldValues:   req.FieldValues,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, decl)
}

// Export handles GET /api/v1/shipments/:id/declaration/export?format=csv|xlsx
func (h *DeclarationHandler) Export(c *gin.Context) {
	userID, role, ok := extractAuthContext(c)
	if !ok {
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shipment ID")
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or xlsx")
		return
	}

	decl, err := h.declService.GetByShipment(c.Request.Context(), shipmentID, userID, role)
	if err != nil {
		HandleError(c, err)
		return
	}

	record, err := h.declService.Record(decl)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, record)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, record)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("declaration-%s.%s", shipmentID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
