package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"silkroute/internal/service"
)

// TemplateHandler handles declaration template endpoints.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// Create handles POST /api/v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	var input service.CreateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	input.CreatedBy = userID

	tpl, err := h.templateService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, tpl)
}

// List handles GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	templates, total, err := h.templateService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, templates, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/templates/:id
func (h *TemplateHandler) GetByID(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid template ID")
		return
	}

	tpl, err := h.templateService.GetByID(c.Request.Context(), templateID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, tpl)
}

// Update handles PUT /api/v1/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid template ID")
		return
	}

	var input service.UpdateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	input.TemplateID = templateID

	tpl, err := h.templateService.Update(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, tpl)
}

// Activate handles POST /api/v1/templates/:id/activate
func (h *TemplateHandler) Activate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid template ID")
		return
	}

	if err := h.templateService.Activate(c.Request.Context(), templateID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "template activated"})
}

// Deactivate handles POST /api/v1/templates/:id/deactivate
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid template ID")
		return
	}

	if err := h.templateService.Deactivate(c.Request.Context(), templateID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "template deactivated"})
}
