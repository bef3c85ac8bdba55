package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/service"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary Browse the audit trail
// @Tags Audit
// @Produce json
// @Param module query string false "Filter by module"
// @Param action query string false "Filter by action"
// @Param userId query string false "Filter by acting user"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	filter.Module = c.Query("module")
	if action := models.AuditAction(c.Query("action")); action != "" {
		filter.Action = &action
	}
	filter.UserID = c.Query("userId")
	filter.Page, filter.PageSize = pageQuery(c)

	logs, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
