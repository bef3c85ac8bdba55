package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// XMLReportHandler serves the XML documents consumed by external government
// systems.
type XMLReportHandler struct {
	reports *service.XMLReportService
}

// NewXMLReportHandler constructs XMLReportHandler.
func NewXMLReportHandler(reports *service.XMLReportService) *XMLReportHandler {
	return &XMLReportHandler{reports: reports}
}

func serveXML(c *gin.Context, doc []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/xml", doc)
}

// Citizen godoc
// @Summary Full citizen life-event report
// @Tags XML Reports
// @Produce xml
// @Param id path string true "Birth record ID"
// @Success 200 {string} string "XML document"
// @Router /reports/xml/citizens/{id} [get]
func (h *XMLReportHandler) Citizen(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, filename, err := h.reports.CitizenReport(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveXML(c, doc, filename)
}

// Regional godoc
// @Summary Regional statistics report
// @Tags XML Reports
// @Produce xml
// @Param region path string true "Region name"
// @Param year query int false "Report year, defaults to the current year"
// @Success 200 {string} string "XML document"
// @Router /reports/xml/regions/{region} [get]
func (h *XMLReportHandler) Regional(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, filename, err := h.reports.RegionalStatistics(c.Request.Context(), actor, c.Param("region"), yearQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveXML(c, doc, filename)
}

// Monthly godoc
// @Summary Monthly registration report
// @Tags XML Reports
// @Produce xml
// @Param year query int true "Report year"
// @Param month query int true "Report month (1-12)"
// @Success 200 {string} string "XML document"
// @Router /reports/xml/monthly [get]
func (h *XMLReportHandler) Monthly(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	month, _ := strconv.Atoi(c.Query("month"))
	doc, filename, err := h.reports.MonthlyReport(c.Request.Context(), actor, yearQuery(c), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveXML(c, doc, filename)
}

// VitalStatistics godoc
// @Summary National vital statistics report
// @Tags XML Reports
// @Produce xml
// @Param year query int false "Report year, defaults to the current year"
// @Param region query string false "Limit to one region"
// @Success 200 {string} string "XML document"
// @Router /reports/xml/vital-statistics [get]
func (h *XMLReportHandler) VitalStatistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, filename, err := h.reports.VitalStatistics(c.Request.Context(), actor, yearQuery(c), c.Query("region"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveXML(c, doc, filename)
}
