package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// MarriageHandler exposes marriage record endpoints.
type MarriageHandler struct {
	marriages *service.MarriageService
	metrics   *service.MetricsService
}

// NewMarriageHandler constructs MarriageHandler.
func NewMarriageHandler(marriages *service.MarriageService, metrics *service.MetricsService) *MarriageHandler {
	return &MarriageHandler{marriages: marriages, metrics: metrics}
}

// List godoc
// @Summary List marriage records
// @Tags Marriages
// @Produce json
// @Param region query string false "Filter by region"
// @Param officeId query string false "Filter by registration office"
// @Param status query string false "Filter by record status"
// @Param year query int false "Filter by marriage year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /marriages [get]
func (h *MarriageHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.MarriageFilter
	filter.Region = c.Query("region")
	filter.OfficeID = c.Query("officeId")
	if status := models.RecordStatus(c.Query("status")); status.Valid() {
		filter.Status = &status
	}
	filter.Year = yearQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)

	records, pagination, err := h.marriages.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get marriage record detail
// @Tags Marriages
// @Produce json
// @Param id path string true "Marriage record ID"
// @Success 200 {object} response.Envelope
// @Router /marriages/{id} [get]
func (h *MarriageHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.marriages.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Register a marriage
// @Tags Marriages
// @Accept json
// @Produce json
// @Param payload body service.CreateMarriageRequest true "Marriage payload"
// @Success 201 {object} response.Envelope
// @Router /marriages [post]
func (h *MarriageHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateMarriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.marriages.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCreated(string(models.RecordTypeMarriage))
	response.Created(c, record)
}

// Update godoc
// @Summary Update a marriage record
// @Tags Marriages
// @Accept json
// @Produce json
// @Param id path string true "Marriage record ID"
// @Param payload body service.UpdateMarriageRequest true "Marriage payload"
// @Success 200 {object} response.Envelope
// @Router /marriages/{id} [put]
func (h *MarriageHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateMarriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.marriages.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a marriage record
// @Tags Marriages
// @Produce json
// @Param id path string true "Marriage record ID"
// @Success 204
// @Router /marriages/{id} [delete]
func (h *MarriageHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.marriages.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
