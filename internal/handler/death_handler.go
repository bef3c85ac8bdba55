package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// DeathHandler exposes death record endpoints.
type DeathHandler struct {
	deaths  *service.DeathService
	metrics *service.MetricsService
}

// NewDeathHandler constructs DeathHandler.
func NewDeathHandler(deaths *service.DeathService, metrics *service.MetricsService) *DeathHandler {
	return &DeathHandler{deaths: deaths, metrics: metrics}
}

// List godoc
// @Summary List death records
// @Tags Deaths
// @Produce json
// @Param region query string false "Filter by region"
// @Param officeId query string false "Filter by registration office"
// @Param status query string false "Filter by record status"
// @Param year query int false "Filter by year of death"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /deaths [get]
func (h *DeathHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.DeathFilter
	filter.Region = c.Query("region")
	filter.OfficeID = c.Query("officeId")
	if status := models.RecordStatus(c.Query("status")); status.Valid() {
		filter.Status = &status
	}
	filter.Year = yearQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)

	records, pagination, err := h.deaths.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get death record detail
// @Tags Deaths
// @Produce json
// @Param id path string true "Death record ID"
// @Success 200 {object} response.Envelope
// @Router /deaths/{id} [get]
func (h *DeathHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.deaths.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Register a death
// @Tags Deaths
// @Accept json
// @Produce json
// @Param payload body service.CreateDeathRequest true "Death payload"
// @Success 201 {object} response.Envelope
// @Router /deaths [post]
func (h *DeathHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateDeathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.deaths.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCreated(string(models.RecordTypeDeath))
	response.Created(c, record)
}

// Update godoc
// @Summary Update a death record
// @Tags Deaths
// @Accept json
// @Produce json
// @Param id path string true "Death record ID"
// @Param payload body service.UpdateDeathRequest true "Death payload"
// @Success 200 {object} response.Envelope
// @Router /deaths/{id} [put]
func (h *DeathHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateDeathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.deaths.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a death record
// @Tags Deaths
// @Produce json
// @Param id path string true "Death record ID"
// @Success 204
// @Router /deaths/{id} [delete]
func (h *DeathHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.deaths.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
