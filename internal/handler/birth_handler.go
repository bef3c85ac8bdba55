package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// BirthHandler exposes birth record endpoints.
type BirthHandler struct {
	births  *service.BirthService
	metrics *service.MetricsService
}

// NewBirthHandler constructs BirthHandler.
func NewBirthHandler(births *service.BirthService, metrics *service.MetricsService) *BirthHandler {
	return &BirthHandler{births: births, metrics: metrics}
}

// List godoc
// @Summary List birth records
// @Tags Births
// @Produce json
// @Param search query string false "Search by child name or certificate number"
// @Param region query string false "Filter by region"
// @Param officeId query string false "Filter by registration office"
// @Param status query string false "Filter by record status"
// @Param year query int false "Filter by registration year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /births [get]
func (h *BirthHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.BirthFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Region = c.Query("region")
	filter.OfficeID = c.Query("officeId")
	if status := models.RecordStatus(c.Query("status")); status.Valid() {
		filter.Status = &status
	}
	filter.Year = yearQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)

	records, pagination, err := h.births.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get birth record detail
// @Tags Births
// @Produce json
// @Param id path string true "Birth record ID"
// @Success 200 {object} response.Envelope
// @Router /births/{id} [get]
func (h *BirthHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.births.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Register a birth
// @Tags Births
// @Accept json
// @Produce json
// @Param payload body service.CreateBirthRequest true "Birth payload"
// @Success 201 {object} response.Envelope
// @Router /births [post]
func (h *BirthHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateBirthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.births.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCreated(string(models.RecordTypeBirth))
	response.Created(c, record)
}

// Update godoc
// @Summary Update a birth record
// @Tags Births
// @Accept json
// @Produce json
// @Param id path string true "Birth record ID"
// @Param payload body service.UpdateBirthRequest true "Birth payload"
// @Success 200 {object} response.Envelope
// @Router /births/{id} [put]
func (h *BirthHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateBirthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.births.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a birth record
// @Tags Births
// @Produce json
// @Param id path string true "Birth record ID"
// @Success 204
// @Router /births/{id} [delete]
func (h *BirthHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.births.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
