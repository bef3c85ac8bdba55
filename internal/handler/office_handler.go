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

// OfficeHandler exposes registration office endpoints.
type OfficeHandler struct {
	offices *service.OfficeService
}

// NewOfficeHandler constructs OfficeHandler.
func NewOfficeHandler(offices *service.OfficeService) *OfficeHandler {
	return &OfficeHandler{offices: offices}
}

// List godoc
// @Summary List registration offices
// @Tags Offices
// @Produce json
// @Param region query string false "Filter by region"
// @Param status query string false "Filter by status"
// @Param search query string false "Search by name or district"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offices [get]
func (h *OfficeHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.OfficeFilter
	filter.Region = c.Query("region")
	if status := models.OfficeStatus(c.Query("status")); status == models.OfficeStatusActive || status == models.OfficeStatusInactive {
		filter.Status = &status
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageQuery(c)

	offices, pagination, err := h.offices.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offices, pagination)
}

// Regions godoc
// @Summary List distinct regions
// @Tags Offices
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /offices/regions [get]
func (h *OfficeHandler) Regions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	regions, err := h.offices.Regions(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regions, nil)
}

// Get godoc
// @Summary Get office detail
// @Tags Offices
// @Produce json
// @Param id path string true "Office ID"
// @Success 200 {object} response.Envelope
// @Router /offices/{id} [get]
func (h *OfficeHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	office, err := h.offices.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// Create godoc
// @Summary Create a registration office
// @Tags Offices
// @Accept json
// @Produce json
// @Param payload body service.CreateOfficeRequest true "Office payload"
// @Success 201 {object} response.Envelope
// @Router /offices [post]
func (h *OfficeHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	office, err := h.offices.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, office)
}

// Update godoc
// @Summary Update a registration office
// @Tags Offices
// @Accept json
// @Produce json
// @Param id path string true "Office ID"
// @Param payload body service.UpdateOfficeRequest true "Office payload"
// @Success 200 {object} response.Envelope
// @Router /offices/{id} [put]
func (h *OfficeHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	office, err := h.offices.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// Delete godoc
// @Summary Delete a registration office
// @Tags Offices
// @Produce json
// @Param id path string true "Office ID"
// @Success 204
// @Router /offices/{id} [delete]
func (h *OfficeHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.offices.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
