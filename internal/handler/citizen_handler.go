package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// CitizenHandler exposes the citizens projection endpoints.
type CitizenHandler struct {
	citizens *service.CitizenService
	stats    *service.StatsService
	metrics  *service.MetricsService
}

// NewCitizenHandler constructs CitizenHandler.
func NewCitizenHandler(citizens *service.CitizenService, stats *service.StatsService, metrics *service.MetricsService) *CitizenHandler {
	return &CitizenHandler{citizens: citizens, stats: stats, metrics: metrics}
}

// List godoc
// @Summary List citizens
// @Tags Citizens
// @Produce json
// @Param region query string false "Filter by region"
// @Param gender query string false "Filter by gender (M or F)"
// @Param married query bool false "Filter by marital state"
// @Param deceased query bool false "Filter by deceased state"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /citizens [get]
func (h *CitizenHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.CitizenFilter
	filter.Region = c.Query("region")
	if gender := models.Gender(c.Query("gender")); gender == models.GenderMale || gender == models.GenderFemale {
		filter.Gender = &gender
	}
	filter.IsMarried = boolQuery(c, "married")
	filter.IsDead = boolQuery(c, "deceased")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageQuery(c)

	citizens, pagination, err := h.citizens.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, citizens, pagination)
}

// Rebuild godoc
// @Summary Rebuild the citizens projection
// @Tags Citizens
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /citizens/sync [post]
func (h *CitizenHandler) Rebuild(c *gin.Context) {
	started := time.Now()
	count, err := h.citizens.Rebuild(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveCitizenRebuild(time.Since(started))
	h.stats.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"citizens": count}, nil)
}
