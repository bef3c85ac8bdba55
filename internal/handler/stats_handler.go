package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/middleware"
	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// StatsHandler exposes the statistical reporting endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// BirthsByRegion godoc
// @Summary Birth statistics grouped by region and year
// @Tags Statistics
// @Produce json
// @Param year query int false "Filter by registration year"
// @Success 200 {object} response.Envelope
// @Router /stats/births [get]
func (h *StatsHandler) BirthsByRegion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.BirthsByRegion(c.Request.Context(), actor, yearQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// DeathsByAge godoc
// @Summary Death statistics grouped by age band
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/deaths [get]
func (h *StatsHandler) DeathsByAge(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.DeathsByAge(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// MarriagesByRegion godoc
// @Summary Marriage statistics grouped by region
// @Tags Statistics
// @Produce json
// @Param year query int false "Filter by marriage year"
// @Success 200 {object} response.Envelope
// @Router /stats/marriages [get]
func (h *StatsHandler) MarriagesByRegion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.MarriagesByRegion(c.Request.Context(), actor, yearQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Demographics godoc
// @Summary Population demographics per region
// @Tags Statistics
// @Produce json
// @Param region query string false "Limit to one region"
// @Success 200 {object} response.Envelope
// @Router /stats/demographics [get]
func (h *StatsHandler) Demographics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.Demographics(c.Request.Context(), actor, c.Query("region"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Completeness godoc
// @Summary Registration completeness per region
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/completeness [get]
func (h *StatsHandler) Completeness(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.Completeness(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// AnnualSummary godoc
// @Summary Annual vital event summary
// @Tags Statistics
// @Produce json
// @Param year query int true "Report year"
// @Success 200 {object} response.Envelope
// @Router /stats/annual [get]
func (h *StatsHandler) AnnualSummary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.stats.AnnualSummary(c.Request.Context(), actor, yearQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Dashboard godoc
// @Summary Dashboard headline counters
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.stats.Dashboard(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
