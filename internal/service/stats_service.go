package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type statsRepository interface {
	BirthsByRegion(ctx context.Context, year int) ([]models.BirthRegionStat, error)
	DeathsByAge(ctx context.Context) ([]models.DeathAgeStat, error)
	MarriagesByRegion(ctx context.Context, year int) ([]models.MarriageRegionStat, error)
	Demographics(ctx context.Context, region string) ([]models.RegionDemographics, error)
	Completeness(ctx context.Context) ([]models.RegistrationCompleteness, error)
	AnnualSummary(ctx context.Context, year int) (*models.AnnualVitalSummary, error)
	DashboardSummary(ctx context.Context) (*models.DashboardSummary, error)
}

type regionChecker interface {
	RegionExists(ctx context.Context, region string) (bool, error)
}

// StatsService serves the read-only JSON aggregations. Results are cached in
// Redis with a short TTL; the queries group over the full record tables and
// are too heavy to run on every dashboard refresh.
type StatsService struct {
	repo     statsRepository
	regions  regionChecker
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService constructs the statistics service.
func NewStatsService(repo statsRepository, regions regionChecker, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, regions: regions, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// BirthsByRegion returns grouped birth counts. Year 0 covers all years.
func (s *StatsService) BirthsByRegion(ctx context.Context, actor policy.Actor, year int) ([]models.BirthRegionStat, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	key := fmt.Sprintf("stats:births:%d", year)
	var cached []models.BirthRegionStat
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.repo.BirthsByRegion(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate birth statistics")
	}
	s.persist(ctx, key, stats)
	return stats, nil
}

// DeathsByAge returns death counts grouped by age band, region and cause.
func (s *StatsService) DeathsByAge(ctx context.Context, actor policy.Actor) ([]models.DeathAgeStat, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	key := "stats:deaths:age"
	var cached []models.DeathAgeStat
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.repo.DeathsByAge(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate death statistics")
	}
	s.persist(ctx, key, stats)
	return stats, nil
}

// MarriagesByRegion returns grouped marriage counts. Year 0 covers all years.
func (s *StatsService) MarriagesByRegion(ctx context.Context, actor policy.Actor, year int) ([]models.MarriageRegionStat, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	key := fmt.Sprintf("stats:marriages:%d", year)
	var cached []models.MarriageRegionStat
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.repo.MarriagesByRegion(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate marriage statistics")
	}
	s.persist(ctx, key, stats)
	return stats, nil
}

// Demographics summarizes the citizens projection per region. An empty region
// covers all regions; a named region must exist.
func (s *StatsService) Demographics(ctx context.Context, actor policy.Actor, region string) ([]models.RegionDemographics, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if region != "" {
		exists, err := s.regions.RegionExists(ctx, region)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check region")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "region not found")
		}
	}
	key := fmt.Sprintf("stats:demographics:%s", region)
	var cached []models.RegionDemographics
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.repo.Demographics(ctx, region)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate demographics")
	}
	s.persist(ctx, key, stats)
	return stats, nil
}

// Completeness reports per-region birth registration progress.
func (s *StatsService) Completeness(ctx context.Context, actor policy.Actor) ([]models.RegistrationCompleteness, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	key := "stats:completeness"
	var cached []models.RegistrationCompleteness
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.repo.Completeness(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate registration completeness")
	}
	s.persist(ctx, key, stats)
	return stats, nil
}

// AnnualSummary returns the one-row totals report for a year.
func (s *StatsService) AnnualSummary(ctx context.Context, actor policy.Actor, year int) (*models.AnnualVitalSummary, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if year <= 0 {
		return nil, appErrors.Fielded(appErrors.ErrValidation, "year", "year is required")
	}
	key := fmt.Sprintf("stats:annual:%d", year)
	var cached models.AnnualVitalSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	summary, err := s.repo.AnnualSummary(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate annual summary")
	}
	s.persist(ctx, key, summary)
	return summary, nil
}

// Dashboard returns the landing page counters.
func (s *StatsService) Dashboard(ctx context.Context, actor policy.Actor) (*models.DashboardSummary, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	key := "stats:dashboard"
	var cached models.DashboardSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	summary, err := s.repo.DashboardSummary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard summary")
	}
	s.persist(ctx, key, summary)
	return summary, nil
}

// Invalidate drops all cached statistics. Called after record mutations.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatsService) persist(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
