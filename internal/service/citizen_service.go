package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	"github.com/noah-isme/civreg-api/internal/repository"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type citizenRepository interface {
	ListQualifyingBirths(ctx context.Context) ([]models.BirthRecordDetail, error)
	ListActiveMarriages(ctx context.Context) ([]models.MarriageRecord, error)
	ListDeaths(ctx context.Context) ([]models.DeathRecord, error)
	ReplaceAll(ctx context.Context, citizens []models.Citizen) error
	List(ctx context.Context, filter models.CitizenFilter) ([]models.Citizen, int, error)
	Count(ctx context.Context) (int, error)
}

// CitizenService rebuilds and serves the denormalized citizens projection.
// Rebuilds are single-flight: an in-process try-lock rejects a second caller
// in the same process, the store's advisory lock rejects other processes.
type CitizenService struct {
	repo   citizenRepository
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewCitizenService constructs the citizen service.
func NewCitizenService(repo citizenRepository, logger *zap.Logger) *CitizenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CitizenService{repo: repo, logger: logger, now: time.Now}
}

// Rebuild truncates and repopulates the projection from the record tables,
// returning the number of rows written. Safe to run repeatedly; each run
// produces the same rows for the same committed data.
func (s *CitizenService) Rebuild(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		return 0, appErrors.Clone(appErrors.ErrConflict, "citizens rebuild already in progress")
	}
	defer s.mu.Unlock()

	started := s.now()
	births, err := s.repo.ListQualifyingBirths(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth records")
	}
	marriages, err := s.repo.ListActiveMarriages(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage records")
	}
	deaths, err := s.repo.ListDeaths(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death records")
	}

	// Marriages arrive newest registration first, so the first marriage seen
	// per spouse is that person's latest.
	latestMarriage := make(map[string]*models.MarriageRecord, len(marriages))
	for i := range marriages {
		m := &marriages[i]
		if _, ok := latestMarriage[m.GroomID]; !ok {
			latestMarriage[m.GroomID] = m
		}
		if _, ok := latestMarriage[m.BrideID]; !ok {
			latestMarriage[m.BrideID] = m
		}
	}
	firstDeath := make(map[string]*models.DeathRecord, len(deaths))
	for i := range deaths {
		d := &deaths[i]
		if _, ok := firstDeath[d.DeceasedBirthID]; !ok {
			firstDeath[d.DeceasedBirthID] = d
		}
	}

	syncedAt := s.now().UTC()
	citizens := make([]models.Citizen, 0, len(births))
	for _, b := range births {
		row := models.Citizen{
			BirthRecordID:         b.ID,
			FirstName:             b.ChildFirstName,
			MiddleName:            b.ChildMiddleName,
			LastName:              b.ChildLastName,
			Gender:                b.Gender,
			DateOfBirth:           b.DateOfBirth,
			BirthCertificateNo:    b.CertificateNo,
			PlaceOfBirth:          b.PlaceOfBirth,
			BirthRegistrationDate: b.RegistrationDate,
			FatherName:            b.FatherName,
			MotherName:            b.MotherName,
			Nationality:           b.Nationality,
			OfficeID:              b.OfficeID,
			Region:                b.OfficeRegion,
			RecordStatus:          b.Status,
			SyncedAt:              syncedAt,
		}
		if m := latestMarriage[b.ID]; m != nil {
			row.IsMarried = true
			row.MarriageRecordID = &m.ID
			row.MarriageCertificateNo = &m.CertificateNo
			row.MarriageDate = &m.DateOfMarriage
		}
		if d := firstDeath[b.ID]; d != nil {
			row.IsDead = true
			row.DeathRecordID = &d.ID
			row.DeathCertificateNo = &d.CertificateNo
			row.DeathDate = &d.DateOfDeath
		}
		citizens = append(citizens, row)
	}

	if err := s.repo.ReplaceAll(ctx, citizens); err != nil {
		if errors.Is(err, repository.ErrRebuildInProgress) {
			return 0, appErrors.Clone(appErrors.ErrConflict, "citizens rebuild already in progress")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace citizens projection")
	}

	s.logger.Info("citizens projection rebuilt",
		zap.Int("rows", len(citizens)),
		zap.Duration("took", s.now().Sub(started)))
	return len(citizens), nil
}

// List returns projection rows visible to the actor.
func (s *CitizenService) List(ctx context.Context, actor policy.Actor, filter models.CitizenFilter) ([]models.Citizen, *models.Pagination, error) {
	if !policy.CanViewAny(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if !actor.IsSystemAdmin && actor.OfficeRegion != "" {
		filter.Region = actor.OfficeRegion
	}
	citizens, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list citizens")
	}
	return citizens, paginationFor(filter.Page, filter.PageSize, total), nil
}
