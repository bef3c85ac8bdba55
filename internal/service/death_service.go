package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	"github.com/noah-isme/civreg-api/internal/repository"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type deathRepository interface {
	List(ctx context.Context, filter models.DeathFilter) ([]models.DeathRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.DeathRecordDetail, error)
	Create(ctx context.Context, record *models.DeathRecord) error
	Update(ctx context.Context, record *models.DeathRecord) error
	Delete(ctx context.Context, id string) error
}

// CreateDeathRequest holds the payload for registering a death.
type CreateDeathRequest struct {
	CertificateNo     string    `json:"certificate_no"`
	DeceasedBirthID   string    `json:"deceased_birth_id" validate:"required"`
	InformantBirthID  *string   `json:"informant_birth_id"`
	DateOfDeath       time.Time `json:"date_of_death" validate:"required"`
	PlaceOfDeath      string    `json:"place_of_death" validate:"required"`
	CauseOfDeath      string    `json:"cause_of_death"`
	InformantName     string    `json:"informant_name"`
	InformantRelation string    `json:"informant_relation"`
	OfficeID          string    `json:"registration_office_id" validate:"required"`
	RegistrationDate  time.Time `json:"registration_date" validate:"required"`
	Status            string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// UpdateDeathRequest holds the payload for amending a death record.
type UpdateDeathRequest struct {
	DateOfDeath       *time.Time `json:"date_of_death"`
	PlaceOfDeath      *string    `json:"place_of_death"`
	CauseOfDeath      *string    `json:"cause_of_death"`
	InformantName     *string    `json:"informant_name"`
	InformantRelation *string    `json:"informant_relation"`
	OfficeID          *string    `json:"registration_office_id"`
	RegistrationDate  *time.Time `json:"registration_date"`
	Status            *string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// DeathService handles death record use-cases.
type DeathService struct {
	repo      deathRepository
	births    birthLookup
	offices   officeLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDeathService constructs the death service.
func NewDeathService(repo deathRepository, births birthLookup, offices officeLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *DeathService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeathService{repo: repo, births: births, offices: offices, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns death records visible to the actor.
func (s *DeathService) List(ctx context.Context, actor policy.Actor, filter models.DeathFilter) ([]models.DeathRecordDetail, *models.Pagination, error) {
	if !policy.CanViewAny(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	region, officeID := policy.ListScope(actor)
	if region != "" {
		filter.Region = region
	}
	if officeID != "" {
		filter.OfficeID = officeID
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list death records")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one death record if the actor's scope covers it.
func (s *DeathService) Get(ctx context.Context, actor policy.Actor, id string) (*models.DeathRecordDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "death record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death record")
	}
	if !policy.CanView(actor, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return record, nil
}

// Create registers a new death after resolving the deceased's birth record and
// checking the temporal rules.
func (s *DeathService) Create(ctx context.Context, actor policy.Actor, req CreateDeathRequest) (*models.DeathRecord, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid death record payload")
	}
	office, err := s.resolveOffice(ctx, actor, req.OfficeID)
	if err != nil {
		return nil, err
	}

	record := &models.DeathRecord{
		CertificateNo:     req.CertificateNo,
		DeceasedBirthID:   req.DeceasedBirthID,
		InformantBirthID:  req.InformantBirthID,
		DateOfDeath:       req.DateOfDeath,
		PlaceOfDeath:      req.PlaceOfDeath,
		CauseOfDeath:      req.CauseOfDeath,
		InformantName:     req.InformantName,
		InformantRelation: req.InformantRelation,
		OfficeID:          office.ID,
		RegistrationDate:  req.RegistrationDate,
		Status:            models.RecordStatusPending,
	}
	if req.Status != "" && actor.IsSystemAdmin {
		record.Status = models.RecordStatus(req.Status)
	}

	deceased, err := s.resolveDeceased(ctx, record.DeceasedBirthID, record.InformantBirthID)
	if err != nil {
		return nil, err
	}
	if verr := validateDeath(record, deceased, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Fielded(appErrors.ErrConflict, "certificate_no", "certificate number already in use")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrReference, "deceased birth record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create death record")
	}

	desc, changes := deathCreatedAudit(record)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, models.RecordTypeDeath.Table(), desc, changes)
	return record, nil
}

// Update amends a death record, re-running the temporal rules against the
// merged state.
func (s *DeathService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateDeathRequest) (*models.DeathRecord, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "death record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death record")
	}
	if !policy.CanUpdate(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid death record payload")
	}

	old := existing.DeathRecord
	merged := existing.DeathRecord
	if req.DateOfDeath != nil {
		merged.DateOfDeath = *req.DateOfDeath
	}
	if req.PlaceOfDeath != nil {
		merged.PlaceOfDeath = *req.PlaceOfDeath
	}
	if req.CauseOfDeath != nil {
		merged.CauseOfDeath = *req.CauseOfDeath
	}
	if req.InformantName != nil {
		merged.InformantName = *req.InformantName
	}
	if req.InformantRelation != nil {
		merged.InformantRelation = *req.InformantRelation
	}
	if req.RegistrationDate != nil {
		merged.RegistrationDate = *req.RegistrationDate
	}
	if req.Status != nil {
		merged.Status = models.RecordStatus(*req.Status)
	}
	if req.OfficeID != nil && *req.OfficeID != merged.OfficeID {
		office, oerr := s.resolveOffice(ctx, actor, *req.OfficeID)
		if oerr != nil {
			return nil, oerr
		}
		merged.OfficeID = office.ID
	}

	deceased, err := s.resolveDeceased(ctx, merged.DeceasedBirthID, merged.InformantBirthID)
	if err != nil {
		return nil, err
	}
	if verr := validateDeath(&merged, deceased, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update death record")
	}

	if desc, changes, ok := deathUpdatedAudit(&old, &merged); ok {
		s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, models.RecordTypeDeath.Table(), desc, changes)
	}
	return &merged, nil
}

// Delete removes a death record.
func (s *DeathService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "death record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death record")
	}
	if !policy.CanDelete(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete death record")
	}

	desc, changes := deathDeletedAudit(&existing.DeathRecord)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionDeleted, models.RecordTypeDeath.Table(), desc, changes)
	return nil
}

func (s *DeathService) resolveOffice(ctx context.Context, actor policy.Actor, officeID string) (*models.RegistrationOffice, error) {
	office, err := s.offices.FindByID(ctx, officeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Fielded(appErrors.ErrReference, "registration_office_id", "registration office not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration office")
	}
	if !policy.CanUpdate(actor, policy.Scope{OfficeID: office.ID, Region: office.Region}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return office, nil
}

// resolveDeceased loads the deceased's, and when given the informant's, birth
// records. Missing references name the offending field.
func (s *DeathService) resolveDeceased(ctx context.Context, deceasedID string, informantID *string) (*models.BirthRecord, error) {
	ids := []string{deceasedID}
	if informantID != nil && *informantID != "" {
		ids = append(ids, *informantID)
	}
	found, err := s.births.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth records")
	}
	deceased, ok := found[deceasedID]
	if !ok {
		return nil, appErrors.Fielded(appErrors.ErrReference, "deceased_birth_id", "deceased birth record not found")
	}
	if informantID != nil && *informantID != "" {
		if _, ok := found[*informantID]; !ok {
			return nil, appErrors.Fielded(appErrors.ErrReference, "informant_birth_id", "informant birth record not found")
		}
	}
	return &deceased, nil
}
