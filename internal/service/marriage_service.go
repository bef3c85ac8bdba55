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

type marriageRepository interface {
	List(ctx context.Context, filter models.MarriageFilter) ([]models.MarriageRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MarriageRecordDetail, error)
	Create(ctx context.Context, record *models.MarriageRecord) error
	Update(ctx context.Context, record *models.MarriageRecord) error
	Delete(ctx context.Context, id string) error
}

type birthLookup interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.BirthRecord, error)
}

// CreateMarriageRequest holds the payload for registering a marriage.
type CreateMarriageRequest struct {
	CertificateNo    string    `json:"certificate_no"`
	GroomID          string    `json:"groom_id" validate:"required"`
	BrideID          string    `json:"bride_id" validate:"required"`
	DateOfMarriage   time.Time `json:"date_of_marriage" validate:"required"`
	PlaceOfMarriage  string    `json:"place_of_marriage" validate:"required"`
	Witness1Name     string    `json:"witness1_name"`
	Witness2Name     string    `json:"witness2_name"`
	OfficeID         string    `json:"registration_office_id" validate:"required"`
	RegistrationDate time.Time `json:"registration_date" validate:"required"`
	Status           string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// UpdateMarriageRequest holds the payload for amending a marriage record.
type UpdateMarriageRequest struct {
	DateOfMarriage   *time.Time `json:"date_of_marriage"`
	PlaceOfMarriage  *string    `json:"place_of_marriage"`
	Witness1Name     *string    `json:"witness1_name"`
	Witness2Name     *string    `json:"witness2_name"`
	OfficeID         *string    `json:"registration_office_id"`
	RegistrationDate *time.Time `json:"registration_date"`
	Status           *string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// MarriageService handles marriage record use-cases.
type MarriageService struct {
	repo      marriageRepository
	births    birthLookup
	offices   officeLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMarriageService constructs the marriage service.
func NewMarriageService(repo marriageRepository, births birthLookup, offices officeLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *MarriageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarriageService{repo: repo, births: births, offices: offices, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns marriage records visible to the actor.
func (s *MarriageService) List(ctx context.Context, actor policy.Actor, filter models.MarriageFilter) ([]models.MarriageRecordDetail, *models.Pagination, error) {
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
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marriage records")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one marriage record if the actor's scope covers it.
func (s *MarriageService) Get(ctx context.Context, actor policy.Actor, id string) (*models.MarriageRecordDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marriage record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage record")
	}
	if !policy.CanView(actor, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return record, nil
}

// Create registers a new marriage after resolving both spouses' birth records
// and checking the age and relational rules.
func (s *MarriageService) Create(ctx context.Context, actor policy.Actor, req CreateMarriageRequest) (*models.MarriageRecord, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marriage record payload")
	}
	office, err := s.resolveOffice(ctx, actor, req.OfficeID)
	if err != nil {
		return nil, err
	}

	record := &models.MarriageRecord{
		CertificateNo:    req.CertificateNo,
		GroomID:          req.GroomID,
		BrideID:          req.BrideID,
		DateOfMarriage:   req.DateOfMarriage,
		PlaceOfMarriage:  req.PlaceOfMarriage,
		Witness1Name:     req.Witness1Name,
		Witness2Name:     req.Witness2Name,
		OfficeID:         office.ID,
		RegistrationDate: req.RegistrationDate,
		Status:           models.RecordStatusPending,
	}
	if req.Status != "" && actor.IsSystemAdmin {
		record.Status = models.RecordStatus(req.Status)
	}

	groom, bride, err := s.resolveSpouses(ctx, record.GroomID, record.BrideID)
	if err != nil {
		return nil, err
	}
	if verr := validateMarriage(record, groom, bride, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Fielded(appErrors.ErrConflict, "certificate_no", "certificate number already in use")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrReference, "spouse birth record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create marriage record")
	}

	desc, changes := marriageCreatedAudit(record)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, models.RecordTypeMarriage.Table(), desc, changes)
	return record, nil
}

// Update amends a marriage record. Spouses are fixed at creation; the age and
// date rules are re-checked against the merged state.
func (s *MarriageService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateMarriageRequest) (*models.MarriageRecord, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marriage record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage record")
	}
	if !policy.CanUpdate(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marriage record payload")
	}

	old := existing.MarriageRecord
	merged := existing.MarriageRecord
	if req.DateOfMarriage != nil {
		merged.DateOfMarriage = *req.DateOfMarriage
	}
	if req.PlaceOfMarriage != nil {
		merged.PlaceOfMarriage = *req.PlaceOfMarriage
	}
	if req.Witness1Name != nil {
		merged.Witness1Name = *req.Witness1Name
	}
	if req.Witness2Name != nil {
		merged.Witness2Name = *req.Witness2Name
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

	groom, bride, err := s.resolveSpouses(ctx, merged.GroomID, merged.BrideID)
	if err != nil {
		return nil, err
	}
	if verr := validateMarriage(&merged, groom, bride, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update marriage record")
	}

	if desc, changes, ok := marriageUpdatedAudit(&old, &merged); ok {
		s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, models.RecordTypeMarriage.Table(), desc, changes)
	}
	return &merged, nil
}

// Delete removes a marriage record.
func (s *MarriageService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "marriage record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage record")
	}
	if !policy.CanDelete(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete marriage record")
	}

	desc, changes := marriageDeletedAudit(&existing.MarriageRecord)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionDeleted, models.RecordTypeMarriage.Table(), desc, changes)
	return nil
}

func (s *MarriageService) resolveOffice(ctx context.Context, actor policy.Actor, officeID string) (*models.RegistrationOffice, error) {
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

// resolveSpouses loads both spouse birth records in one round trip. A missing
// spouse is a reference error naming the offending field.
func (s *MarriageService) resolveSpouses(ctx context.Context, groomID, brideID string) (*models.BirthRecord, *models.BirthRecord, error) {
	found, err := s.births.FindByIDs(ctx, []string{groomID, brideID})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load spouse birth records")
	}
	groom, ok := found[groomID]
	if !ok {
		return nil, nil, appErrors.Fielded(appErrors.ErrReference, "groom_id", "groom birth record not found")
	}
	bride, ok := found[brideID]
	if !ok {
		return nil, nil, appErrors.Fielded(appErrors.ErrReference, "bride_id", "bride birth record not found")
	}
	return &groom, &bride, nil
}
