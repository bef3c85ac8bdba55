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

type birthRepository interface {
	List(ctx context.Context, filter models.BirthFilter) ([]models.BirthRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BirthRecordDetail, error)
	Create(ctx context.Context, record *models.BirthRecord) error
	Update(ctx context.Context, record *models.BirthRecord) error
	Delete(ctx context.Context, id string) error
}

type officeLookup interface {
	FindByID(ctx context.Context, id string) (*models.RegistrationOffice, error)
}

// CreateBirthRequest holds the payload for registering a birth.
type CreateBirthRequest struct {
	CertificateNo    string    `json:"certificate_no"`
	DateOfBirth      time.Time `json:"date_of_birth" validate:"required"`
	PlaceOfBirth     string    `json:"place_of_birth" validate:"required"`
	ChildFirstName   string    `json:"child_first_name" validate:"required"`
	ChildMiddleName  string    `json:"child_middle_name"`
	ChildLastName    string    `json:"child_last_name" validate:"required"`
	Gender           string    `json:"gender" validate:"required,oneof=M F"`
	FatherName       string    `json:"father_name"`
	MotherName       string    `json:"mother_name"`
	Nationality      string    `json:"nationality"`
	OfficeID         string    `json:"registration_office_id" validate:"required"`
	RegistrationDate time.Time `json:"registration_date" validate:"required"`
	Status           string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// UpdateBirthRequest holds the payload for amending a birth record. Nil
// pointers leave the stored value untouched.
type UpdateBirthRequest struct {
	DateOfBirth      *time.Time `json:"date_of_birth"`
	PlaceOfBirth     *string    `json:"place_of_birth"`
	ChildFirstName   *string    `json:"child_first_name"`
	ChildMiddleName  *string    `json:"child_middle_name"`
	ChildLastName    *string    `json:"child_last_name"`
	Gender           *string    `json:"gender" validate:"omitempty,oneof=M F"`
	FatherName       *string    `json:"father_name"`
	MotherName       *string    `json:"mother_name"`
	Nationality      *string    `json:"nationality"`
	OfficeID         *string    `json:"registration_office_id"`
	RegistrationDate *time.Time `json:"registration_date"`
	Status           *string    `json:"status" validate:"omitempty,oneof=pending registered rejected"`
}

// BirthService handles birth record use-cases.
type BirthService struct {
	repo      birthRepository
	offices   officeLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBirthService constructs the birth service.
func NewBirthService(repo birthRepository, offices officeLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *BirthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BirthService{repo: repo, offices: offices, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns birth records visible to the actor.
func (s *BirthService) List(ctx context.Context, actor policy.Actor, filter models.BirthFilter) ([]models.BirthRecordDetail, *models.Pagination, error) {
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
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list birth records")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one birth record if the actor's scope covers it.
func (s *BirthService) Get(ctx context.Context, actor policy.Actor, id string) (*models.BirthRecordDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "birth record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth record")
	}
	if !policy.CanView(actor, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return record, nil
}

// Create registers a new birth record. The certificate number is allocated by
// the store when the request leaves it blank.
func (s *BirthService) Create(ctx context.Context, actor policy.Actor, req CreateBirthRequest) (*models.BirthRecord, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth record payload")
	}
	office, err := s.resolveOffice(ctx, actor, req.OfficeID)
	if err != nil {
		return nil, err
	}

	record := &models.BirthRecord{
		CertificateNo:    req.CertificateNo,
		DateOfBirth:      req.DateOfBirth,
		PlaceOfBirth:     req.PlaceOfBirth,
		ChildFirstName:   req.ChildFirstName,
		ChildMiddleName:  req.ChildMiddleName,
		ChildLastName:    req.ChildLastName,
		Gender:           models.Gender(req.Gender),
		FatherName:       req.FatherName,
		MotherName:       req.MotherName,
		Nationality:      req.Nationality,
		OfficeID:         office.ID,
		RegistrationDate: req.RegistrationDate,
		Status:           models.RecordStatusPending,
	}
	if req.Status != "" && actor.IsSystemAdmin {
		record.Status = models.RecordStatus(req.Status)
	}
	if verr := validateBirthDates(record, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Fielded(appErrors.ErrConflict, "certificate_no", "certificate number already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create birth record")
	}

	desc, changes := birthCreatedAudit(record)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, models.RecordTypeBirth.Table(), desc, changes)
	return record, nil
}

// Update amends a birth record, re-running the temporal rules against the
// merged state. Only tracked-field changes produce an audit entry.
func (s *BirthService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateBirthRequest) (*models.BirthRecord, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "birth record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth record")
	}
	if !policy.CanUpdate(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth record payload")
	}

	old := existing.BirthRecord
	merged := existing.BirthRecord
	if req.DateOfBirth != nil {
		merged.DateOfBirth = *req.DateOfBirth
	}
	if req.PlaceOfBirth != nil {
		merged.PlaceOfBirth = *req.PlaceOfBirth
	}
	if req.ChildFirstName != nil {
		merged.ChildFirstName = *req.ChildFirstName
	}
	if req.ChildMiddleName != nil {
		merged.ChildMiddleName = *req.ChildMiddleName
	}
	if req.ChildLastName != nil {
		merged.ChildLastName = *req.ChildLastName
	}
	if req.Gender != nil {
		merged.Gender = models.Gender(*req.Gender)
	}
	if req.FatherName != nil {
		merged.FatherName = *req.FatherName
	}
	if req.MotherName != nil {
		merged.MotherName = *req.MotherName
	}
	if req.Nationality != nil {
		merged.Nationality = *req.Nationality
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
	if verr := validateBirthDates(&merged, s.now()); verr != nil {
		return nil, verr
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update birth record")
	}

	if desc, changes, ok := birthUpdatedAudit(&old, &merged); ok {
		s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, models.RecordTypeBirth.Table(), desc, changes)
	}
	return &merged, nil
}

// Delete removes a birth record and, through the store's cascade, dependent
// marriage and death records.
func (s *BirthService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "birth record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth record")
	}
	if !policy.CanDelete(actor, policy.Scope{OfficeID: existing.OfficeID, Region: existing.OfficeRegion}) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete birth record")
	}

	desc, changes := birthDeletedAudit(&existing.BirthRecord)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionDeleted, models.RecordTypeBirth.Table(), desc, changes)
	return nil
}

// resolveOffice loads the target office and checks the actor may write into
// it. A missing office is a reference error, not a not-found.
func (s *BirthService) resolveOffice(ctx context.Context, actor policy.Actor, officeID string) (*models.RegistrationOffice, error) {
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

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
