package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type officeRepository interface {
	List(ctx context.Context, filter models.OfficeFilter) ([]models.RegistrationOffice, int, error)
	FindByID(ctx context.Context, id string) (*models.RegistrationOffice, error)
	ListRegions(ctx context.Context) ([]string, error)
	Create(ctx context.Context, office *models.RegistrationOffice) error
	Update(ctx context.Context, office *models.RegistrationOffice) error
	IsReferenced(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// CreateOfficeRequest holds the payload for registering a new office.
type CreateOfficeRequest struct {
	OfficeName   string `json:"office_name" validate:"required"`
	Region       string `json:"region" validate:"required"`
	District     string `json:"district" validate:"required"`
	Location     string `json:"location"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateOfficeRequest holds the payload for amending an office. Nil pointers
// leave the stored value untouched.
type UpdateOfficeRequest struct {
	OfficeName   *string `json:"office_name"`
	Region       *string `json:"region"`
	District     *string `json:"district"`
	Location     *string `json:"location"`
	Address      *string `json:"address"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// OfficeService manages the registration office directory. Mutations are
// restricted to system administrators.
type OfficeService struct {
	repo      officeRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOfficeService constructs the office service.
func NewOfficeService(repo officeRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *OfficeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficeService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns offices matching the filter.
func (s *OfficeService) List(ctx context.Context, actor policy.Actor, filter models.OfficeFilter) ([]models.RegistrationOffice, *models.Pagination, error) {
	if !policy.CanViewAny(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	offices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offices")
	}
	return offices, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one office by ID.
func (s *OfficeService) Get(ctx context.Context, actor policy.Actor, id string) (*models.RegistrationOffice, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	office, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "office not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
	}
	return office, nil
}

// Regions returns the distinct regions served by any office.
func (s *OfficeService) Regions(ctx context.Context, actor policy.Actor) ([]string, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	regions, err := s.repo.ListRegions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list regions")
	}
	return regions, nil
}

// Create registers a new office.
func (s *OfficeService) Create(ctx context.Context, actor policy.Actor, req CreateOfficeRequest) (*models.RegistrationOffice, error) {
	if !policy.CanManageOffices(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid office payload")
	}

	status := models.OfficeStatusActive
	if req.Status != "" {
		status = models.OfficeStatus(req.Status)
	}
	office := &models.RegistrationOffice{
		ID:           uuid.NewString(),
		OfficeName:   req.OfficeName,
		Region:       req.Region,
		District:     req.District,
		Location:     req.Location,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       status,
	}
	if err := s.repo.Create(ctx, office); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create office")
	}

	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, "offices", fmt.Sprintf("Office created: %s (%s)", office.OfficeName, office.Region), "")
	return office, nil
}

// Update amends an office.
func (s *OfficeService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateOfficeRequest) (*models.RegistrationOffice, error) {
	if !policy.CanManageOffices(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid office payload")
	}

	office, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "office not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
	}

	if req.OfficeName != nil {
		office.OfficeName = *req.OfficeName
	}
	if req.Region != nil {
		office.Region = *req.Region
	}
	if req.District != nil {
		office.District = *req.District
	}
	if req.Location != nil {
		office.Location = *req.Location
	}
	if req.Address != nil {
		office.Address = *req.Address
	}
	if req.ContactEmail != nil {
		office.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		office.ContactPhone = *req.ContactPhone
	}
	if req.Status != nil {
		office.Status = models.OfficeStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, office); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update office")
	}

	s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, "offices", fmt.Sprintf("Office updated: %s (%s)", office.OfficeName, office.Region), "")
	return office, nil
}

// Delete removes an office. Offices referenced by records or users are kept
// and the call fails with a conflict.
func (s *OfficeService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.CanManageOffices(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	office, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "office not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
	}

	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check office references")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "office is referenced by existing records")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete office")
	}

	s.audit.Record(ctx, &actor.UserID, models.AuditActionDeleted, "offices", fmt.Sprintf("Office deleted: %s (%s)", office.OfficeName, office.Region), "")
	return nil
}
