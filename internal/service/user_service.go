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
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.UserDetail, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetApproval(ctx context.Context, id string, approved bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// CreateUserRequest holds the payload for registering a staff account.
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"required,oneof=admin registrar clerk citizen"`
	OfficeID *string `json:"registration_office_id"`
	Phone    string  `json:"phone"`
	Approved bool    `json:"is_approved"`
}

// UpdateUserRequest holds the payload for amending an account. Nil pointers
// leave the stored value untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin registrar clerk citizen"`
	OfficeID *string `json:"registration_office_id"`
	Phone    *string `json:"phone"`
}

// UserService manages staff accounts and the approval state machine.
// Every operation is restricted to system administrators.
type UserService struct {
	repo      userRepository
	offices   officeLookup
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, offices officeLookup, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, offices: offices, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, actor policy.Actor, filter models.UserFilter) ([]models.UserDetail, *models.Pagination, error) {
	if !policy.CanManageOffices(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one account by ID.
func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (*models.UserDetail, error) {
	if !policy.CanManageOffices(actor) && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a new account. New accounts start unapproved unless the
// request says otherwise.
func (s *UserService) Create(ctx context.Context, actor policy.Actor, req CreateUserRequest) (*models.User, error) {
	if !policy.CanManageOffices(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Fielded(appErrors.ErrConflict, "email", "email already in use")
	}

	if req.OfficeID != nil {
		if _, err := s.offices.FindByID(ctx, *req.OfficeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Fielded(appErrors.ErrReference, "registration_office_id", "registration office not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.UserRole(req.Role),
		IsApproved:   req.Approved,
		OfficeID:     req.OfficeID,
		Phone:        req.Phone,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, "users", fmt.Sprintf("User created: %s (%s)", user.Email, user.Role), "")
	return user, nil
}

// Update amends an account.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if !policy.CanManageOffices(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user := existing.User
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		exists, err := s.repo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if exists {
			return nil, appErrors.Fielded(appErrors.ErrConflict, "email", "email already in use")
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = models.UserRole(*req.Role)
	}
	if req.OfficeID != nil {
		if _, err := s.offices.FindByID(ctx, *req.OfficeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Fielded(appErrors.ErrReference, "registration_office_id", "registration office not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
		}
		user.OfficeID = req.OfficeID
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := s.repo.Update(ctx, &user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, "users", fmt.Sprintf("User updated: %s", user.Email), "")
	return &user, nil
}

// Approve grants an account system access.
func (s *UserService) Approve(ctx context.Context, actor policy.Actor, id string) error {
	return s.setApproval(ctx, actor, id, true)
}

// Revoke withdraws an account's system access and terminates its sessions.
func (s *UserService) Revoke(ctx context.Context, actor policy.Actor, id string) error {
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrConflict, "cannot revoke your own access")
	}
	return s.setApproval(ctx, actor, id, false)
}

func (s *UserService) setApproval(ctx context.Context, actor policy.Actor, id string, approved bool) error {
	if !policy.CanManageOffices(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.SetApproval(ctx, id, approved); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval")
	}

	if approved {
		s.audit.Record(ctx, &actor.UserID, models.AuditActionApproved, "users", fmt.Sprintf("User approved: %s", user.Email), "")
		return nil
	}

	// A revoked account keeps no live sessions.
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens for revoked user", zap.String("user_id", id), zap.Error(err))
	}
	s.audit.Record(ctx, &actor.UserID, models.AuditActionRevoked, "users", fmt.Sprintf("User access revoked: %s", user.Email), "")
	return nil
}
