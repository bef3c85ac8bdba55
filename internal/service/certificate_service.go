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

type certificateRepository interface {
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error)
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindByRecord(ctx context.Context, ref models.RecordRef) (*models.Certificate, error)
	RecordExists(ctx context.Context, ref models.RecordRef) (bool, error)
	Create(ctx context.Context, cert *models.Certificate) error
	Update(ctx context.Context, cert *models.Certificate) error
	Delete(ctx context.Context, id string) error
}

// IssueCertificateRequest holds the payload for issuing a certificate.
type IssueCertificateRequest struct {
	RecordID          string     `json:"record_id" validate:"required"`
	RecordType        string     `json:"record_type" validate:"required,oneof=birth marriage death"`
	CertificateNumber string     `json:"certificate_number" validate:"required"`
	IssueDate         time.Time  `json:"issue_date" validate:"required"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	IssuedBy          string     `json:"issued_by" validate:"required"`
	CopiesIssued      int        `json:"copies_issued" validate:"omitempty,min=1"`
}

// UpdateCertificateRequest holds the payload for amending a certificate.
type UpdateCertificateRequest struct {
	IssueDate    *time.Time `json:"issue_date"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	IssuedBy     *string    `json:"issued_by"`
	CopiesIssued *int       `json:"copies_issued" validate:"omitempty,min=1"`
	Status       *string    `json:"status" validate:"omitempty,oneof=issued cancelled renewed"`
}

// CertificateService handles certificate use-cases.
type CertificateService struct {
	repo      certificateRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCertificateService constructs the certificate service.
func NewCertificateService(repo certificateRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns certificates visible to the actor, region-scoped through the
// referenced records.
func (s *CertificateService) List(ctx context.Context, actor policy.Actor, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error) {
	if !policy.CanViewAny(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if region, _ := policy.ListScope(actor); region != "" {
		filter.Region = region
	}
	certs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one certificate.
func (s *CertificateService) Get(ctx context.Context, actor policy.Actor, id string) (*models.Certificate, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// Issue creates a certificate for an existing record.
func (s *CertificateService) Issue(ctx context.Context, actor policy.Actor, req IssueCertificateRequest) (*models.Certificate, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}

	ref := models.RecordRef{Type: models.RecordType(req.RecordType), ID: req.RecordID}
	exists, err := s.repo.RecordExists(ctx, ref)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check record reference")
	}
	if !exists {
		return nil, appErrors.Fielded(appErrors.ErrReference, "record_id", "referenced record not found")
	}

	copies := req.CopiesIssued
	if copies < 1 {
		copies = 1
	}
	cert := &models.Certificate{
		RecordID:          ref.ID,
		RecordType:        ref.Type,
		CertificateNumber: req.CertificateNumber,
		IssueDate:         req.IssueDate,
		ExpiryDate:        req.ExpiryDate,
		IssuedBy:          req.IssuedBy,
		CopiesIssued:      copies,
		Status:            models.CertificateStatusIssued,
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Fielded(appErrors.ErrConflict, "certificate_number", "certificate number already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue certificate")
	}

	desc, changes := certificateCreatedAudit(cert)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionCreated, "certificates", desc, changes)
	return cert, nil
}

// Update amends a certificate.
func (s *CertificateService) Update(ctx context.Context, actor policy.Actor, id string, req UpdateCertificateRequest) (*models.Certificate, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	old := *cert
	if req.IssueDate != nil {
		cert.IssueDate = *req.IssueDate
	}
	if req.ExpiryDate != nil {
		cert.ExpiryDate = req.ExpiryDate
	}
	if req.IssuedBy != nil {
		cert.IssuedBy = *req.IssuedBy
	}
	if req.CopiesIssued != nil {
		cert.CopiesIssued = *req.CopiesIssued
	}
	if req.Status != nil {
		cert.Status = models.CertificateStatus(*req.Status)
	}
	if err := s.repo.Update(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update certificate")
	}

	if desc, changes, ok := certificateUpdatedAudit(&old, cert); ok {
		s.audit.Record(ctx, &actor.UserID, models.AuditActionUpdated, "certificates", desc, changes)
	}
	return cert, nil
}

// Delete removes a certificate. Issued certificates can never be deleted;
// cancel or renew them first.
func (s *CertificateService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.CanCreate(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if cert.Status == models.CertificateStatusIssued {
		return appErrors.Fielded(appErrors.ErrConflict, "status", "cannot delete issued certificates")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete certificate")
	}

	desc, changes := certificateDeletedAudit(cert)
	s.audit.Record(ctx, &actor.UserID, models.AuditActionDeleted, "certificates", desc, changes)
	return nil
}

// FindByRecord returns the certificate issued for one record, if any.
func (s *CertificateService) FindByRecord(ctx context.Context, actor policy.Actor, ref models.RecordRef) (*models.Certificate, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	cert, err := s.repo.FindByRecord(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}
