package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

const auditDateFormat = "2006-01-02"

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// AuditService appends trail entries after committed mutations. Writes are
// best-effort: a failed append is logged and never propagated to the caller,
// so the triggering mutation stays successful.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one entry. Errors are swallowed after logging.
func (s *AuditService) Record(ctx context.Context, userID *string, action models.AuditAction, module, description, changes string) {
	entry := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Module:      module,
		Description: description,
		Changes:     changes,
	}
	// The trail entry must survive the request being cancelled mid-flight.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.Create(writeCtx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("module", module),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// List returns trail entries for the admin browsing endpoint.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// The description and changes texts below mirror the wording of the legacy
// government system's audit trail so downstream reviewers keep seeing the
// entries they are used to. Same field order every time, so tests can assert
// exact strings.

func birthCreatedAudit(b *models.BirthRecord) (string, string) {
	desc := fmt.Sprintf("Birth record created: %s (Certificate: %s)", b.ChildName(), b.CertificateNo)
	changes := fmt.Sprintf("New record. Child: %s, DOB: %s, Gender: %s",
		b.ChildName(), b.DateOfBirth.Format(auditDateFormat), b.Gender)
	return desc, changes
}

// birthUpdatedAudit reports ok=false when neither the status nor the child's
// first name changed; such updates produce no trail entry.
func birthUpdatedAudit(old, updated *models.BirthRecord) (string, string, bool) {
	statusChanged := old.Status != updated.Status
	nameChanged := old.ChildFirstName != updated.ChildFirstName
	if !statusChanged && !nameChanged {
		return "", "", false
	}
	desc := fmt.Sprintf("Birth record updated: %s (Certificate: %s)", updated.ChildName(), updated.CertificateNo)
	changes := fmt.Sprintf("Status: %s → %s", old.Status, updated.Status)
	if nameChanged {
		changes += fmt.Sprintf(" | Name: %s → %s", old.ChildFirstName, updated.ChildFirstName)
	}
	return desc, changes, true
}

func birthDeletedAudit(old *models.BirthRecord) (string, string) {
	desc := fmt.Sprintf("Birth record DELETED: %s (Certificate: %s)", old.ChildName(), old.CertificateNo)
	changes := fmt.Sprintf("Deleted child: %s, DOB: %s, Status was: %s",
		old.ChildName(), old.DateOfBirth.Format(auditDateFormat), old.Status)
	return desc, changes
}

func marriageCreatedAudit(m *models.MarriageRecord) (string, string) {
	desc := fmt.Sprintf("Marriage record created (Certificate: %s)", m.CertificateNo)
	changes := fmt.Sprintf("New marriage record. Groom ID: %s, Bride ID: %s, Date: %s, Location: %s",
		m.GroomID, m.BrideID, m.DateOfMarriage.Format(auditDateFormat), m.PlaceOfMarriage)
	return desc, changes
}

func marriageUpdatedAudit(old, updated *models.MarriageRecord) (string, string, bool) {
	if old.Status == updated.Status {
		return "", "", false
	}
	desc := fmt.Sprintf("Marriage record updated (Certificate: %s)", updated.CertificateNo)
	changes := fmt.Sprintf("Status: %s → %s | Certificate: %s", old.Status, updated.Status, updated.CertificateNo)
	return desc, changes, true
}

func marriageDeletedAudit(old *models.MarriageRecord) (string, string) {
	desc := fmt.Sprintf("Marriage record DELETED (Certificate: %s)", old.CertificateNo)
	changes := fmt.Sprintf("Deleted marriage between Groom ID: %s and Bride ID: %s, Date: %s, Status was: %s",
		old.GroomID, old.BrideID, old.DateOfMarriage.Format(auditDateFormat), old.Status)
	return desc, changes
}

func deathCreatedAudit(d *models.DeathRecord) (string, string) {
	desc := fmt.Sprintf("Death record created (Certificate: %s)", d.CertificateNo)
	changes := fmt.Sprintf("New death record. Deceased Birth ID: %s, Date of Death: %s, Location: %s, Cause: %s",
		d.DeceasedBirthID, d.DateOfDeath.Format(auditDateFormat), d.PlaceOfDeath, d.CauseOfDeath)
	return desc, changes
}

func deathUpdatedAudit(old, updated *models.DeathRecord) (string, string, bool) {
	if old.Status == updated.Status {
		return "", "", false
	}
	desc := fmt.Sprintf("Death record updated (Certificate: %s)", updated.CertificateNo)
	changes := fmt.Sprintf("Status: %s → %s | Certificate: %s", old.Status, updated.Status, updated.CertificateNo)
	return desc, changes, true
}

func deathDeletedAudit(old *models.DeathRecord) (string, string) {
	desc := fmt.Sprintf("Death record DELETED (Certificate: %s)", old.CertificateNo)
	changes := fmt.Sprintf("Deleted death record. Deceased Birth ID: %s, Date was: %s, Cause was: %s, Status was: %s",
		old.DeceasedBirthID, old.DateOfDeath.Format(auditDateFormat), old.CauseOfDeath, old.Status)
	return desc, changes
}

func certificateCreatedAudit(cert *models.Certificate) (string, string) {
	desc := fmt.Sprintf("Certificate issued: %s for %s record %s", cert.CertificateNumber, cert.RecordType, cert.RecordID)
	changes := fmt.Sprintf("New certificate. Number: %s, Type: %s, Record ID: %s, Issue Date: %s, Copies: %d",
		cert.CertificateNumber, cert.RecordType, cert.RecordID, cert.IssueDate.Format(auditDateFormat), cert.CopiesIssued)
	return desc, changes
}

func certificateUpdatedAudit(old, updated *models.Certificate) (string, string, bool) {
	if old.Status == updated.Status {
		return "", "", false
	}
	desc := fmt.Sprintf("Certificate updated: %s for %s record %s", updated.CertificateNumber, updated.RecordType, updated.RecordID)
	changes := fmt.Sprintf("Status: %s → %s | Certificate: %s", old.Status, updated.Status, updated.CertificateNumber)
	return desc, changes, true
}

func certificateDeletedAudit(old *models.Certificate) (string, string) {
	desc := fmt.Sprintf("Certificate deleted: %s record %s", old.RecordType, old.RecordID)
	changes := fmt.Sprintf("Deleted certificate. Type: %s, Record ID: %s, Status was: %s",
		old.RecordType, old.RecordID, old.Status)
	return desc, changes
}
