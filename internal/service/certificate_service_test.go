package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockCertificateRepo struct {
	certs      map[string]*models.Certificate
	byRecord   *models.Certificate
	exists     bool
	existsErr  error
	created    *models.Certificate
	updated    *models.Certificate
	deletedID  string
	createErr  error
	lastFilter models.CertificateFilter
}

func (m *mockCertificateRepo) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockCertificateRepo) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	cert, ok := m.certs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *cert
	return &copied, nil
}

func (m *mockCertificateRepo) FindByRecord(ctx context.Context, ref models.RecordRef) (*models.Certificate, error) {
	if m.byRecord == nil {
		return nil, sql.ErrNoRows
	}
	return m.byRecord, nil
}

func (m *mockCertificateRepo) RecordExists(ctx context.Context, ref models.RecordRef) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists, nil
}

func (m *mockCertificateRepo) Create(ctx context.Context, cert *models.Certificate) error {
	if m.createErr != nil {
		return m.createErr
	}
	cert.ID = "cert-new"
	m.created = cert
	return nil
}

func (m *mockCertificateRepo) Update(ctx context.Context, cert *models.Certificate) error {
	m.updated = cert
	return nil
}

func (m *mockCertificateRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func newCertificateService(repo *mockCertificateRepo, audit *mockAuditRepo) *CertificateService {
	return NewCertificateService(repo, NewAuditService(audit, zap.NewNop()), validator.New(), zap.NewNop())
}

func validIssueRequest() IssueCertificateRequest {
	return IssueCertificateRequest{
		RecordID:          "birth-1",
		RecordType:        "birth",
		CertificateNumber: "CERT-2024-0001",
		IssueDate:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		IssuedBy:          "Central Office",
	}
}

func TestCertificateServiceIssue(t *testing.T) {
	t.Run("success defaults one copy", func(t *testing.T) {
		repo := &mockCertificateRepo{exists: true}
		audit := &mockAuditRepo{}
		svc := newCertificateService(repo, audit)

		cert, err := svc.Issue(context.Background(), sysadminActor(), validIssueRequest())
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusIssued, cert.Status)
		assert.Equal(t, 1, cert.CopiesIssued)
		assert.Equal(t, models.RecordTypeBirth, cert.RecordType)

		require.Len(t, audit.entries, 1)
		entry := audit.entries[0]
		assert.Equal(t, models.AuditActionCreated, entry.Action)
		assert.Equal(t, "certificates", entry.Module)
		assert.Contains(t, entry.Description, "CERT-2024-0001")
		assert.Contains(t, entry.Changes, "Record ID: birth-1")
	})

	t.Run("failed issue leaves no trail", func(t *testing.T) {
		repo := &mockCertificateRepo{exists: true, createErr: &pq.Error{Code: "23505"}}
		audit := &mockAuditRepo{}
		svc := newCertificateService(repo, audit)

		_, err := svc.Issue(context.Background(), sysadminActor(), validIssueRequest())
		require.Error(t, err)
		assert.Empty(t, audit.entries)
	})

	t.Run("missing record is a reference error", func(t *testing.T) {
		repo := &mockCertificateRepo{exists: false}
		svc := newCertificateService(repo, &mockAuditRepo{})

		_, err := svc.Issue(context.Background(), sysadminActor(), validIssueRequest())
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
		assert.Equal(t, "record_id", appErr.Field)
	})

	t.Run("duplicate number", func(t *testing.T) {
		repo := &mockCertificateRepo{exists: true, createErr: &pq.Error{Code: "23505"}}
		svc := newCertificateService(repo, &mockAuditRepo{})

		_, err := svc.Issue(context.Background(), sysadminActor(), validIssueRequest())
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Equal(t, "certificate_number", appErr.Field)
	})

	t.Run("unknown record type fails validation", func(t *testing.T) {
		svc := newCertificateService(&mockCertificateRepo{exists: true}, &mockAuditRepo{})

		req := validIssueRequest()
		req.RecordType = "adoption"
		_, err := svc.Issue(context.Background(), sysadminActor(), req)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("clerk may not issue", func(t *testing.T) {
		svc := newCertificateService(&mockCertificateRepo{exists: true}, &mockAuditRepo{})

		_, err := svc.Issue(context.Background(), clerkActor("office-1", "north"), validIssueRequest())
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	})
}

func TestCertificateServiceListRegionScope(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := newCertificateService(repo, &mockAuditRepo{})

	_, _, err := svc.List(context.Background(), registrarActor("office-1", "north"), models.CertificateFilter{Region: "south"})
	require.NoError(t, err)
	assert.Equal(t, "north", repo.lastFilter.Region)
}

func TestCertificateServiceDelete(t *testing.T) {
	t.Run("issued certificate is protected", func(t *testing.T) {
		repo := &mockCertificateRepo{certs: map[string]*models.Certificate{
			"cert-1": {ID: "cert-1", CertificateNumber: "CERT-1", Status: models.CertificateStatusIssued},
		}}
		svc := newCertificateService(repo, &mockAuditRepo{})

		err := svc.Delete(context.Background(), sysadminActor(), "cert-1")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Empty(t, repo.deletedID)
	})

	t.Run("cancelled certificate is deletable", func(t *testing.T) {
		repo := &mockCertificateRepo{certs: map[string]*models.Certificate{
			"cert-1": {ID: "cert-1", CertificateNumber: "CERT-1", Status: models.CertificateStatusCancelled},
		}}
		audit := &mockAuditRepo{}
		svc := newCertificateService(repo, audit)

		err := svc.Delete(context.Background(), sysadminActor(), "cert-1")
		require.NoError(t, err)
		assert.Equal(t, "cert-1", repo.deletedID)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, models.AuditActionDeleted, audit.entries[0].Action)
	})
}

func TestCertificateServiceUpdate(t *testing.T) {
	t.Run("status change is audited", func(t *testing.T) {
		repo := &mockCertificateRepo{certs: map[string]*models.Certificate{
			"cert-1": {ID: "cert-1", CertificateNumber: "CERT-1", Status: models.CertificateStatusIssued, CopiesIssued: 1},
		}}
		audit := &mockAuditRepo{}
		svc := newCertificateService(repo, audit)

		status := string(models.CertificateStatusCancelled)
		copies := 3
		cert, err := svc.Update(context.Background(), registrarActor("office-1", "north"), "cert-1", UpdateCertificateRequest{Status: &status, CopiesIssued: &copies})
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusCancelled, cert.Status)
		assert.Equal(t, 3, cert.CopiesIssued)
		assert.Equal(t, "CERT-1", cert.CertificateNumber)

		require.Len(t, audit.entries, 1)
		assert.Equal(t, models.AuditActionUpdated, audit.entries[0].Action)
		assert.Contains(t, audit.entries[0].Changes, "Status: issued → cancelled")
	})

	t.Run("untracked change skips the trail", func(t *testing.T) {
		repo := &mockCertificateRepo{certs: map[string]*models.Certificate{
			"cert-1": {ID: "cert-1", CertificateNumber: "CERT-1", Status: models.CertificateStatusIssued, CopiesIssued: 1},
		}}
		audit := &mockAuditRepo{}
		svc := newCertificateService(repo, audit)

		copies := 2
		_, err := svc.Update(context.Background(), registrarActor("office-1", "north"), "cert-1", UpdateCertificateRequest{CopiesIssued: &copies})
		require.NoError(t, err)
		assert.Empty(t, audit.entries)
	})
}

func TestCertificateServiceFindByRecord(t *testing.T) {
	t.Run("no certificate issued", func(t *testing.T) {
		svc := newCertificateService(&mockCertificateRepo{}, &mockAuditRepo{})

		_, err := svc.FindByRecord(context.Background(), clerkActor("office-1", "north"), models.RecordRef{Type: models.RecordTypeBirth, ID: "birth-1"})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})

	t.Run("found", func(t *testing.T) {
		repo := &mockCertificateRepo{byRecord: &models.Certificate{ID: "cert-1", RecordID: "birth-1"}}
		svc := newCertificateService(repo, &mockAuditRepo{})

		cert, err := svc.FindByRecord(context.Background(), clerkActor("office-1", "north"), models.RecordRef{Type: models.RecordTypeBirth, ID: "birth-1"})
		require.NoError(t, err)
		assert.Equal(t, "cert-1", cert.ID)
	})
}
