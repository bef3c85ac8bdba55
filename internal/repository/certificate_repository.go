package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civreg-api/internal/models"
)

const certificateColumns = `id, record_id, record_type, certificate_number, issue_date,
        expiry_date, issued_by, copies_issued, status, created_at, updated_at`

// CertificateRepository manages persistence for issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// regionScope restricts certificates to records registered in the region. The
// certificate row itself has no office column, so the match goes through the
// referenced record per type.
func regionScope(argPos int) string {
	return fmt.Sprintf(`(
        (c.record_type = 'birth' AND EXISTS (SELECT 1 FROM birth_records b JOIN registration_offices o ON o.id = b.registration_office_id WHERE b.id = c.record_id AND o.region = $%d))
        OR (c.record_type = 'marriage' AND EXISTS (SELECT 1 FROM marriage_records m JOIN registration_offices o ON o.id = m.registration_office_id WHERE m.id = c.record_id AND o.region = $%d))
        OR (c.record_type = 'death' AND EXISTS (SELECT 1 FROM death_records d JOIN registration_offices o ON o.id = d.registration_office_id WHERE d.id = c.record_id AND o.region = $%d)))`,
		argPos, argPos, argPos)
}

// List returns certificates matching the provided filters.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.RecordType != nil {
		conditions = append(conditions, fmt.Sprintf("c.record_type = $%d", len(args)+1))
		args = append(args, *filter.RecordType)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Region != "" {
		conditions = append(conditions, regionScope(len(args)+1))
		args = append(args, filter.Region)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.record_id, c.record_type, c.certificate_number, c.issue_date,
        c.expiry_date, c.issued_by, c.copies_issued, c.status, c.created_at, c.updated_at
        FROM certificates c WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, where, size, offset)

	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM certificates c WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}
	return certs, total, nil
}

// FindByID fetches a certificate by ID.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE id = $1", certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByRecord fetches the certificate issued for a record reference, if any.
func (r *CertificateRepository) FindByRecord(ctx context.Context, ref models.RecordRef) (*models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE record_id = $1 AND record_type = $2", certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, ref.ID, ref.Type); err != nil {
		return nil, err
	}
	return &cert, nil
}

// RecordExists reports whether the referenced record row exists.
func (r *CertificateRepository) RecordExists(ctx context.Context, ref models.RecordRef) (bool, error) {
	table := ref.Type.Table()
	if table == "" {
		return false, fmt.Errorf("unknown record type %q", ref.Type)
	}
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ref.ID); err != nil {
		return false, fmt.Errorf("check record reference: %w", err)
	}
	return exists, nil
}

// Create inserts a new certificate row.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now
	const query = `INSERT INTO certificates (id, record_id, record_type, certificate_number, issue_date,
        expiry_date, issued_by, copies_issued, status, created_at, updated_at)
        VALUES (:id, :record_id, :record_type, :certificate_number, :issue_date,
        :expiry_date, :issued_by, :copies_issued, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// Update modifies an existing certificate.
func (r *CertificateRepository) Update(ctx context.Context, cert *models.Certificate) error {
	cert.UpdatedAt = time.Now().UTC()
	const query = `UPDATE certificates SET issue_date = :issue_date, expiry_date = :expiry_date,
        issued_by = :issued_by, copies_issued = :copies_issued, status = :status,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	return nil
}

// Delete removes a certificate row. Business rules around issued certificates
// are enforced in the service before this is called.
func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM certificates WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return nil
}
