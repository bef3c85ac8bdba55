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

const officeColumns = `id, office_name, region, district, location, address,
        contact_email, contact_phone, status, created_at, updated_at`

// OfficeRepository manages persistence for registration offices.
type OfficeRepository struct {
	db *sqlx.DB
}

// NewOfficeRepository constructs an OfficeRepository.
func NewOfficeRepository(db *sqlx.DB) *OfficeRepository {
	return &OfficeRepository{db: db}
}

// List returns offices matching the provided filters.
func (r *OfficeRepository) List(ctx context.Context, filter models.OfficeFilter) ([]models.RegistrationOffice, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(office_name) LIKE $%d OR LOWER(district) LIKE $%d)", n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT %s FROM registration_offices WHERE %s ORDER BY region, office_name LIMIT %d OFFSET %d",
		officeColumns, where, size, offset)

	var offices []models.RegistrationOffice
	if err := r.db.SelectContext(ctx, &offices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM registration_offices WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offices: %w", err)
	}
	return offices, total, nil
}

// FindByID fetches an office by ID.
func (r *OfficeRepository) FindByID(ctx context.Context, id string) (*models.RegistrationOffice, error) {
	query := fmt.Sprintf("SELECT %s FROM registration_offices WHERE id = $1", officeColumns)
	var office models.RegistrationOffice
	if err := r.db.GetContext(ctx, &office, query, id); err != nil {
		return nil, err
	}
	return &office, nil
}

// ListByRegion returns every office in a region, unpaginated. Regions hold a
// handful of offices so the full set is cheap to load.
func (r *OfficeRepository) ListByRegion(ctx context.Context, region string) ([]models.RegistrationOffice, error) {
	query := fmt.Sprintf("SELECT %s FROM registration_offices WHERE region = $1 ORDER BY office_name", officeColumns)
	var offices []models.RegistrationOffice
	if err := r.db.SelectContext(ctx, &offices, query, region); err != nil {
		return nil, fmt.Errorf("list offices by region: %w", err)
	}
	return offices, nil
}

// ListRegions returns the distinct regions served by any office.
func (r *OfficeRepository) ListRegions(ctx context.Context) ([]string, error) {
	var regions []string
	if err := r.db.SelectContext(ctx, &regions, "SELECT DISTINCT region FROM registration_offices ORDER BY region"); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return regions, nil
}

// RegionExists reports whether any office serves the given region.
func (r *OfficeRepository) RegionExists(ctx context.Context, region string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM registration_offices WHERE region = $1)", region); err != nil {
		return false, fmt.Errorf("check region: %w", err)
	}
	return exists, nil
}

// Create inserts a new office.
func (r *OfficeRepository) Create(ctx context.Context, office *models.RegistrationOffice) error {
	if office.ID == "" {
		office.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if office.CreatedAt.IsZero() {
		office.CreatedAt = now
	}
	office.UpdatedAt = now
	const query = `INSERT INTO registration_offices (id, office_name, region, district, location, address,
        contact_email, contact_phone, status, created_at, updated_at)
        VALUES (:id, :office_name, :region, :district, :location, :address,
        :contact_email, :contact_phone, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("create office: %w", err)
	}
	return nil
}

// Update modifies an existing office.
func (r *OfficeRepository) Update(ctx context.Context, office *models.RegistrationOffice) error {
	office.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registration_offices SET office_name = :office_name, region = :region,
        district = :district, location = :location, address = :address,
        contact_email = :contact_email, contact_phone = :contact_phone,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("update office: %w", err)
	}
	return nil
}

// IsReferenced reports whether any record or user still points at the office.
func (r *OfficeRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM birth_records WHERE registration_office_id = $1
        UNION SELECT 1 FROM marriage_records WHERE registration_office_id = $1
        UNION SELECT 1 FROM death_records WHERE registration_office_id = $1
        UNION SELECT 1 FROM users WHERE registration_office_id = $1)`
	var referenced bool
	if err := r.db.GetContext(ctx, &referenced, query, id); err != nil {
		return false, fmt.Errorf("check office references: %w", err)
	}
	return referenced, nil
}

// Delete removes an office. Callers must verify it is unreferenced first.
func (r *OfficeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM registration_offices WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete office: %w", err)
	}
	return nil
}
