package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civreg-api/internal/models"
)

const deathSelectColumns = `d.id, d.certificate_no, d.deceased_birth_id, d.informant_birth_id,
        d.date_of_death, d.place_of_death, d.cause_of_death, d.informant_name, d.informant_relation,
        d.registration_office_id, d.registration_date, d.status, d.created_at, d.updated_at,
        b.child_first_name || ' ' || b.child_last_name AS deceased_name,
        o.office_name AS office_name, o.region AS office_region`

const deathBase = `FROM death_records d
        JOIN birth_records b ON b.id = d.deceased_birth_id
        JOIN registration_offices o ON o.id = d.registration_office_id`

// DeathRepository manages persistence for death records.
type DeathRepository struct {
	db        *sqlx.DB
	sequences *SequenceRepository
}

// NewDeathRepository constructs a DeathRepository.
func NewDeathRepository(db *sqlx.DB, sequences *SequenceRepository) *DeathRepository {
	return &DeathRepository{db: db, sequences: sequences}
}

// List returns death records matching the provided filters.
func (r *DeathRepository) List(ctx context.Context, filter models.DeathFilter) ([]models.DeathRecordDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.OfficeID != "" {
		conditions = append(conditions, fmt.Sprintf("d.registration_office_id = $%d", len(args)+1))
		args = append(args, filter.OfficeID)
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("o.region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM d.registration_date) = $%d", len(args)+1))
		args = append(args, filter.Year)
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

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY d.created_at DESC LIMIT %d OFFSET %d",
		deathSelectColumns, deathBase, where, size, offset)

	var records []models.DeathRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list death records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", deathBase, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count death records: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a death record with the deceased's name and office by ID.
func (r *DeathRepository) FindByID(ctx context.Context, id string) (*models.DeathRecordDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE d.id = $1", deathSelectColumns, deathBase)
	var detail models.DeathRecordDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByDeceased returns the first death record for the given birth record,
// or nil when none exists.
func (r *DeathRepository) FindByDeceased(ctx context.Context, birthID string) (*models.DeathRecordDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE d.deceased_birth_id = $1 ORDER BY d.created_at LIMIT 1", deathSelectColumns, deathBase)
	var detail models.DeathRecordDetail
	if err := r.db.GetContext(ctx, &detail, query, birthID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find death by deceased: %w", err)
	}
	return &detail, nil
}

// Create inserts a new death record, allocating a certificate number in the
// same transaction when absent.
func (r *DeathRepository) Create(ctx context.Context, record *models.DeathRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assign := record.CertificateNo == ""
	const query = `INSERT INTO death_records (id, certificate_no, deceased_birth_id, informant_birth_id,
        date_of_death, place_of_death, cause_of_death, informant_name, informant_relation,
        registration_office_id, registration_date, status, created_at, updated_at)
        VALUES (:id, :certificate_no, :deceased_birth_id, :informant_birth_id,
        :date_of_death, :place_of_death, :cause_of_death, :informant_name, :informant_relation,
        :registration_office_id, :registration_date, :status, :created_at, :updated_at)`

	for attempt := 0; ; attempt++ {
		err := RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
			if assign {
				seq, err := r.sequences.NextInTx(ctx, tx, models.RecordTypeDeath, record.RegistrationDate.Year())
				if err != nil {
					return err
				}
				record.CertificateNo = models.FormatCertificateNumber(models.RecordTypeDeath, record.RegistrationDate.Year(), seq)
			}
			if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
				return err
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if assign && IsUniqueViolation(err) && attempt+1 < maxCertNumberRetries {
			continue
		}
		return fmt.Errorf("create death record: %w", err)
	}
}

// Update modifies an existing death record.
func (r *DeathRepository) Update(ctx context.Context, record *models.DeathRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE death_records SET deceased_birth_id = :deceased_birth_id,
        informant_birth_id = :informant_birth_id, date_of_death = :date_of_death,
        place_of_death = :place_of_death, cause_of_death = :cause_of_death,
        informant_name = :informant_name, informant_relation = :informant_relation,
        registration_office_id = :registration_office_id, registration_date = :registration_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update death record: %w", err)
	}
	return nil
}

// Delete removes a death record.
func (r *DeathRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM death_records WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete death record: %w", err)
	}
	return nil
}
