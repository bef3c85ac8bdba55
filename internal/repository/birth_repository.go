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

// maxCertNumberRetries caps how often a create is retried after losing a
// certificate number race to a concurrent insert.
const maxCertNumberRetries = 3

const birthSelectColumns = `b.id, b.certificate_no, b.date_of_birth, b.place_of_birth,
        b.child_first_name, b.child_middle_name, b.child_last_name, b.gender,
        b.father_name, b.mother_name, b.nationality, b.registration_office_id,
        b.registration_date, b.status, b.created_at, b.updated_at,
        o.office_name AS office_name, o.region AS office_region`

// BirthRepository manages persistence for birth records.
type BirthRepository struct {
	db        *sqlx.DB
	sequences *SequenceRepository
}

// NewBirthRepository constructs a BirthRepository.
func NewBirthRepository(db *sqlx.DB, sequences *SequenceRepository) *BirthRepository {
	return &BirthRepository{db: db, sequences: sequences}
}

// List returns birth records matching the provided filters.
func (r *BirthRepository) List(ctx context.Context, filter models.BirthFilter) ([]models.BirthRecordDetail, int, error) {
	base := "FROM birth_records b JOIN registration_offices o ON o.id = b.registration_office_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.OfficeID != "" {
		conditions = append(conditions, fmt.Sprintf("b.registration_office_id = $%d", len(args)+1))
		args = append(args, filter.OfficeID)
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("o.region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM b.registration_date) = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(b.child_first_name) LIKE $%d OR LOWER(b.child_last_name) LIKE $%d OR LOWER(b.certificate_no) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY b.created_at DESC LIMIT %d OFFSET %d", birthSelectColumns, base, size, offset)

	var records []models.BirthRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list birth records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count birth records: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a birth record with its office by ID.
func (r *BirthRepository) FindByID(ctx context.Context, id string) (*models.BirthRecordDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id
        WHERE b.id = $1`, birthSelectColumns)
	var detail models.BirthRecordDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByIDs loads a set of birth records keyed by ID, used when validating
// marriage spouses and death subjects.
func (r *BirthRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.BirthRecord, error) {
	if len(ids) == 0 {
		return map[string]models.BirthRecord{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, certificate_no, date_of_birth, place_of_birth,
        child_first_name, child_middle_name, child_last_name, gender,
        father_name, mother_name, nationality, registration_office_id,
        registration_date, status, created_at, updated_at
        FROM birth_records WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build birth lookup: %w", err)
	}
	query = r.db.Rebind(query)

	var records []models.BirthRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("load birth records: %w", err)
	}
	out := make(map[string]models.BirthRecord, len(records))
	for _, rec := range records {
		out[rec.ID] = rec
	}
	return out, nil
}

// Create inserts a new birth record, allocating a certificate number inside
// the same transaction when the caller did not provide one. Losing a number
// race rolls back and retries with a freshly allocated sequence.
func (r *BirthRepository) Create(ctx context.Context, record *models.BirthRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assign := record.CertificateNo == ""
	const query = `INSERT INTO birth_records (id, certificate_no, date_of_birth, place_of_birth,
        child_first_name, child_middle_name, child_last_name, gender, father_name, mother_name,
        nationality, registration_office_id, registration_date, status, created_at, updated_at)
        VALUES (:id, :certificate_no, :date_of_birth, :place_of_birth,
        :child_first_name, :child_middle_name, :child_last_name, :gender, :father_name, :mother_name,
        :nationality, :registration_office_id, :registration_date, :status, :created_at, :updated_at)`

	for attempt := 0; ; attempt++ {
		err := RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
			if assign {
				seq, err := r.sequences.NextInTx(ctx, tx, models.RecordTypeBirth, record.RegistrationDate.Year())
				if err != nil {
					return err
				}
				record.CertificateNo = models.FormatCertificateNumber(models.RecordTypeBirth, record.RegistrationDate.Year(), seq)
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
		return fmt.Errorf("create birth record: %w", err)
	}
}

// Update modifies an existing birth record.
func (r *BirthRepository) Update(ctx context.Context, record *models.BirthRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE birth_records SET date_of_birth = :date_of_birth, place_of_birth = :place_of_birth,
        child_first_name = :child_first_name, child_middle_name = :child_middle_name, child_last_name = :child_last_name,
        gender = :gender, father_name = :father_name, mother_name = :mother_name, nationality = :nationality,
        registration_office_id = :registration_office_id, registration_date = :registration_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update birth record: %w", err)
	}
	return nil
}

// Delete removes a birth record. Dependent marriage and death rows go with it
// through ON DELETE CASCADE.
func (r *BirthRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM birth_records WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete birth record: %w", err)
	}
	return nil
}
