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

const marriageSelectColumns = `m.id, m.certificate_no, m.groom_id, m.bride_id,
        m.date_of_marriage, m.place_of_marriage, m.witness1_name, m.witness2_name,
        m.registration_office_id, m.registration_date, m.status, m.created_at, m.updated_at,
        g.child_first_name || ' ' || g.child_last_name AS groom_name,
        br.child_first_name || ' ' || br.child_last_name AS bride_name,
        o.office_name AS office_name, o.region AS office_region`

const marriageBase = `FROM marriage_records m
        JOIN birth_records g ON g.id = m.groom_id
        JOIN birth_records br ON br.id = m.bride_id
        JOIN registration_offices o ON o.id = m.registration_office_id`

// MarriageRepository manages persistence for marriage records.
type MarriageRepository struct {
	db        *sqlx.DB
	sequences *SequenceRepository
}

// NewMarriageRepository constructs a MarriageRepository.
func NewMarriageRepository(db *sqlx.DB, sequences *SequenceRepository) *MarriageRepository {
	return &MarriageRepository{db: db, sequences: sequences}
}

// List returns marriage records matching the provided filters.
func (r *MarriageRepository) List(ctx context.Context, filter models.MarriageFilter) ([]models.MarriageRecordDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.OfficeID != "" {
		conditions = append(conditions, fmt.Sprintf("m.registration_office_id = $%d", len(args)+1))
		args = append(args, filter.OfficeID)
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("o.region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("m.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM m.registration_date) = $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY m.created_at DESC LIMIT %d OFFSET %d",
		marriageSelectColumns, marriageBase, where, size, offset)

	var records []models.MarriageRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list marriage records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", marriageBase, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count marriage records: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a marriage record with spouse names and office by ID.
func (r *MarriageRepository) FindByID(ctx context.Context, id string) (*models.MarriageRecordDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.id = $1", marriageSelectColumns, marriageBase)
	var detail models.MarriageRecordDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListBySpouse returns every marriage where the given birth record appears as
// groom or bride, newest registration first.
func (r *MarriageRepository) ListBySpouse(ctx context.Context, birthID string) ([]models.MarriageRecordDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE m.groom_id = $1 OR m.bride_id = $1
        ORDER BY m.registration_date DESC, m.created_at DESC`, marriageSelectColumns, marriageBase)
	var records []models.MarriageRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, birthID); err != nil {
		return nil, fmt.Errorf("list marriages by spouse: %w", err)
	}
	return records, nil
}

// Create inserts a new marriage record, allocating a certificate number in the
// same transaction when absent.
func (r *MarriageRepository) Create(ctx context.Context, record *models.MarriageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assign := record.CertificateNo == ""
	const query = `INSERT INTO marriage_records (id, certificate_no, groom_id, bride_id,
        date_of_marriage, place_of_marriage, witness1_name, witness2_name,
        registration_office_id, registration_date, status, created_at, updated_at)
        VALUES (:id, :certificate_no, :groom_id, :bride_id,
        :date_of_marriage, :place_of_marriage, :witness1_name, :witness2_name,
        :registration_office_id, :registration_date, :status, :created_at, :updated_at)`

	for attempt := 0; ; attempt++ {
		err := RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
			if assign {
				seq, err := r.sequences.NextInTx(ctx, tx, models.RecordTypeMarriage, record.RegistrationDate.Year())
				if err != nil {
					return err
				}
				record.CertificateNo = models.FormatCertificateNumber(models.RecordTypeMarriage, record.RegistrationDate.Year(), seq)
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
		return fmt.Errorf("create marriage record: %w", err)
	}
}

// Update modifies an existing marriage record.
func (r *MarriageRepository) Update(ctx context.Context, record *models.MarriageRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE marriage_records SET groom_id = :groom_id, bride_id = :bride_id,
        date_of_marriage = :date_of_marriage, place_of_marriage = :place_of_marriage,
        witness1_name = :witness1_name, witness2_name = :witness2_name,
        registration_office_id = :registration_office_id, registration_date = :registration_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update marriage record: %w", err)
	}
	return nil
}

// Delete removes a marriage record.
func (r *MarriageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM marriage_records WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete marriage record: %w", err)
	}
	return nil
}
