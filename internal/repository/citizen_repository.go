package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civreg-api/internal/models"
)

// citizenSyncLockKey is the advisory lock key guarding the projection rebuild.
const citizenSyncLockKey = 4227

// ErrRebuildInProgress is returned when another rebuild holds the lock.
var ErrRebuildInProgress = errors.New("citizens rebuild already in progress")

const citizenColumns = `id, birth_record_id, first_name, middle_name, last_name, gender,
        date_of_birth, birth_certificate_no, place_of_birth, birth_registration_date,
        father_name, mother_name, nationality, registration_office_id, region, record_status,
        is_married, marriage_record_id, marriage_certificate_no, marriage_date,
        is_dead, death_record_id, death_certificate_no, death_date, synced_at`

// CitizenRepository owns the citizens projection table and the source queries
// used to rebuild it.
type CitizenRepository struct {
	db *sqlx.DB
}

// NewCitizenRepository constructs a CitizenRepository.
func NewCitizenRepository(db *sqlx.DB) *CitizenRepository {
	return &CitizenRepository{db: db}
}

// ListQualifyingBirths returns every non-rejected birth record joined with its
// office region, the source rows of the projection.
func (r *CitizenRepository) ListQualifyingBirths(ctx context.Context) ([]models.BirthRecordDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id
        WHERE b.status IN ($1, $2)
        ORDER BY b.created_at`, birthSelectColumns)
	var births []models.BirthRecordDetail
	if err := r.db.SelectContext(ctx, &births, query, models.RecordStatusPending, models.RecordStatusRegistered); err != nil {
		return nil, fmt.Errorf("list projection births: %w", err)
	}
	return births, nil
}

// ListActiveMarriages returns non-rejected marriages newest-registration
// first, so the first match per spouse is the latest marriage.
func (r *CitizenRepository) ListActiveMarriages(ctx context.Context) ([]models.MarriageRecord, error) {
	const query = `SELECT id, certificate_no, groom_id, bride_id, date_of_marriage, place_of_marriage,
        witness1_name, witness2_name, registration_office_id, registration_date, status, created_at, updated_at
        FROM marriage_records WHERE status IN ($1, $2)
        ORDER BY registration_date DESC, created_at DESC`
	var marriages []models.MarriageRecord
	if err := r.db.SelectContext(ctx, &marriages, query, models.RecordStatusPending, models.RecordStatusRegistered); err != nil {
		return nil, fmt.Errorf("list projection marriages: %w", err)
	}
	return marriages, nil
}

// ListDeaths returns all death records regardless of status.
func (r *CitizenRepository) ListDeaths(ctx context.Context) ([]models.DeathRecord, error) {
	const query = `SELECT id, certificate_no, deceased_birth_id, informant_birth_id, date_of_death,
        place_of_death, cause_of_death, informant_name, informant_relation,
        registration_office_id, registration_date, status, created_at, updated_at
        FROM death_records ORDER BY created_at`
	var deaths []models.DeathRecord
	if err := r.db.SelectContext(ctx, &deaths, query); err != nil {
		return nil, fmt.Errorf("list projection deaths: %w", err)
	}
	return deaths, nil
}

// ReplaceAll swaps the projection contents inside one transaction guarded by
// a transaction-scoped advisory lock. A concurrent rebuild gets
// ErrRebuildInProgress instead of interleaving with the truncate.
func (r *CitizenRepository) ReplaceAll(ctx context.Context, citizens []models.Citizen) error {
	return RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked bool
		if err := tx.GetContext(ctx, &locked, "SELECT pg_try_advisory_xact_lock($1)", citizenSyncLockKey); err != nil {
			return fmt.Errorf("acquire citizens sync lock: %w", err)
		}
		if !locked {
			return ErrRebuildInProgress
		}

		if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE citizens"); err != nil {
			return fmt.Errorf("truncate citizens: %w", err)
		}

		const insert = `INSERT INTO citizens (id, birth_record_id, first_name, middle_name, last_name, gender,
        date_of_birth, birth_certificate_no, place_of_birth, birth_registration_date,
        father_name, mother_name, nationality, registration_office_id, region, record_status,
        is_married, marriage_record_id, marriage_certificate_no, marriage_date,
        is_dead, death_record_id, death_certificate_no, death_date, synced_at)
        VALUES (:id, :birth_record_id, :first_name, :middle_name, :last_name, :gender,
        :date_of_birth, :birth_certificate_no, :place_of_birth, :birth_registration_date,
        :father_name, :mother_name, :nationality, :registration_office_id, :region, :record_status,
        :is_married, :marriage_record_id, :marriage_certificate_no, :marriage_date,
        :is_dead, :death_record_id, :death_certificate_no, :death_date, :synced_at)`
		for i := range citizens {
			if citizens[i].ID == "" {
				citizens[i].ID = uuid.NewString()
			}
			if _, err := tx.NamedExecContext(ctx, insert, citizens[i]); err != nil {
				return fmt.Errorf("insert citizen row: %w", err)
			}
		}
		return nil
	})
}

// List returns citizens matching the provided filters.
func (r *CitizenRepository) List(ctx context.Context, filter models.CitizenFilter) ([]models.Citizen, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region = $%d", len(args)+1))
		args = append(args, filter.Region)
	}
	if filter.Gender != nil {
		conditions = append(conditions, fmt.Sprintf("gender = $%d", len(args)+1))
		args = append(args, *filter.Gender)
	}
	if filter.IsMarried != nil {
		conditions = append(conditions, fmt.Sprintf("is_married = $%d", len(args)+1))
		args = append(args, *filter.IsMarried)
	}
	if filter.IsDead != nil {
		conditions = append(conditions, fmt.Sprintf("is_dead = $%d", len(args)+1))
		args = append(args, *filter.IsDead)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(birth_certificate_no) LIKE $%d)", n, n, n))
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

	query := fmt.Sprintf("SELECT %s FROM citizens WHERE %s ORDER BY last_name, first_name LIMIT %d OFFSET %d",
		citizenColumns, where, size, offset)

	var citizens []models.Citizen
	if err := r.db.SelectContext(ctx, &citizens, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list citizens: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM citizens WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count citizens: %w", err)
	}
	return citizens, total, nil
}

// Count returns the projection row count.
func (r *CitizenRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM citizens"); err != nil {
		return 0, fmt.Errorf("count citizens: %w", err)
	}
	return total, nil
}
