package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civreg-api/internal/models"
)

// ageGroupExpr buckets the deceased's current age the same way the legacy
// government reports did. The band labels are part of the report contract.
const ageGroupExpr = `CASE
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 1 THEN 'Under 1'
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 5 THEN '1-4'
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 18 THEN '5-17'
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 35 THEN '18-34'
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 50 THEN '35-49'
            WHEN DATE_PART('year', AGE(CURRENT_DATE, b.date_of_birth)) < 65 THEN '50-64'
            ELSE '65+'
        END`

// StatsRepository runs the read-only aggregation queries behind the
// statistics and XML report endpoints.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// BirthsByRegion groups birth counts per region, registration year and status.
// Year 0 means all years.
func (r *StatsRepository) BirthsByRegion(ctx context.Context, year int) ([]models.BirthRegionStat, error) {
	query := `SELECT
            o.region,
            EXTRACT(YEAR FROM b.registration_date)::int AS registration_year,
            COUNT(*) AS total_births,
            SUM(CASE WHEN b.gender = 'M' THEN 1 ELSE 0 END) AS male_births,
            SUM(CASE WHEN b.gender = 'F' THEN 1 ELSE 0 END) AS female_births,
            b.status AS record_status
        FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id`
	args := []interface{}{}
	if year != 0 {
		query += " WHERE EXTRACT(YEAR FROM b.registration_date) = $1"
		args = append(args, year)
	}
	query += `
        GROUP BY o.region, EXTRACT(YEAR FROM b.registration_date), b.status
        ORDER BY o.region, registration_year DESC, record_status`

	var stats []models.BirthRegionStat
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("births by region: %w", err)
	}
	return stats, nil
}

// DeathsByAge groups non-rejected death counts per age band, region and cause.
func (r *StatsRepository) DeathsByAge(ctx context.Context) ([]models.DeathAgeStat, error) {
	query := fmt.Sprintf(`SELECT
            %s AS age_group,
            COUNT(*) AS total_deaths,
            o.region,
            d.cause_of_death AS leading_cause
        FROM death_records d
        JOIN birth_records b ON b.id = d.deceased_birth_id
        JOIN registration_offices o ON o.id = b.registration_office_id
        WHERE d.status IN ($1, $2)
        GROUP BY %s, o.region, d.cause_of_death
        ORDER BY age_group, total_deaths DESC`, ageGroupExpr, ageGroupExpr)

	var stats []models.DeathAgeStat
	if err := r.db.SelectContext(ctx, &stats, query, models.RecordStatusRegistered, models.RecordStatusPending); err != nil {
		return nil, fmt.Errorf("deaths by age: %w", err)
	}
	return stats, nil
}

// MarriagesByRegion groups marriage counts per region, marriage year and
// status. Year 0 means all years.
func (r *StatsRepository) MarriagesByRegion(ctx context.Context, year int) ([]models.MarriageRegionStat, error) {
	query := `SELECT
            o.region,
            EXTRACT(YEAR FROM m.date_of_marriage)::int AS marriage_year,
            COUNT(*) AS total_marriages,
            m.status AS record_status,
            TO_CHAR(m.date_of_marriage, 'MONTH') AS month_registered
        FROM marriage_records m
        JOIN registration_offices o ON o.id = m.registration_office_id`
	args := []interface{}{}
	if year != 0 {
		query += " WHERE EXTRACT(YEAR FROM m.date_of_marriage) = $1"
		args = append(args, year)
	}
	query += `
        GROUP BY o.region, EXTRACT(YEAR FROM m.date_of_marriage), m.status, TO_CHAR(m.date_of_marriage, 'MONTH')
        ORDER BY o.region, marriage_year DESC, month_registered`

	var stats []models.MarriageRegionStat
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("marriages by region: %w", err)
	}
	return stats, nil
}

// Demographics summarizes the citizens projection per region. The projection
// carries the region copied at build time, so no office join is needed here.
func (r *StatsRepository) Demographics(ctx context.Context, region string) ([]models.RegionDemographics, error) {
	query := `SELECT
            region,
            COUNT(id) AS total_citizens,
            SUM(CASE WHEN gender = 'M' THEN 1 ELSE 0 END) AS male_count,
            SUM(CASE WHEN gender = 'F' THEN 1 ELSE 0 END) AS female_count,
            COALESCE(ROUND(AVG(DATE_PART('year', AGE(CURRENT_DATE, date_of_birth)))::numeric, 2), 0) AS average_age,
            SUM(CASE WHEN is_married THEN 1 ELSE 0 END) AS married_count,
            SUM(CASE WHEN is_dead THEN 1 ELSE 0 END) AS deceased_count
        FROM citizens`
	args := []interface{}{}
	if region != "" {
		query += " WHERE region = $1"
		args = append(args, region)
	}
	query += " GROUP BY region ORDER BY region"

	var stats []models.RegionDemographics
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("population demographics: %w", err)
	}
	return stats, nil
}

// Completeness reports per-region birth registration progress, most complete
// regions first.
func (r *StatsRepository) Completeness(ctx context.Context) ([]models.RegistrationCompleteness, error) {
	const query = `SELECT
            o.region,
            COUNT(b.id) AS total_registrations,
            SUM(CASE WHEN b.status = 'registered' THEN 1 ELSE 0 END) AS completed,
            SUM(CASE WHEN b.status = 'pending' THEN 1 ELSE 0 END) AS pending,
            SUM(CASE WHEN b.status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
            ROUND(SUM(CASE WHEN b.status = 'registered' THEN 1 ELSE 0 END)::numeric / COUNT(b.id) * 100, 2) AS completion_percentage
        FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id
        GROUP BY o.region
        ORDER BY completion_percentage DESC`

	var stats []models.RegistrationCompleteness
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("registration completeness: %w", err)
	}
	return stats, nil
}

// AnnualSummary returns the one-row yearly totals used by the national
// submission report.
func (r *StatsRepository) AnnualSummary(ctx context.Context, year int) (*models.AnnualVitalSummary, error) {
	const query = `SELECT
            $1::int AS report_year,
            (SELECT COUNT(*) FROM birth_records WHERE EXTRACT(YEAR FROM registration_date) = $1 AND status IN ('registered', 'pending')) AS births,
            (SELECT COUNT(*) FROM death_records WHERE EXTRACT(YEAR FROM registration_date) = $1 AND status IN ('registered', 'pending')) AS deaths,
            (SELECT COUNT(*) FROM marriage_records WHERE EXTRACT(YEAR FROM date_of_marriage) = $1 AND status IN ('registered', 'pending')) AS marriages,
            (SELECT COUNT(*) FROM birth_records WHERE EXTRACT(YEAR FROM registration_date) = $1 AND status = 'pending') AS pending_births,
            (SELECT COUNT(*) FROM birth_records WHERE EXTRACT(YEAR FROM registration_date) = $1 AND status = 'rejected') AS rejected_births,
            NOW() AS generated_at`

	var summary models.AnnualVitalSummary
	if err := r.db.GetContext(ctx, &summary, query, year); err != nil {
		return nil, fmt.Errorf("annual vital summary: %w", err)
	}
	return &summary, nil
}

// StatusCountsByRegion groups one record type's rows by status for the given
// region and registration year.
func (r *StatsRepository) StatusCountsByRegion(ctx context.Context, recordType models.RecordType, region string, year int) ([]models.StatusCount, error) {
	query := fmt.Sprintf(`SELECT t.status, COUNT(*) AS count
        FROM %s t
        JOIN registration_offices o ON o.id = t.registration_office_id
        WHERE o.region = $1 AND EXTRACT(YEAR FROM t.registration_date) = $2
        GROUP BY t.status
        ORDER BY t.status`, recordType.Table())

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, region, year); err != nil {
		return nil, fmt.Errorf("status counts for %s: %w", recordType, err)
	}
	return counts, nil
}

// MonthlyBirthCounts returns per-month birth registration counts for one
// region and year, months ascending.
func (r *StatsRepository) MonthlyBirthCounts(ctx context.Context, region string, year int) ([]models.MonthCount, error) {
	const query = `SELECT EXTRACT(MONTH FROM b.registration_date)::int AS month, COUNT(*) AS count
        FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id
        WHERE o.region = $1 AND EXTRACT(YEAR FROM b.registration_date) = $2
        GROUP BY EXTRACT(MONTH FROM b.registration_date)
        ORDER BY month`

	var counts []models.MonthCount
	if err := r.db.SelectContext(ctx, &counts, query, region, year); err != nil {
		return nil, fmt.Errorf("monthly birth counts: %w", err)
	}
	return counts, nil
}

// MonthlyRecords loads all record details registered in one calendar month,
// feeding the monthly XML report.
func (r *StatsRepository) MonthlyRecords(ctx context.Context, year, month int) ([]models.BirthRecordDetail, []models.MarriageRecordDetail, []models.DeathRecordDetail, error) {
	birthQuery := fmt.Sprintf(`SELECT %s FROM birth_records b
        JOIN registration_offices o ON o.id = b.registration_office_id
        WHERE EXTRACT(YEAR FROM b.registration_date) = $1 AND EXTRACT(MONTH FROM b.registration_date) = $2
        ORDER BY b.registration_date, b.created_at`, birthSelectColumns)
	var births []models.BirthRecordDetail
	if err := r.db.SelectContext(ctx, &births, birthQuery, year, month); err != nil {
		return nil, nil, nil, fmt.Errorf("monthly births: %w", err)
	}

	marriageQuery := fmt.Sprintf(`SELECT %s %s
        WHERE EXTRACT(YEAR FROM m.registration_date) = $1 AND EXTRACT(MONTH FROM m.registration_date) = $2
        ORDER BY m.registration_date, m.created_at`, marriageSelectColumns, marriageBase)
	var marriages []models.MarriageRecordDetail
	if err := r.db.SelectContext(ctx, &marriages, marriageQuery, year, month); err != nil {
		return nil, nil, nil, fmt.Errorf("monthly marriages: %w", err)
	}

	deathQuery := fmt.Sprintf(`SELECT %s %s
        WHERE EXTRACT(YEAR FROM d.registration_date) = $1 AND EXTRACT(MONTH FROM d.registration_date) = $2
        ORDER BY d.registration_date, d.created_at`, deathSelectColumns, deathBase)
	var deaths []models.DeathRecordDetail
	if err := r.db.SelectContext(ctx, &deaths, deathQuery, year, month); err != nil {
		return nil, nil, nil, fmt.Errorf("monthly deaths: %w", err)
	}

	return births, marriages, deaths, nil
}

// HasRecordsForYear reports whether any record of any type was registered in
// the given year.
func (r *StatsRepository) HasRecordsForYear(ctx context.Context, year int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM birth_records WHERE EXTRACT(YEAR FROM registration_date) = $1)
        OR EXISTS (SELECT 1 FROM marriage_records WHERE EXTRACT(YEAR FROM registration_date) = $1)
        OR EXISTS (SELECT 1 FROM death_records WHERE EXTRACT(YEAR FROM registration_date) = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, year); err != nil {
		return false, fmt.Errorf("check records for year: %w", err)
	}
	return exists, nil
}

// DashboardSummary returns the landing page counters.
func (r *StatsRepository) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	const query = `SELECT
            (SELECT COUNT(*) FROM birth_records) AS total_births,
            (SELECT COUNT(*) FROM marriage_records) AS total_marriages,
            (SELECT COUNT(*) FROM death_records) AS total_deaths,
            (SELECT COUNT(*) FROM certificates) AS total_certificates,
            (SELECT COUNT(*) FROM birth_records WHERE status = 'pending') AS pending_births,
            (SELECT COUNT(*) FROM marriage_records WHERE status = 'pending') AS pending_marriages,
            (SELECT COUNT(*) FROM death_records WHERE status = 'pending') AS pending_deaths,
            (SELECT COUNT(*) FROM citizens) AS total_citizens`

	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &summary, nil
}
