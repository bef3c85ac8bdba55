package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civreg-api/internal/models"
)

func newStatsMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStatsRepositoryBirthsByRegionWithYear(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"region", "registration_year", "total_births", "male_births", "female_births", "record_status"}).
		AddRow("Dodoma", 2026, 10, 6, 4, models.RecordStatusRegistered)
	mock.ExpectQuery("FROM birth_records b\\s+JOIN registration_offices o .* WHERE EXTRACT\\(YEAR FROM b.registration_date\\) = \\$1").
		WithArgs(2026).
		WillReturnRows(rows)

	stats, err := repo.BirthsByRegion(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Dodoma", stats[0].Region)
	assert.Equal(t, 10, stats[0].TotalBirths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryBirthsByRegionAllYears(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	mock.ExpectQuery("FROM birth_records b\\s+JOIN registration_offices o").
		WillReturnRows(sqlmock.NewRows([]string{"region", "registration_year", "total_births", "male_births", "female_births", "record_status"}))

	stats, err := repo.BirthsByRegion(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryDeathsByAge(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"age_group", "total_deaths", "region", "leading_cause"}).
		AddRow("65+", 3, "Mwanza", "Malaria")
	mock.ExpectQuery("FROM death_records d\\s+JOIN birth_records b").
		WithArgs(models.RecordStatusRegistered, models.RecordStatusPending).
		WillReturnRows(rows)

	stats, err := repo.DeathsByAge(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "65+", stats[0].AgeGroup)
	assert.Equal(t, "Malaria", stats[0].LeadingCause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryAnnualSummary(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"report_year", "births", "deaths", "marriages", "pending_births", "rejected_births", "generated_at"}).
		AddRow(2026, 120, 30, 45, 12, 3, time.Now())
	mock.ExpectQuery("SELECT\\s+\\$1::int AS report_year").
		WithArgs(2026).
		WillReturnRows(rows)

	summary, err := repo.AnnualSummary(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 120, summary.Births)
	assert.Equal(t, 3, summary.RejectedBirths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryStatusCountsByRegion(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(models.RecordStatusPending, 4).
		AddRow(models.RecordStatusRegistered, 9)
	mock.ExpectQuery("FROM marriage_records t\\s+JOIN registration_offices o").
		WithArgs("Dodoma", 2026).
		WillReturnRows(rows)

	counts, err := repo.StatusCountsByRegion(context.Background(), models.RecordTypeMarriage, "Dodoma", 2026)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.RecordStatusRegistered, counts[1].Status)
	assert.Equal(t, 9, counts[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryDashboardSummary(t *testing.T) {
	db, mock, cleanup := newStatsMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"total_births", "total_marriages", "total_deaths", "total_certificates",
		"pending_births", "pending_marriages", "pending_deaths", "total_citizens"}).
		AddRow(100, 40, 25, 80, 10, 4, 2, 95)
	mock.ExpectQuery("AS total_births").WillReturnRows(rows)

	summary, err := repo.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, summary.TotalBirths)
	assert.Equal(t, 95, summary.TotalCitizens)
	assert.NoError(t, mock.ExpectationsWereMet())
}
