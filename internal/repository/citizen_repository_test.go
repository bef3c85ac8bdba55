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

func newCitizenMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCitizenRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newCitizenMock(t)
	defer cleanup()
	repo := NewCitizenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT pg_try_advisory_xact_lock").
		WithArgs(citizenSyncLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(true))
	mock.ExpectExec("TRUNCATE TABLE citizens").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO citizens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	citizens := []models.Citizen{{
		BirthRecordID: "b1",
		FirstName:     "Asha",
		LastName:      "Mkapa",
		Gender:        models.GenderFemale,
		DateOfBirth:   time.Date(2000, 5, 1, 0, 0, 0, 0, time.UTC),
		Region:        "Dodoma",
		SyncedAt:      time.Now().UTC(),
	}}
	require.NoError(t, repo.ReplaceAll(context.Background(), citizens))
	assert.NotEmpty(t, citizens[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCitizenRepositoryReplaceAllLockedElsewhere(t *testing.T) {
	db, mock, cleanup := newCitizenMock(t)
	defer cleanup()
	repo := NewCitizenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT pg_try_advisory_xact_lock").
		WithArgs(citizenSyncLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRebuildInProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCitizenRepositoryList(t *testing.T) {
	db, mock, cleanup := newCitizenMock(t)
	defer cleanup()
	repo := NewCitizenRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "birth_record_id", "first_name", "middle_name", "last_name", "gender",
		"date_of_birth", "birth_certificate_no", "place_of_birth", "birth_registration_date",
		"father_name", "mother_name", "nationality", "registration_office_id", "region", "record_status",
		"is_married", "marriage_record_id", "marriage_certificate_no", "marriage_date",
		"is_dead", "death_record_id", "death_certificate_no", "death_date", "synced_at",
	}).AddRow(
		"c1", "b1", "Asha", "", "Mkapa", "F",
		time.Now(), "BIR-2026-00001", "Dodoma", time.Now(),
		"John Mkapa", "Neema Mkapa", "Tanzanian", "o1", "Dodoma", models.RecordStatusRegistered,
		false, nil, nil, nil,
		false, nil, nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, birth_record_id, .* FROM citizens WHERE 1=1 AND region = \\$1").
		WithArgs("Dodoma").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM citizens WHERE 1=1 AND region = \\$1").
		WithArgs("Dodoma").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	citizens, total, err := repo.List(context.Background(), models.CitizenFilter{Region: "Dodoma"})
	require.NoError(t, err)
	assert.Len(t, citizens, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
