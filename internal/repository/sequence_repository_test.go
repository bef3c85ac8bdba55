package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civreg-api/internal/models"
)

func newSequenceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSequenceRepositoryNextInTxBumpsExistingCounter(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE certificate_sequences SET last_seq = last_seq \\+ 1").
		WithArgs(models.RecordTypeBirth, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(42))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	seq, err := repo.NextInTx(context.Background(), tx, models.RecordTypeBirth, 2026)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 42, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryNextInTxSeedsFromLastRecord(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE certificate_sequences SET last_seq = last_seq \\+ 1").
		WithArgs(models.RecordTypeBirth, 2026).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT certificate_no FROM birth_records").
		WithArgs(2026, models.RecordStatusRejected).
		WillReturnRows(sqlmock.NewRows([]string{"certificate_no"}).AddRow("BIR-2026-00017"))
	mock.ExpectQuery("INSERT INTO certificate_sequences").
		WithArgs(models.RecordTypeBirth, 2026, 18).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(18))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	seq, err := repo.NextInTx(context.Background(), tx, models.RecordTypeBirth, 2026)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 18, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryNextInTxRestartsOnUnparseableNumber(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE certificate_sequences SET last_seq = last_seq \\+ 1").
		WithArgs(models.RecordTypeDeath, 2025).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT certificate_no FROM death_records").
		WithArgs(2025, models.RecordStatusRejected).
		WillReturnRows(sqlmock.NewRows([]string{"certificate_no"}).AddRow("GARBAGE"))
	mock.ExpectQuery("INSERT INTO certificate_sequences").
		WithArgs(models.RecordTypeDeath, 2025, 1).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	seq, err := repo.NextInTx(context.Background(), tx, models.RecordTypeDeath, 2025)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryNextInTxStartsAtOneWhenEmpty(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE certificate_sequences SET last_seq = last_seq \\+ 1").
		WithArgs(models.RecordTypeMarriage, 2026).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT certificate_no FROM marriage_records").
		WithArgs(2026, models.RecordStatusRejected).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO certificate_sequences").
		WithArgs(models.RecordTypeMarriage, 2026, 1).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	seq, err := repo.NextInTx(context.Background(), tx, models.RecordTypeMarriage, 2026)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
