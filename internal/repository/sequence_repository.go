package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
)

// SequenceRepository allocates certificate number sequences from the
// certificate_sequences counter table, one counter per (record type, year).
// Allocation happens inside the caller's transaction so the counter bump and
// the record insert commit or roll back together.
type SequenceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSequenceRepository constructs a SequenceRepository.
func NewSequenceRepository(db *sqlx.DB, logger *zap.Logger) *SequenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceRepository{db: db, logger: logger}
}

// NextInTx returns the next sequence for the scope, creating and seeding the
// counter from existing records when the scope has no counter row yet.
func (r *SequenceRepository) NextInTx(ctx context.Context, tx *sqlx.Tx, recordType models.RecordType, year int) (int, error) {
	const bump = `UPDATE certificate_sequences SET last_seq = last_seq + 1
WHERE record_type = $1 AND year = $2 RETURNING last_seq`
	var seq int
	err := tx.GetContext(ctx, &seq, bump, recordType, year)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("bump certificate sequence: %w", err)
	}

	seed, err := r.seedValue(ctx, tx, recordType, year)
	if err != nil {
		return 0, err
	}

	// A concurrent create may have inserted the counter row between the bump
	// and here, so the insert falls back to another bump on conflict.
	const insert = `INSERT INTO certificate_sequences (record_type, year, last_seq)
VALUES ($1, $2, $3)
ON CONFLICT (record_type, year) DO UPDATE SET last_seq = certificate_sequences.last_seq + 1
RETURNING last_seq`
	if err := tx.GetContext(ctx, &seq, insert, recordType, year, seed); err != nil {
		return 0, fmt.Errorf("seed certificate sequence: %w", err)
	}
	return seq, nil
}

// seedValue derives the first sequence for a scope from the most recently
// created non-rejected record of that type and year.
func (r *SequenceRepository) seedValue(ctx context.Context, tx *sqlx.Tx, recordType models.RecordType, year int) (int, error) {
	table := recordType.Table()
	if table == "" {
		return 0, fmt.Errorf("unknown record type %q", recordType)
	}
	query := fmt.Sprintf(`SELECT certificate_no FROM %s
WHERE EXTRACT(YEAR FROM registration_date) = $1 AND status <> $2
ORDER BY created_at DESC LIMIT 1`, table)

	var lastNo string
	err := tx.GetContext(ctx, &lastNo, query, year, models.RecordStatusRejected)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load last certificate number: %w", err)
	}

	lastSeq, perr := models.ParseCertificateSequence(lastNo)
	if perr != nil {
		r.logger.Warn("data integrity: unparseable certificate number, restarting sequence",
			zap.String("record_type", string(recordType)),
			zap.Int("year", year),
			zap.String("certificate_no", lastNo),
			zap.Error(perr))
		return 1, nil
	}
	return lastSeq + 1, nil
}
