package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

const importDateFormat = "2006-01-02"

type birthCreator interface {
	Create(ctx context.Context, actor policy.Actor, req CreateBirthRequest) (*models.BirthRecord, error)
}

type marriageCreator interface {
	Create(ctx context.Context, actor policy.Actor, req CreateMarriageRequest) (*models.MarriageRecord, error)
}

type deathCreator interface {
	Create(ctx context.Context, actor policy.Actor, req CreateDeathRequest) (*models.DeathRecord, error)
}

// ImportRequest describes one import run. CSV files carry a header row whose
// column names are the snake_case field names of the create payloads; JSON
// files carry an array of create payloads with RFC 3339 timestamps.
type ImportRequest struct {
	Type         ExportType   `json:"type"`
	Format       ExportFormat `json:"format"`
	ValidateOnly bool         `json:"validate_only"`
	Atomic       bool         `json:"atomic"`
}

// ImportRowError ties a failure to the row that caused it. Row numbers count
// the header for CSV input, so the first data row is row 2.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarises an import run.
type ImportReport struct {
	Total        int              `json:"total"`
	Created      int              `json:"created"`
	Failed       int              `json:"failed"`
	ValidateOnly bool             `json:"validate_only"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

// ImportService ingests record batches from CSV or JSON files. Every row is
// created through the regular record services, so uniqueness checks, office
// validation, and audit entries fire exactly as they do for single records.
//
// Atomic mode rejects the whole batch when any row fails validation. Row
// creation itself is not transactional: a database failure mid-batch leaves
// earlier rows committed and is reported against the row that failed.
type ImportService struct {
	births    birthCreator
	marriages marriageCreator
	deaths    deathCreator
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewImportService(births birthCreator, marriages marriageCreator, deaths deathCreator, validate *validator.Validate, logger *zap.Logger) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		births:    births,
		marriages: marriages,
		deaths:    deaths,
		validate:  validate,
		logger:    logger,
	}
}

// Run parses, validates, and creates the records in r according to req.
// Validation failures never abort the run outright: they are collected into
// the report so callers can surface every bad row at once.
func (s *ImportService) Run(ctx context.Context, actor policy.Actor, req ImportRequest, r io.Reader) (*ImportReport, error) {
	if !policy.CanCreate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if req.Format != ExportFormatCSV && req.Format != ExportFormatJSON {
		return nil, appErrors.Fielded(appErrors.ErrValidation, "format", "format must be csv or json")
	}

	var (
		report *ImportReport
		err    error
	)
	switch req.Type {
	case ExportTypeBirth:
		report, err = runImport(ctx, s, req, r, parseBirthRow, s.births.Create, actor)
	case ExportTypeMarriage:
		report, err = runImport(ctx, s, req, r, parseMarriageRow, s.marriages.Create, actor)
	case ExportTypeDeath:
		report, err = runImport(ctx, s, req, r, parseDeathRow, s.deaths.Create, actor)
	default:
		return nil, appErrors.Fielded(appErrors.ErrValidation, "type", "type must be birth, marriage, or death")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("import finished",
		zap.String("type", string(req.Type)),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("failed", report.Failed),
		zap.Bool("validate_only", req.ValidateOnly))
	return report, nil
}

type importRow[T any] struct {
	num int
	req T
}

// runImport drives the shared parse, validate, create pipeline for one
// record type.
func runImport[T any, R any](
	ctx context.Context,
	s *ImportService,
	req ImportRequest,
	r io.Reader,
	parse func(rec map[string]string, num int) (T, error),
	create func(ctx context.Context, actor policy.Actor, payload T) (R, error),
	actor policy.Actor,
) (*ImportReport, error) {
	rows, parseErrs, err := decodeRows[T](req.Format, r, parse)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		Total:        len(rows) + len(parseErrs),
		ValidateOnly: req.ValidateOnly,
		Errors:       parseErrs,
	}

	valid := rows[:0]
	for _, row := range rows {
		if err := s.validate.Struct(row.req); err != nil {
			report.Errors = append(report.Errors, ImportRowError{Row: row.num, Message: validationMessage(err)})
			continue
		}
		valid = append(valid, row)
	}
	report.Failed = len(report.Errors)

	if req.ValidateOnly {
		return report, nil
	}
	if req.Atomic && report.Failed > 0 {
		return report, nil
	}

	for _, row := range valid {
		if _, err := create(ctx, actor, row.req); err != nil {
			report.Errors = append(report.Errors, ImportRowError{Row: row.num, Message: appErrors.FromError(err).Message})
			report.Failed++
			if req.Atomic {
				break
			}
			continue
		}
		report.Created++
	}
	return report, nil
}

// decodeRows reads the whole input into typed rows. Malformed rows become
// ImportRowErrors; only unreadable input fails the run.
func decodeRows[T any](format ExportFormat, r io.Reader, parse func(rec map[string]string, num int) (T, error)) ([]importRow[T], []ImportRowError, error) {
	if format == ExportFormatJSON {
		var payloads []T
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payloads); err != nil {
			return nil, nil, appErrors.Fielded(appErrors.ErrValidation, "file", fmt.Sprintf("invalid JSON: %v", err))
		}
		rows := make([]importRow[T], 0, len(payloads))
		for i, p := range payloads {
			rows = append(rows, importRow[T]{num: i + 1, req: p})
		}
		return rows, nil, nil
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, nil, appErrors.Fielded(appErrors.ErrValidation, "file", "missing CSV header row")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var (
		rows     []importRow[T]
		rowErrs  []ImportRowError
		rowCount = 1
	)
	for {
		record, err := reader.Read()
		rowCount++
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, ImportRowError{Row: rowCount, Message: fmt.Sprintf("malformed CSV row: %v", err)})
			continue
		}
		fields := make(map[string]string, len(index))
		for name, i := range index {
			if i < len(record) {
				fields[name] = strings.TrimSpace(record[i])
			}
		}
		req, err := parse(fields, rowCount)
		if err != nil {
			rowErrs = append(rowErrs, ImportRowError{Row: rowCount, Message: err.Error()})
			continue
		}
		rows = append(rows, importRow[T]{num: rowCount, req: req})
	}
	return rows, rowErrs, nil
}

func parseBirthRow(rec map[string]string, _ int) (CreateBirthRequest, error) {
	req := CreateBirthRequest{
		CertificateNo:   rec["certificate_no"],
		PlaceOfBirth:    rec["place_of_birth"],
		ChildFirstName:  rec["child_first_name"],
		ChildMiddleName: rec["child_middle_name"],
		ChildLastName:   rec["child_last_name"],
		Gender:          rec["gender"],
		FatherName:      rec["father_name"],
		MotherName:      rec["mother_name"],
		Nationality:     rec["nationality"],
		OfficeID:        rec["registration_office_id"],
		Status:          rec["status"],
	}
	var err error
	if req.DateOfBirth, err = parseImportDate(rec, "date_of_birth"); err != nil {
		return req, err
	}
	if req.RegistrationDate, err = parseImportDate(rec, "registration_date"); err != nil {
		return req, err
	}
	return req, nil
}

func parseMarriageRow(rec map[string]string, _ int) (CreateMarriageRequest, error) {
	req := CreateMarriageRequest{
		CertificateNo:   rec["certificate_no"],
		GroomID:         rec["groom_id"],
		BrideID:         rec["bride_id"],
		PlaceOfMarriage: rec["place_of_marriage"],
		Witness1Name:    rec["witness1_name"],
		Witness2Name:    rec["witness2_name"],
		OfficeID:        rec["registration_office_id"],
		Status:          rec["status"],
	}
	var err error
	if req.DateOfMarriage, err = parseImportDate(rec, "date_of_marriage"); err != nil {
		return req, err
	}
	if req.RegistrationDate, err = parseImportDate(rec, "registration_date"); err != nil {
		return req, err
	}
	return req, nil
}

func parseDeathRow(rec map[string]string, _ int) (CreateDeathRequest, error) {
	req := CreateDeathRequest{
		CertificateNo:     rec["certificate_no"],
		DeceasedBirthID:   rec["deceased_birth_id"],
		PlaceOfDeath:      rec["place_of_death"],
		CauseOfDeath:      rec["cause_of_death"],
		InformantName:     rec["informant_name"],
		InformantRelation: rec["informant_relation"],
		OfficeID:          rec["registration_office_id"],
		Status:            rec["status"],
	}
	if informant := rec["informant_birth_id"]; informant != "" {
		req.InformantBirthID = &informant
	}
	var err error
	if req.DateOfDeath, err = parseImportDate(rec, "date_of_death"); err != nil {
		return req, err
	}
	if req.RegistrationDate, err = parseImportDate(rec, "registration_date"); err != nil {
		return req, err
	}
	return req, nil
}

// validationMessage flattens validator errors into a single row message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

func parseImportDate(rec map[string]string, field string) (time.Time, error) {
	raw := rec[field]
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(importDateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q, expected YYYY-MM-DD", field, raw)
	}
	return t, nil
}
