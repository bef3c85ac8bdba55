package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockBirthCreator struct {
	created  []CreateBirthRequest
	failOn   string
	failWith error
}

func (m *mockBirthCreator) Create(ctx context.Context, actor policy.Actor, req CreateBirthRequest) (*models.BirthRecord, error) {
	if m.failOn != "" && req.ChildFirstName == m.failOn {
		return nil, m.failWith
	}
	m.created = append(m.created, req)
	return &models.BirthRecord{ID: "birth-new"}, nil
}

type mockMarriageCreator struct{ created int }

func (m *mockMarriageCreator) Create(ctx context.Context, actor policy.Actor, req CreateMarriageRequest) (*models.MarriageRecord, error) {
	m.created++
	return &models.MarriageRecord{ID: "marriage-new"}, nil
}

type mockDeathCreator struct{ created int }

func (m *mockDeathCreator) Create(ctx context.Context, actor policy.Actor, req CreateDeathRequest) (*models.DeathRecord, error) {
	m.created++
	return &models.DeathRecord{ID: "death-new"}, nil
}

const birthCSVHeader = "certificate_no,date_of_birth,place_of_birth,child_first_name,child_middle_name,child_last_name,gender,father_name,mother_name,nationality,registration_office_id,registration_date,status"

func birthCSV(rows ...string) string {
	return birthCSVHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func newImportService(births *mockBirthCreator, marriages *mockMarriageCreator, deaths *mockDeathCreator) *ImportService {
	return NewImportService(births, marriages, deaths, validator.New(), zap.NewNop())
}

func TestImportServiceBirthCSV(t *testing.T) {
	births := &mockBirthCreator{}
	svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

	input := birthCSV(
		",2020-03-14,Central Hospital,Amina,,Diallo,F,Moussa,Fatou,GN,office-1,2020-03-20,",
		"B-0002,2019-07-01,Eastern Clinic,Omar,,Barry,M,,,GN,office-1,2019-07-05,",
	)
	report, err := svc.Run(context.Background(), registrarActor("office-1", "north"), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV}, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Failed)
	require.Len(t, births.created, 2)
	assert.Equal(t, "Amina", births.created[0].ChildFirstName)
	assert.Equal(t, "B-0002", births.created[1].CertificateNo)
}

func TestImportServiceBadRowsAreCollected(t *testing.T) {
	births := &mockBirthCreator{}
	svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

	input := birthCSV(
		",2020-03-14,Central Hospital,Amina,,Diallo,F,,,GN,office-1,2020-03-20,",
		",14/03/2020,Central Hospital,Bad,,Date,F,,,GN,office-1,2020-03-20,",
		",2020-03-14,Central Hospital,NoGender,,Row,,,,GN,office-1,2020-03-20,",
	)
	report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV}, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Errors, 2)

	// Row numbers count the header, so data rows start at 2.
	assert.Equal(t, 3, report.Errors[0].Row)
	assert.Contains(t, report.Errors[0].Message, "expected YYYY-MM-DD")
	assert.Equal(t, 4, report.Errors[1].Row)
	assert.Contains(t, report.Errors[1].Message, "Gender")
}

func TestImportServiceValidateOnly(t *testing.T) {
	births := &mockBirthCreator{}
	svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

	input := birthCSV(",2020-03-14,Central Hospital,Amina,,Diallo,F,,,GN,office-1,2020-03-20,")
	report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV, ValidateOnly: true}, strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, report.ValidateOnly)
	assert.Zero(t, report.Created)
	assert.Empty(t, births.created)
}

func TestImportServiceAtomic(t *testing.T) {
	t.Run("validation failure rejects the batch", func(t *testing.T) {
		births := &mockBirthCreator{}
		svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

		input := birthCSV(
			",2020-03-14,Central Hospital,Good,,Row,F,,,GN,office-1,2020-03-20,",
			",2020-03-14,Central Hospital,NoGender,,Row,,,,GN,office-1,2020-03-20,",
		)
		report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV, Atomic: true}, strings.NewReader(input))
		require.NoError(t, err)
		assert.Zero(t, report.Created)
		assert.Equal(t, 1, report.Failed)
		assert.Empty(t, births.created)
	})

	t.Run("create failure stops the run", func(t *testing.T) {
		births := &mockBirthCreator{failOn: "Second", failWith: appErrors.Fielded(appErrors.ErrConflict, "certificate_no", "certificate number already in use")}
		svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

		input := birthCSV(
			",2020-03-14,Central Hospital,First,,Row,F,,,GN,office-1,2020-03-20,",
			"B-DUP,2020-03-14,Central Hospital,Second,,Row,F,,,GN,office-1,2020-03-20,",
			",2020-03-14,Central Hospital,Third,,Row,F,,,GN,office-1,2020-03-20,",
		)
		report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV, Atomic: true}, strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Created)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0].Message, "certificate number already in use")
	})
}

func TestImportServiceJSON(t *testing.T) {
	deaths := &mockDeathCreator{}
	svc := newImportService(&mockBirthCreator{}, &mockMarriageCreator{}, deaths)

	input := `[{
		"deceased_birth_id": "deceased-1",
		"date_of_death": "2024-01-05T00:00:00Z",
		"place_of_death": "Regional Hospital",
		"registration_office_id": "office-1",
		"registration_date": "2024-01-08T00:00:00Z"
	}]`
	report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeDeath, Format: ExportFormatJSON}, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, deaths.created)
}

func TestImportServiceJSONUnknownField(t *testing.T) {
	svc := newImportService(&mockBirthCreator{}, &mockMarriageCreator{}, &mockDeathCreator{})

	input := `[{"child_first_name": "Amina", "not_a_field": 1}]`
	_, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatJSON}, strings.NewReader(input))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "file", appErr.Field)
}

func TestImportServiceGates(t *testing.T) {
	svc := newImportService(&mockBirthCreator{}, &mockMarriageCreator{}, &mockDeathCreator{})

	t.Run("clerk may not import", func(t *testing.T) {
		_, err := svc.Run(context.Background(), clerkActor("office-1", "north"), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV}, strings.NewReader(""))
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: "xml"}, strings.NewReader(""))
		appErr := appErrors.FromError(err)
		assert.Equal(t, "format", appErr.Field)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: "adoption", Format: ExportFormatCSV}, strings.NewReader(""))
		appErr := appErrors.FromError(err)
		assert.Equal(t, "type", appErr.Field)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV}, strings.NewReader(""))
		appErr := appErrors.FromError(err)
		assert.Equal(t, "file", appErr.Field)
	})
}

func TestImportServiceErrorsAreNotWrappedTwice(t *testing.T) {
	births := &mockBirthCreator{failOn: "Dup", failWith: errors.New("raw failure")}
	svc := newImportService(births, &mockMarriageCreator{}, &mockDeathCreator{})

	input := birthCSV(",2020-03-14,Central Hospital,Dup,,Row,F,,,GN,office-1,2020-03-20,")
	report, err := svc.Run(context.Background(), sysadminActor(), ImportRequest{Type: ExportTypeBirth, Format: ExportFormatCSV}, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, appErrors.ErrInternal.Message, report.Errors[0].Message)
}
