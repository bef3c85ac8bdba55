package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockMarriageRepo struct {
	records   map[string]*models.MarriageRecordDetail
	created   *models.MarriageRecord
	updated   *models.MarriageRecord
	deletedID string
	createErr error
}

func (m *mockMarriageRepo) List(ctx context.Context, filter models.MarriageFilter) ([]models.MarriageRecordDetail, int, error) {
	return nil, 0, nil
}

func (m *mockMarriageRepo) FindByID(ctx context.Context, id string) (*models.MarriageRecordDetail, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockMarriageRepo) Create(ctx context.Context, record *models.MarriageRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = "marriage-new"
	m.created = record
	return nil
}

func (m *mockMarriageRepo) Update(ctx context.Context, record *models.MarriageRecord) error {
	m.updated = record
	return nil
}

func (m *mockMarriageRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type mockBirthLookup struct {
	births  map[string]models.BirthRecord
	findErr error
}

func (m *mockBirthLookup) FindByIDs(ctx context.Context, ids []string) (map[string]models.BirthRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	found := make(map[string]models.BirthRecord)
	for _, id := range ids {
		if record, ok := m.births[id]; ok {
			found[id] = record
		}
	}
	return found, nil
}

func spouseBirths(groomDOB, brideDOB time.Time) *mockBirthLookup {
	return &mockBirthLookup{births: map[string]models.BirthRecord{
		"groom-1": {ID: "groom-1", ChildFirstName: "Omar", DateOfBirth: groomDOB, Gender: models.GenderMale},
		"bride-1": {ID: "bride-1", ChildFirstName: "Awa", DateOfBirth: brideDOB, Gender: models.GenderFemale},
	}}
}

func newMarriageService(repo *mockMarriageRepo, births *mockBirthLookup, offices *mockOfficeLookup, audit *mockAuditRepo) *MarriageService {
	return NewMarriageService(repo, births, offices, NewAuditService(audit, zap.NewNop()), validator.New(), zap.NewNop())
}

func validMarriageRequest() CreateMarriageRequest {
	return CreateMarriageRequest{
		GroomID:          "groom-1",
		BrideID:          "bride-1",
		DateOfMarriage:   time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC),
		PlaceOfMarriage:  "Central Town Hall",
		Witness1Name:     "Issa Traore",
		Witness2Name:     "Binta Sow",
		OfficeID:         "office-1",
		RegistrationDate: time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC),
	}
}

func adultSpouses() *mockBirthLookup {
	return spouseBirths(
		time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1997, 5, 20, 0, 0, 0, 0, time.UTC),
	)
}

func marriageOffices() *mockOfficeLookup {
	return &mockOfficeLookup{offices: map[string]*models.RegistrationOffice{"office-1": testOffice("office-1", "north")}}
}

func TestMarriageServiceCreate(t *testing.T) {
	repo := &mockMarriageRepo{}
	audit := &mockAuditRepo{}
	svc := newMarriageService(repo, adultSpouses(), marriageOffices(), audit)

	record, err := svc.Create(context.Background(), registrarActor("office-1", "north"), validMarriageRequest())
	require.NoError(t, err)
	assert.Equal(t, "marriage-new", record.ID)
	assert.Equal(t, models.RecordStatusPending, record.Status)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "marriage_records", audit.entries[0].Module)
}

func TestMarriageServiceCreateSamePerson(t *testing.T) {
	svc := newMarriageService(&mockMarriageRepo{}, adultSpouses(), marriageOffices(), &mockAuditRepo{})

	req := validMarriageRequest()
	req.BrideID = "groom-1"
	_, err := svc.Create(context.Background(), sysadminActor(), req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "bride_id", appErr.Field)
}

func TestMarriageServiceCreateUnderage(t *testing.T) {
	// Bride turns 18 four days after the wedding.
	births := spouseBirths(
		time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 6, 14, 0, 0, 0, 0, time.UTC),
	)
	svc := newMarriageService(&mockMarriageRepo{}, births, marriageOffices(), &mockAuditRepo{})

	_, err := svc.Create(context.Background(), sysadminActor(), validMarriageRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "bride_id", appErr.Field)
}

func TestMarriageServiceCreateExactlyEighteen(t *testing.T) {
	// Both spouses turn 18 on the wedding day itself.
	births := spouseBirths(
		time.Date(2005, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 6, 10, 0, 0, 0, 0, time.UTC),
	)
	svc := newMarriageService(&mockMarriageRepo{}, births, marriageOffices(), &mockAuditRepo{})

	_, err := svc.Create(context.Background(), sysadminActor(), validMarriageRequest())
	assert.NoError(t, err)
}

func TestMarriageServiceCreateMissingSpouse(t *testing.T) {
	births := &mockBirthLookup{births: map[string]models.BirthRecord{
		"groom-1": {ID: "groom-1", DateOfBirth: time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	svc := newMarriageService(&mockMarriageRepo{}, births, marriageOffices(), &mockAuditRepo{})

	_, err := svc.Create(context.Background(), sysadminActor(), validMarriageRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	assert.Equal(t, "bride_id", appErr.Field)
}

func TestMarriageServiceCreateDuplicateWitnesses(t *testing.T) {
	svc := newMarriageService(&mockMarriageRepo{}, adultSpouses(), marriageOffices(), &mockAuditRepo{})

	req := validMarriageRequest()
	req.Witness2Name = " Issa Traore "
	_, err := svc.Create(context.Background(), sysadminActor(), req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "witness2_name", appErr.Field)
}

func TestMarriageServiceCreateFutureDate(t *testing.T) {
	svc := newMarriageService(&mockMarriageRepo{}, adultSpouses(), marriageOffices(), &mockAuditRepo{})
	svc.now = func() time.Time { return time.Date(2023, 6, 9, 0, 0, 0, 0, time.UTC) }

	_, err := svc.Create(context.Background(), sysadminActor(), validMarriageRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, "date_of_marriage", appErr.Field)
}

func TestMarriageServiceUpdate(t *testing.T) {
	existing := &models.MarriageRecordDetail{
		MarriageRecord: models.MarriageRecord{
			ID:               "marriage-1",
			CertificateNo:    "M-2023-000001",
			GroomID:          "groom-1",
			BrideID:          "bride-1",
			DateOfMarriage:   time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC),
			PlaceOfMarriage:  "Central Town Hall",
			OfficeID:         "office-1",
			RegistrationDate: time.Date(2023, 6, 12, 0, 0, 0, 0, time.UTC),
			Status:           models.RecordStatusPending,
		},
		OfficeRegion: "north",
	}

	t.Run("date change is revalidated against spouses", func(t *testing.T) {
		repo := &mockMarriageRepo{records: map[string]*models.MarriageRecordDetail{"marriage-1": existing}}
		svc := newMarriageService(repo, adultSpouses(), marriageOffices(), &mockAuditRepo{})

		// Moves the wedding to before the bride was of age.
		moved := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.Update(context.Background(), sysadminActor(), "marriage-1", UpdateMarriageRequest{DateOfMarriage: &moved})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("status change is audited", func(t *testing.T) {
		repo := &mockMarriageRepo{records: map[string]*models.MarriageRecordDetail{"marriage-1": existing}}
		audit := &mockAuditRepo{}
		svc := newMarriageService(repo, adultSpouses(), marriageOffices(), audit)

		status := string(models.RecordStatusRegistered)
		record, err := svc.Update(context.Background(), registrarActor("office-1", "north"), "marriage-1", UpdateMarriageRequest{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.RecordStatusRegistered, record.Status)
		require.Len(t, audit.entries, 1)
	})
}

func TestMarriageServiceDeleteOutOfScope(t *testing.T) {
	repo := &mockMarriageRepo{records: map[string]*models.MarriageRecordDetail{
		"marriage-1": {
			MarriageRecord: models.MarriageRecord{ID: "marriage-1", OfficeID: "office-1"},
			OfficeRegion:   "north",
		},
	}}
	svc := newMarriageService(repo, adultSpouses(), marriageOffices(), &mockAuditRepo{})

	err := svc.Delete(context.Background(), registrarActor("office-9", "south"), "marriage-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.deletedID)
}
