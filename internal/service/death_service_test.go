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

type mockDeathRepo struct {
	records   map[string]*models.DeathRecordDetail
	created   *models.DeathRecord
	updated   *models.DeathRecord
	deletedID string
	createErr error
}

func (m *mockDeathRepo) List(ctx context.Context, filter models.DeathFilter) ([]models.DeathRecordDetail, int, error) {
	return nil, 0, nil
}

func (m *mockDeathRepo) FindByID(ctx context.Context, id string) (*models.DeathRecordDetail, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockDeathRepo) Create(ctx context.Context, record *models.DeathRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = "death-new"
	m.created = record
	return nil
}

func (m *mockDeathRepo) Update(ctx context.Context, record *models.DeathRecord) error {
	m.updated = record
	return nil
}

func (m *mockDeathRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func deathBirths() *mockBirthLookup {
	return &mockBirthLookup{births: map[string]models.BirthRecord{
		"deceased-1":  {ID: "deceased-1", ChildFirstName: "Sekou", DateOfBirth: time.Date(1940, 2, 1, 0, 0, 0, 0, time.UTC)},
		"informant-1": {ID: "informant-1", ChildFirstName: "Adama", DateOfBirth: time.Date(1970, 8, 15, 0, 0, 0, 0, time.UTC)},
	}}
}

func newDeathService(repo *mockDeathRepo, births *mockBirthLookup, offices *mockOfficeLookup, audit *mockAuditRepo) *DeathService {
	return NewDeathService(repo, births, offices, NewAuditService(audit, zap.NewNop()), validator.New(), zap.NewNop())
}

func validDeathRequest() CreateDeathRequest {
	return CreateDeathRequest{
		DeceasedBirthID:  "deceased-1",
		DateOfDeath:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		PlaceOfDeath:     "Regional Hospital",
		CauseOfDeath:     "natural causes",
		InformantName:    "Adama Kone",
		OfficeID:         "office-1",
		RegistrationDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeathServiceCreate(t *testing.T) {
	repo := &mockDeathRepo{}
	audit := &mockAuditRepo{}
	svc := newDeathService(repo, deathBirths(), marriageOffices(), audit)

	record, err := svc.Create(context.Background(), registrarActor("office-1", "north"), validDeathRequest())
	require.NoError(t, err)
	assert.Equal(t, "death-new", record.ID)
	assert.Equal(t, models.RecordStatusPending, record.Status)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "death_records", audit.entries[0].Module)
}

func TestDeathServiceCreateUnknownDeceased(t *testing.T) {
	svc := newDeathService(&mockDeathRepo{}, &mockBirthLookup{births: map[string]models.BirthRecord{}}, marriageOffices(), &mockAuditRepo{})

	_, err := svc.Create(context.Background(), sysadminActor(), validDeathRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	assert.Equal(t, "deceased_birth_id", appErr.Field)
}

func TestDeathServiceCreateUnknownInformant(t *testing.T) {
	svc := newDeathService(&mockDeathRepo{}, deathBirths(), marriageOffices(), &mockAuditRepo{})

	req := validDeathRequest()
	missing := "informant-9"
	req.InformantBirthID = &missing
	_, err := svc.Create(context.Background(), sysadminActor(), req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	assert.Equal(t, "informant_birth_id", appErr.Field)
}

func TestDeathServiceCreateDateRules(t *testing.T) {
	svc := newDeathService(&mockDeathRepo{}, deathBirths(), marriageOffices(), &mockAuditRepo{})
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }

	t.Run("future date of death", func(t *testing.T) {
		req := validDeathRequest()
		req.DateOfDeath = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

		_, err := svc.Create(context.Background(), sysadminActor(), req)
		appErr := appErrors.FromError(err)
		assert.Equal(t, "date_of_death", appErr.Field)
	})

	t.Run("death precedes birth", func(t *testing.T) {
		req := validDeathRequest()
		req.DateOfDeath = time.Date(1939, 1, 1, 0, 0, 0, 0, time.UTC)

		_, err := svc.Create(context.Background(), sysadminActor(), req)
		appErr := appErrors.FromError(err)
		assert.Equal(t, "date_of_death", appErr.Field)
		assert.Contains(t, appErr.Message, "after the deceased's date of birth")
	})
}

func TestDeathServiceUpdate(t *testing.T) {
	existing := &models.DeathRecordDetail{
		DeathRecord: models.DeathRecord{
			ID:               "death-1",
			CertificateNo:    "D-2024-000001",
			DeceasedBirthID:  "deceased-1",
			DateOfDeath:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			PlaceOfDeath:     "Regional Hospital",
			OfficeID:         "office-1",
			RegistrationDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			Status:           models.RecordStatusPending,
		},
		OfficeRegion: "north",
	}

	t.Run("cause change skips the trail", func(t *testing.T) {
		repo := &mockDeathRepo{records: map[string]*models.DeathRecordDetail{"death-1": existing}}
		audit := &mockAuditRepo{}
		svc := newDeathService(repo, deathBirths(), marriageOffices(), audit)

		cause := "cardiac arrest"
		record, err := svc.Update(context.Background(), registrarActor("office-1", "north"), "death-1", UpdateDeathRequest{CauseOfDeath: &cause})
		require.NoError(t, err)
		assert.Equal(t, "cardiac arrest", record.CauseOfDeath)
		assert.Empty(t, audit.entries)
	})

	t.Run("merged date is revalidated", func(t *testing.T) {
		repo := &mockDeathRepo{records: map[string]*models.DeathRecordDetail{"death-1": existing}}
		svc := newDeathService(repo, deathBirths(), marriageOffices(), &mockAuditRepo{})

		moved := time.Date(1930, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.Update(context.Background(), sysadminActor(), "death-1", UpdateDeathRequest{DateOfDeath: &moved})
		appErr := appErrors.FromError(err)
		assert.Equal(t, "date_of_death", appErr.Field)
	})
}

func TestDeathServiceDelete(t *testing.T) {
	repo := &mockDeathRepo{records: map[string]*models.DeathRecordDetail{
		"death-1": {
			DeathRecord:  models.DeathRecord{ID: "death-1", CertificateNo: "D-2024-000001", OfficeID: "office-1"},
			OfficeRegion: "north",
		},
	}}
	audit := &mockAuditRepo{}
	svc := newDeathService(repo, deathBirths(), marriageOffices(), audit)

	err := svc.Delete(context.Background(), registrarActor("office-1", "north"), "death-1")
	require.NoError(t, err)
	assert.Equal(t, "death-1", repo.deletedID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionDeleted, audit.entries[0].Action)
}
