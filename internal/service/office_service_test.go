package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockOfficeRepo struct {
	offices    map[string]*models.RegistrationOffice
	regions    []string
	referenced bool
	created    *models.RegistrationOffice
	updated    *models.RegistrationOffice
	deletedID  string
}

func (m *mockOfficeRepo) List(ctx context.Context, filter models.OfficeFilter) ([]models.RegistrationOffice, int, error) {
	out := make([]models.RegistrationOffice, 0, len(m.offices))
	for _, office := range m.offices {
		out = append(out, *office)
	}
	return out, len(out), nil
}

func (m *mockOfficeRepo) FindByID(ctx context.Context, id string) (*models.RegistrationOffice, error) {
	office, ok := m.offices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *office
	return &copied, nil
}

func (m *mockOfficeRepo) ListRegions(ctx context.Context) ([]string, error) {
	return m.regions, nil
}

func (m *mockOfficeRepo) Create(ctx context.Context, office *models.RegistrationOffice) error {
	m.created = office
	return nil
}

func (m *mockOfficeRepo) Update(ctx context.Context, office *models.RegistrationOffice) error {
	m.updated = office
	return nil
}

func (m *mockOfficeRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	return m.referenced, nil
}

func (m *mockOfficeRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func newOfficeService(repo *mockOfficeRepo, audit *mockAuditRepo) *OfficeService {
	return NewOfficeService(repo, NewAuditService(audit, zap.NewNop()), validator.New(), zap.NewNop())
}

func TestOfficeServiceCreate(t *testing.T) {
	t.Run("defaults to active", func(t *testing.T) {
		repo := &mockOfficeRepo{}
		audit := &mockAuditRepo{}
		svc := newOfficeService(repo, audit)

		office, err := svc.Create(context.Background(), sysadminActor(), CreateOfficeRequest{
			OfficeName: "Northern District Office",
			Region:     "north",
			District:   "district-7",
		})
		require.NoError(t, err)
		assert.Equal(t, models.OfficeStatusActive, office.Status)
		assert.NotEmpty(t, office.ID)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, "offices", audit.entries[0].Module)
	})

	t.Run("registrar may not manage offices", func(t *testing.T) {
		svc := newOfficeService(&mockOfficeRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), registrarActor("office-1", "north"), CreateOfficeRequest{
			OfficeName: "Rogue Office",
			Region:     "north",
			District:   "district-7",
		})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	})

	t.Run("bad contact email", func(t *testing.T) {
		svc := newOfficeService(&mockOfficeRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), sysadminActor(), CreateOfficeRequest{
			OfficeName:   "Office",
			Region:       "north",
			District:     "d",
			ContactEmail: "not-an-email",
		})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})
}

func TestOfficeServiceUpdate(t *testing.T) {
	repo := &mockOfficeRepo{offices: map[string]*models.RegistrationOffice{
		"office-1": testOffice("office-1", "north"),
	}}
	svc := newOfficeService(repo, &mockAuditRepo{})

	status := string(models.OfficeStatusInactive)
	office, err := svc.Update(context.Background(), sysadminActor(), "office-1", UpdateOfficeRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.OfficeStatusInactive, office.Status)
	assert.Equal(t, "Central Office", office.OfficeName)
}

func TestOfficeServiceDelete(t *testing.T) {
	t.Run("referenced office is protected", func(t *testing.T) {
		repo := &mockOfficeRepo{
			offices:    map[string]*models.RegistrationOffice{"office-1": testOffice("office-1", "north")},
			referenced: true,
		}
		svc := newOfficeService(repo, &mockAuditRepo{})

		err := svc.Delete(context.Background(), sysadminActor(), "office-1")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Empty(t, repo.deletedID)
	})

	t.Run("unreferenced office is removed", func(t *testing.T) {
		repo := &mockOfficeRepo{
			offices: map[string]*models.RegistrationOffice{"office-1": testOffice("office-1", "north")},
		}
		audit := &mockAuditRepo{}
		svc := newOfficeService(repo, audit)

		err := svc.Delete(context.Background(), sysadminActor(), "office-1")
		require.NoError(t, err)
		assert.Equal(t, "office-1", repo.deletedID)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, models.AuditActionDeleted, audit.entries[0].Action)
	})

	t.Run("unknown office", func(t *testing.T) {
		svc := newOfficeService(&mockOfficeRepo{}, &mockAuditRepo{})

		err := svc.Delete(context.Background(), sysadminActor(), "missing")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}

func TestOfficeServiceRegions(t *testing.T) {
	repo := &mockOfficeRepo{regions: []string{"north", "south"}}
	svc := newOfficeService(repo, &mockAuditRepo{})

	regions, err := svc.Regions(context.Background(), clerkActor("office-1", "north"))
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, regions)
}
