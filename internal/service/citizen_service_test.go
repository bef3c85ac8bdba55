package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockCitizenRepo struct {
	births    []models.BirthRecordDetail
	marriages []models.MarriageRecord
	deaths    []models.DeathRecord
	replaced  []models.Citizen
	listed    []models.Citizen

	// replaceStarted/replaceRelease coordinate the concurrency test.
	replaceStarted chan struct{}
	replaceRelease chan struct{}
}

func (m *mockCitizenRepo) ListQualifyingBirths(ctx context.Context) ([]models.BirthRecordDetail, error) {
	return m.births, nil
}

func (m *mockCitizenRepo) ListActiveMarriages(ctx context.Context) ([]models.MarriageRecord, error) {
	return m.marriages, nil
}

func (m *mockCitizenRepo) ListDeaths(ctx context.Context) ([]models.DeathRecord, error) {
	return m.deaths, nil
}

func (m *mockCitizenRepo) ReplaceAll(ctx context.Context, citizens []models.Citizen) error {
	if m.replaceStarted != nil {
		close(m.replaceStarted)
		<-m.replaceRelease
	}
	m.replaced = citizens
	return nil
}

func (m *mockCitizenRepo) List(ctx context.Context, filter models.CitizenFilter) ([]models.Citizen, int, error) {
	return m.listed, len(m.listed), nil
}

func (m *mockCitizenRepo) Count(ctx context.Context) (int, error) {
	return len(m.replaced), nil
}

func birthDetail(id, region string, dob time.Time) models.BirthRecordDetail {
	return models.BirthRecordDetail{
		BirthRecord: models.BirthRecord{
			ID:             id,
			CertificateNo:  "B-" + id,
			ChildFirstName: "Citizen",
			ChildLastName:  id,
			Gender:         models.GenderFemale,
			DateOfBirth:    dob,
			OfficeID:       "office-1",
			Status:         models.RecordStatusRegistered,
		},
		OfficeRegion: region,
	}
}

func TestCitizenServiceRebuild(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	wedding := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
	repo := &mockCitizenRepo{
		births: []models.BirthRecordDetail{
			birthDetail("p1", "north", dob),
			birthDetail("p2", "north", dob),
			birthDetail("p3", "south", dob),
		},
		marriages: []models.MarriageRecord{
			{ID: "m2", CertificateNo: "M-2", GroomID: "p1", BrideID: "p2", DateOfMarriage: wedding.AddDate(1, 0, 0)},
			{ID: "m1", CertificateNo: "M-1", GroomID: "p1", BrideID: "p3", DateOfMarriage: wedding},
		},
		deaths: []models.DeathRecord{
			{ID: "d1", CertificateNo: "D-1", DeceasedBirthID: "p2", DateOfDeath: death},
		},
	}
	svc := NewCitizenService(repo, zap.NewNop())

	count, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, repo.replaced, 3)

	byBirth := make(map[string]models.Citizen, len(repo.replaced))
	for _, c := range repo.replaced {
		byBirth[c.BirthRecordID] = c
	}

	// p1 married twice; the most recently registered marriage wins.
	p1 := byBirth["p1"]
	assert.True(t, p1.IsMarried)
	require.NotNil(t, p1.MarriageRecordID)
	assert.Equal(t, "m2", *p1.MarriageRecordID)
	assert.False(t, p1.IsDead)

	p2 := byBirth["p2"]
	assert.True(t, p2.IsMarried)
	assert.True(t, p2.IsDead)
	require.NotNil(t, p2.DeathCertificateNo)
	assert.Equal(t, "D-1", *p2.DeathCertificateNo)

	p3 := byBirth["p3"]
	assert.True(t, p3.IsMarried)
	assert.Equal(t, "south", p3.Region)
	assert.False(t, p3.SyncedAt.IsZero())
}

func TestCitizenServiceRebuildIdempotent(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockCitizenRepo{
		births: []models.BirthRecordDetail{
			birthDetail("p1", "north", dob),
			birthDetail("p2", "south", dob),
		},
		marriages: []models.MarriageRecord{
			{ID: "m1", CertificateNo: "M-1", GroomID: "p1", BrideID: "p2", DateOfMarriage: dob.AddDate(25, 0, 0)},
		},
	}
	svc := NewCitizenService(repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC) }

	first, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	firstRows := repo.replaced

	second, err := svc.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstRows, repo.replaced)
}

func TestCitizenServiceRebuildSingleFlight(t *testing.T) {
	repo := &mockCitizenRepo{
		replaceStarted: make(chan struct{}),
		replaceRelease: make(chan struct{}),
	}
	svc := NewCitizenService(repo, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = svc.Rebuild(context.Background())
	}()

	<-repo.replaceStarted
	_, err := svc.Rebuild(context.Background())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	close(repo.replaceRelease)
	wg.Wait()
	assert.NoError(t, firstErr)
}

func TestCitizenServiceListRegionScope(t *testing.T) {
	repo := &mockCitizenRepo{listed: []models.Citizen{{ID: "c1", Region: "north"}}}
	svc := NewCitizenService(repo, zap.NewNop())

	t.Run("staff sees own region", func(t *testing.T) {
		citizens, pagination, err := svc.List(context.Background(), registrarActor("office-1", "north"), models.CitizenFilter{})
		require.NoError(t, err)
		assert.Len(t, citizens, 1)
		assert.Equal(t, 1, pagination.TotalCount)
	})

	t.Run("citizen role is rejected", func(t *testing.T) {
		_, _, err := svc.List(context.Background(), policy.ActorFromUser(&models.UserDetail{User: models.User{ID: "c", Role: models.RoleCitizen, IsApproved: true}}), models.CitizenFilter{})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	})
}
