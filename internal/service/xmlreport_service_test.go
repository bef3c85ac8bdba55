package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

type mockReportBirths struct {
	detail *models.BirthRecordDetail
}

func (m *mockReportBirths) FindByID(ctx context.Context, id string) (*models.BirthRecordDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

type mockReportMarriages struct {
	rows []models.MarriageRecordDetail
}

func (m *mockReportMarriages) ListBySpouse(ctx context.Context, birthID string) ([]models.MarriageRecordDetail, error) {
	return m.rows, nil
}

type mockReportDeaths struct {
	death *models.DeathRecordDetail
}

func (m *mockReportDeaths) FindByDeceased(ctx context.Context, birthID string) (*models.DeathRecordDetail, error) {
	return m.death, nil
}

type mockReportOffices struct {
	offices []models.RegistrationOffice
	regions map[string]bool
}

func (m *mockReportOffices) ListByRegion(ctx context.Context, region string) ([]models.RegistrationOffice, error) {
	return m.offices, nil
}

func (m *mockReportOffices) RegionExists(ctx context.Context, region string) (bool, error) {
	return m.regions[region], nil
}

type mockReportStats struct {
	statusCounts map[models.RecordType][]models.StatusCount
	months       []models.MonthCount
	births       []models.BirthRecordDetail
	marriages    []models.MarriageRecordDetail
	deaths       []models.DeathRecordDetail
	hasRecords   bool
	birthStats   []models.BirthRegionStat
	deathStats   []models.DeathAgeStat
	marriageStat []models.MarriageRegionStat
	demographics []models.RegionDemographics
	completeness []models.RegistrationCompleteness
	summary      *models.AnnualVitalSummary
}

func (m *mockReportStats) StatusCountsByRegion(ctx context.Context, recordType models.RecordType, region string, year int) ([]models.StatusCount, error) {
	return m.statusCounts[recordType], nil
}

func (m *mockReportStats) MonthlyBirthCounts(ctx context.Context, region string, year int) ([]models.MonthCount, error) {
	return m.months, nil
}

func (m *mockReportStats) MonthlyRecords(ctx context.Context, year, month int) ([]models.BirthRecordDetail, []models.MarriageRecordDetail, []models.DeathRecordDetail, error) {
	return m.births, m.marriages, m.deaths, nil
}

func (m *mockReportStats) HasRecordsForYear(ctx context.Context, year int) (bool, error) {
	return m.hasRecords, nil
}

func (m *mockReportStats) BirthsByRegion(ctx context.Context, year int) ([]models.BirthRegionStat, error) {
	return m.birthStats, nil
}

func (m *mockReportStats) DeathsByAge(ctx context.Context) ([]models.DeathAgeStat, error) {
	return m.deathStats, nil
}

func (m *mockReportStats) MarriagesByRegion(ctx context.Context, year int) ([]models.MarriageRegionStat, error) {
	return m.marriageStat, nil
}

func (m *mockReportStats) Demographics(ctx context.Context, region string) ([]models.RegionDemographics, error) {
	return m.demographics, nil
}

func (m *mockReportStats) Completeness(ctx context.Context) ([]models.RegistrationCompleteness, error) {
	return m.completeness, nil
}

func (m *mockReportStats) AnnualSummary(ctx context.Context, year int) (*models.AnnualVitalSummary, error) {
	return m.summary, nil
}

func reportBirthDetail() *models.BirthRecordDetail {
	return &models.BirthRecordDetail{
		BirthRecord: models.BirthRecord{
			ID:               "birth-1",
			CertificateNo:    "B-1985-000042",
			ChildFirstName:   "Neema",
			ChildLastName:    "Mushi",
			Gender:           models.GenderFemale,
			DateOfBirth:      time.Date(1985, 4, 2, 0, 0, 0, 0, time.UTC),
			PlaceOfBirth:     "Moshi",
			Nationality:      "Tanzanian",
			FatherName:       "Elias Mushi",
			MotherName:       "Grace Mushi",
			OfficeID:         "office-1",
			RegistrationDate: time.Date(1985, 4, 20, 0, 0, 0, 0, time.UTC),
			Status:           models.RecordStatusRegistered,
		},
		OfficeName:   "Moshi Office",
		OfficeRegion: "north",
	}
}

func newXMLReportService(births *mockReportBirths, marriages *mockReportMarriages, deaths *mockReportDeaths, offices *mockReportOffices, stats *mockReportStats) *XMLReportService {
	svc := NewXMLReportService(births, marriages, deaths, offices, stats, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 12, 30, 0, 0, time.UTC) }
	return svc
}

func TestXMLReportServiceCitizenReport(t *testing.T) {
	t.Run("full history", func(t *testing.T) {
		marriages := &mockReportMarriages{rows: []models.MarriageRecordDetail{{
			MarriageRecord: models.MarriageRecord{
				CertificateNo:   "M-2010-000007",
				DateOfMarriage:  time.Date(2010, 8, 14, 0, 0, 0, 0, time.UTC),
				PlaceOfMarriage: "Moshi",
				GroomID:         "birth-9",
				BrideID:         "birth-1",
				Status:          models.RecordStatusRegistered,
			},
			OfficeName: "Moshi Office",
		}}}
		deaths := &mockReportDeaths{death: &models.DeathRecordDetail{
			DeathRecord: models.DeathRecord{
				CertificateNo: "D-2023-000003",
				DateOfDeath:   time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
				PlaceOfDeath:  "Moshi",
				CauseOfDeath:  "natural causes",
			},
			OfficeName: "Moshi Office",
		}}
		svc := newXMLReportService(&mockReportBirths{detail: reportBirthDetail()}, marriages, deaths, &mockReportOffices{}, &mockReportStats{})

		payload, filename, err := svc.CitizenReport(context.Background(), registrarActor("office-1", "north"), "birth-1")
		require.NoError(t, err)
		assert.Equal(t, "citizen_report_birth-1.xml", filename)

		body := string(payload)
		assert.True(t, strings.HasPrefix(body, "<?xml"))
		assert.Contains(t, body, `<CitizenReport generated="2024-07-01 12:30:00">`)
		assert.Contains(t, body, "<CertificateNo>B-1985-000042</CertificateNo>")
		assert.Contains(t, body, "<MarriageRecords>")
		assert.Contains(t, body, "<CertificateNo>M-2010-000007</CertificateNo>")
		assert.Contains(t, body, "<DeathInformation>")
		assert.Contains(t, body, "<CauseOfDeath>natural causes</CauseOfDeath>")
	})

	t.Run("birth only omits empty sections", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{detail: reportBirthDetail()}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, &mockReportStats{})

		payload, _, err := svc.CitizenReport(context.Background(), sysadminActor(), "birth-1")
		require.NoError(t, err)

		body := string(payload)
		assert.NotContains(t, body, "MarriageRecords")
		assert.NotContains(t, body, "DeathInformation")
		assert.Contains(t, body, "<BirthInformation>")
	})

	t.Run("unknown birth record", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, &mockReportStats{})

		_, _, err := svc.CitizenReport(context.Background(), sysadminActor(), "missing")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})

	t.Run("out of scope actor", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{detail: reportBirthDetail()}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, &mockReportStats{})

		_, _, err := svc.CitizenReport(context.Background(), registrarActor("office-9", "south"), "birth-1")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	})
}

func TestXMLReportServiceRegionalStatistics(t *testing.T) {
	stats := &mockReportStats{
		statusCounts: map[models.RecordType][]models.StatusCount{
			models.RecordTypeBirth: {
				{Status: models.RecordStatusRegistered, Count: 12},
				{Status: models.RecordStatusPending, Count: 3},
			},
			models.RecordTypeMarriage: {{Status: models.RecordStatusRegistered, Count: 4}},
			models.RecordTypeDeath:    {{Status: models.RecordStatusRegistered, Count: 2}},
		},
		months: []models.MonthCount{{Month: 1, Count: 5}, {Month: 2, Count: 7}},
	}
	offices := &mockReportOffices{
		regions: map[string]bool{"north": true},
		offices: []models.RegistrationOffice{{ID: "office-1", OfficeName: "Moshi Office", District: "Moshi", ContactEmail: "moshi@example.org", ContactPhone: "+255700000001"}},
	}

	t.Run("renders counts and office directory", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, offices, stats)

		payload, filename, err := svc.RegionalStatistics(context.Background(), sysadminActor(), "north", 2023)
		require.NoError(t, err)
		assert.Equal(t, "regional_statistics_north_2023.xml", filename)

		body := string(payload)
		assert.Contains(t, body, `region="north"`)
		assert.Contains(t, body, "<TotalBirths>15</TotalBirths>")
		assert.Contains(t, body, `<Status type="pending" count="3">`)
		assert.Contains(t, body, `<Month number="2" births="7">`)
		assert.Contains(t, body, "<Name>Moshi Office</Name>")
		assert.Contains(t, body, "<TotalOffices>1</TotalOffices>")
	})

	t.Run("zero year defaults to current year", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, offices, stats)

		_, filename, err := svc.RegionalStatistics(context.Background(), sysadminActor(), "north", 0)
		require.NoError(t, err)
		assert.Equal(t, "regional_statistics_north_2024.xml", filename)
	})

	t.Run("unknown region", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, offices, stats)

		_, _, err := svc.RegionalStatistics(context.Background(), sysadminActor(), "atlantis", 2023)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}

func TestXMLReportServiceMonthlyReport(t *testing.T) {
	t.Run("month out of range", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, &mockReportStats{})

		_, _, err := svc.MonthlyReport(context.Background(), sysadminActor(), 2024, 13)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, "month", appErr.Field)
	})

	t.Run("renders records and summary", func(t *testing.T) {
		stats := &mockReportStats{
			births: []models.BirthRecordDetail{{
				BirthRecord: models.BirthRecord{
					CertificateNo:  "B-2024-000100",
					ChildFirstName: "Juma",
					ChildLastName:  "Said",
					Gender:         models.GenderMale,
					DateOfBirth:    time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
					Status:         models.RecordStatusPending,
				},
				OfficeName:   "Dodoma Office",
				OfficeRegion: "central",
			}},
			deaths: []models.DeathRecordDetail{{
				DeathRecord: models.DeathRecord{
					CertificateNo: "D-2024-000009",
					DateOfDeath:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
					Status:        models.RecordStatusRegistered,
				},
				OfficeName:   "Dodoma Office",
				OfficeRegion: "central",
			}},
		}
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, stats)

		payload, filename, err := svc.MonthlyReport(context.Background(), clerkActor("office-1", "central"), 2024, 3)
		require.NoError(t, err)
		assert.Equal(t, "monthly_report_2024_3.xml", filename)

		body := string(payload)
		assert.Contains(t, body, `<MonthlyReport year="2024" month="3"`)
		assert.Contains(t, body, "<TotalBirths>1</TotalBirths>")
		assert.Contains(t, body, "<TotalMarriages>0</TotalMarriages>")
		assert.Contains(t, body, "<ChildName>Juma Said</ChildName>")
		assert.Contains(t, body, "<CertificateNo>D-2024-000009</CertificateNo>")
	})
}

func TestXMLReportServiceVitalStatistics(t *testing.T) {
	t.Run("renders annual submission", func(t *testing.T) {
		stats := &mockReportStats{
			hasRecords: true,
			summary: &models.AnnualVitalSummary{
				Year:           2023,
				Births:         120,
				Deaths:         30,
				Marriages:      45,
				PendingBirths:  8,
				RejectedBirths: 2,
			},
			birthStats: []models.BirthRegionStat{{Region: "north", RegistrationYear: 2023, TotalBirths: 70, MaleBirths: 36, FemaleBirths: 34, RecordStatus: models.RecordStatusRegistered}},
			deathStats: []models.DeathAgeStat{{AgeGroup: "60+", TotalDeaths: 18, Region: "north", LeadingCause: "natural causes"}},
			marriageStat: []models.MarriageRegionStat{{Region: "north", MarriageYear: 2023, TotalMarriages: 25, RecordStatus: models.RecordStatusRegistered, MonthRegistered: "June"}},
			demographics: []models.RegionDemographics{{Region: "north", TotalCitizens: 5000, MaleCount: 2400, FemaleCount: 2600, AverageAge: 27.4, MarriedCount: 1800, DeceasedCount: 120}},
			completeness: []models.RegistrationCompleteness{{Region: "north", TotalRegistrations: 150, Completed: 130, Pending: 15, Rejected: 5, CompletionPercentage: 86.67}},
		}
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, stats)

		payload, filename, err := svc.VitalStatistics(context.Background(), sysadminActor(), 2023, "")
		require.NoError(t, err)
		assert.Equal(t, "vital_statistics_2023.xml", filename)

		body := string(payload)
		assert.Contains(t, body, `nation="Tanzania"`)
		assert.Contains(t, body, "<TotalBirths>120</TotalBirths>")
		assert.Contains(t, body, "<Range>60+</Range>")
		assert.Contains(t, body, "<Month>June</Month>")
		assert.Contains(t, body, "<AverageAge>27.4</AverageAge>")
		assert.Contains(t, body, "<CompletionPercentage>86.67</CompletionPercentage>")
	})

	t.Run("empty year still renders", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{}, &mockReportStats{})

		payload, _, err := svc.VitalStatistics(context.Background(), sysadminActor(), 2019, "")
		require.NoError(t, err)
		body := string(payload)
		assert.Contains(t, body, `year="2019"`)
		assert.NotContains(t, body, "AnnualSummary")
	})

	t.Run("unknown region filter", func(t *testing.T) {
		svc := newXMLReportService(&mockReportBirths{}, &mockReportMarriages{}, &mockReportDeaths{}, &mockReportOffices{regions: map[string]bool{"north": true}}, &mockReportStats{})

		_, _, err := svc.VitalStatistics(context.Background(), sysadminActor(), 2023, "atlantis")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}
