package service

import (
	"context"
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

// Element and attribute names in these documents are consumed by downstream
// government systems and must not change.

const (
	xmlDateFormat      = "2006-01-02"
	xmlTimestampFormat = "2006-01-02 15:04:05"
)

type citizenBirthXML struct {
	CertificateNo      string `xml:"CertificateNo"`
	FirstName          string `xml:"FirstName"`
	MiddleName         string `xml:"MiddleName"`
	LastName           string `xml:"LastName"`
	Gender             string `xml:"Gender"`
	DateOfBirth        string `xml:"DateOfBirth"`
	PlaceOfBirth       string `xml:"PlaceOfBirth"`
	Nationality        string `xml:"Nationality"`
	FatherName         string `xml:"FatherName"`
	MotherName         string `xml:"MotherName"`
	RegistrationOffice string `xml:"RegistrationOffice"`
	Region             string `xml:"Region"`
	RegistrationDate   string `xml:"RegistrationDate"`
}

type citizenMarriageXML struct {
	CertificateNo      string `xml:"CertificateNo"`
	DateOfMarriage     string `xml:"DateOfMarriage"`
	PlaceOfMarriage    string `xml:"PlaceOfMarriage"`
	GroomID            string `xml:"GroomID"`
	BrideID            string `xml:"BrideID"`
	RegistrationOffice string `xml:"RegistrationOffice"`
	Status             string `xml:"Status"`
}

type citizenMarriagesXML struct {
	Marriages []citizenMarriageXML `xml:"Marriage"`
}

type citizenDeathXML struct {
	CertificateNo      string `xml:"CertificateNo"`
	DateOfDeath        string `xml:"DateOfDeath"`
	PlaceOfDeath       string `xml:"PlaceOfDeath"`
	CauseOfDeath       string `xml:"CauseOfDeath"`
	RegistrationOffice string `xml:"RegistrationOffice"`
}

type citizenReportXML struct {
	XMLName   xml.Name             `xml:"CitizenReport"`
	Generated string               `xml:"generated,attr"`
	Birth     citizenBirthXML      `xml:"BirthInformation"`
	Marriages *citizenMarriagesXML `xml:"MarriageRecords,omitempty"`
	Death     *citizenDeathXML     `xml:"DeathInformation,omitempty"`
}

type statusCountXML struct {
	Type  string `xml:"type,attr"`
	Count int    `xml:"count,attr"`
}

type monthTrendXML struct {
	Number int `xml:"number,attr"`
	Births int `xml:"births,attr"`
}

type regionalOfficeXML struct {
	ID           string `xml:"ID"`
	Name         string `xml:"Name"`
	District     string `xml:"District"`
	ContactEmail string `xml:"ContactEmail"`
	ContactPhone string `xml:"ContactPhone"`
}

type regionalSummaryXML struct {
	TotalBirths    int `xml:"TotalBirths"`
	TotalMarriages int `xml:"TotalMarriages"`
	TotalDeaths    int `xml:"TotalDeaths"`
	TotalOffices   int `xml:"TotalOffices"`
}

type regionalStatisticsXML struct {
	XMLName            xml.Name            `xml:"RegionalStatistics"`
	Region             string              `xml:"region,attr"`
	Year               int                 `xml:"year,attr"`
	Generated          string              `xml:"generated,attr"`
	Summary            regionalSummaryXML  `xml:"Summary"`
	BirthStatistics    []statusCountXML    `xml:"BirthStatistics>Status"`
	MarriageStatistics []statusCountXML    `xml:"MarriageStatistics>Status"`
	DeathStatistics    []statusCountXML    `xml:"DeathStatistics>Status"`
	MonthlyTrends      []monthTrendXML     `xml:"MonthlyTrends>Month"`
	Offices            []regionalOfficeXML `xml:"RegistrationOffices>Office"`
}

type monthlySummaryXML struct {
	TotalBirths    int `xml:"TotalBirths"`
	TotalMarriages int `xml:"TotalMarriages"`
	TotalDeaths    int `xml:"TotalDeaths"`
}

type monthlyBirthXML struct {
	CertificateNo string `xml:"CertificateNo"`
	ChildName     string `xml:"ChildName"`
	Gender        string `xml:"Gender"`
	DateOfBirth   string `xml:"DateOfBirth"`
	Office        string `xml:"Office"`
	Region        string `xml:"Region"`
	Status        string `xml:"Status"`
}

type monthlyMarriageXML struct {
	CertificateNo  string `xml:"CertificateNo"`
	DateOfMarriage string `xml:"DateOfMarriage"`
	Office         string `xml:"Office"`
	Region         string `xml:"Region"`
	Status         string `xml:"Status"`
}

type monthlyDeathXML struct {
	CertificateNo string `xml:"CertificateNo"`
	DateOfDeath   string `xml:"DateOfDeath"`
	Office        string `xml:"Office"`
	Region        string `xml:"Region"`
	Status        string `xml:"Status"`
}

type monthlyReportXML struct {
	XMLName   xml.Name             `xml:"MonthlyReport"`
	Year      int                  `xml:"year,attr"`
	Month     int                  `xml:"month,attr"`
	Generated string               `xml:"generated,attr"`
	Summary   monthlySummaryXML    `xml:"Summary"`
	Births    []monthlyBirthXML    `xml:"BirthRecords>Birth"`
	Marriages []monthlyMarriageXML `xml:"MarriageRecords>Marriage"`
	Deaths    []monthlyDeathXML    `xml:"DeathRecords>Death"`
}

type annualSummaryXML struct {
	Year           int `xml:"Year"`
	TotalBirths    int `xml:"TotalBirths"`
	TotalDeaths    int `xml:"TotalDeaths"`
	TotalMarriages int `xml:"TotalMarriages"`
	PendingBirths  int `xml:"PendingBirths"`
	RejectedBirths int `xml:"RejectedBirths"`
}

type birthRegionXML struct {
	Name         string `xml:"Name"`
	Year         int    `xml:"Year"`
	TotalBirths  int    `xml:"TotalBirths"`
	MaleBirths   int    `xml:"MaleBirths"`
	FemaleBirths int    `xml:"FemaleBirths"`
	Status       string `xml:"Status"`
}

type deathAgeGroupXML struct {
	Range        string `xml:"Range"`
	TotalDeaths  int    `xml:"TotalDeaths"`
	Region       string `xml:"Region"`
	LeadingCause string `xml:"LeadingCause"`
}

type marriageRegionXML struct {
	Name           string `xml:"Name"`
	Year           int    `xml:"Year"`
	TotalMarriages int    `xml:"TotalMarriages"`
	Status         string `xml:"Status"`
	Month          string `xml:"Month"`
}

type demographicsRegionXML struct {
	Name          string  `xml:"Name"`
	TotalCitizens int     `xml:"TotalCitizens"`
	MaleCount     int     `xml:"MaleCount"`
	FemaleCount   int     `xml:"FemaleCount"`
	AverageAge    float64 `xml:"AverageAge"`
	MarriedCount  int     `xml:"MarriedCount"`
	DeceasedCount int     `xml:"DeceasedCount"`
}

type completenessRegionXML struct {
	Name                 string  `xml:"Name"`
	TotalRegistrations   int     `xml:"TotalRegistrations"`
	Completed            int     `xml:"Completed"`
	Pending              int     `xml:"Pending"`
	Rejected             int     `xml:"Rejected"`
	CompletionPercentage float64 `xml:"CompletionPercentage"`
}

type vitalStatisticsXML struct {
	XMLName       xml.Name                `xml:"VitalStatisticsReport"`
	Year          int                     `xml:"year,attr"`
	Generated     string                  `xml:"generated,attr"`
	Nation        string                  `xml:"nation,attr"`
	AnnualSummary *annualSummaryXML       `xml:"AnnualSummary,omitempty"`
	BirthStats    []birthRegionXML        `xml:"BirthStatisticsByRegion>Region"`
	DeathStats    []deathAgeGroupXML      `xml:"DeathStatisticsByAgeGroup>AgeGroup"`
	MarriageStats []marriageRegionXML     `xml:"MarriageStatisticsByRegion>Region"`
	Demographics  []demographicsRegionXML `xml:"PopulationDemographics>Region"`
	Completeness  []completenessRegionXML `xml:"RegistrationCompleteness>Region"`
}

type reportBirthReader interface {
	FindByID(ctx context.Context, id string) (*models.BirthRecordDetail, error)
}

type reportMarriageReader interface {
	ListBySpouse(ctx context.Context, birthID string) ([]models.MarriageRecordDetail, error)
}

type reportDeathReader interface {
	FindByDeceased(ctx context.Context, birthID string) (*models.DeathRecordDetail, error)
}

type reportOfficeReader interface {
	ListByRegion(ctx context.Context, region string) ([]models.RegistrationOffice, error)
	RegionExists(ctx context.Context, region string) (bool, error)
}

type reportStatsReader interface {
	StatusCountsByRegion(ctx context.Context, recordType models.RecordType, region string, year int) ([]models.StatusCount, error)
	MonthlyBirthCounts(ctx context.Context, region string, year int) ([]models.MonthCount, error)
	MonthlyRecords(ctx context.Context, year, month int) ([]models.BirthRecordDetail, []models.MarriageRecordDetail, []models.DeathRecordDetail, error)
	HasRecordsForYear(ctx context.Context, year int) (bool, error)
	BirthsByRegion(ctx context.Context, year int) ([]models.BirthRegionStat, error)
	DeathsByAge(ctx context.Context) ([]models.DeathAgeStat, error)
	MarriagesByRegion(ctx context.Context, year int) ([]models.MarriageRegionStat, error)
	Demographics(ctx context.Context, region string) ([]models.RegionDemographics, error)
	Completeness(ctx context.Context) ([]models.RegistrationCompleteness, error)
	AnnualSummary(ctx context.Context, year int) (*models.AnnualVitalSummary, error)
}

// XMLReportService renders the XML documents submitted to downstream
// government consumers. Each method returns the rendered payload and the
// attachment filename.
type XMLReportService struct {
	births    reportBirthReader
	marriages reportMarriageReader
	deaths    reportDeathReader
	offices   reportOfficeReader
	stats     reportStatsReader
	logger    *zap.Logger
	now       func() time.Time
}

// NewXMLReportService constructs the XML report service.
func NewXMLReportService(births reportBirthReader, marriages reportMarriageReader, deaths reportDeathReader, offices reportOfficeReader, stats reportStatsReader, logger *zap.Logger) *XMLReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XMLReportService{
		births:    births,
		marriages: marriages,
		deaths:    deaths,
		offices:   offices,
		stats:     stats,
		logger:    logger,
		now:       time.Now,
	}
}

// CitizenReport renders the full civil history of one person keyed by their
// birth record: the birth, any marriages, and the death if registered.
func (s *XMLReportService) CitizenReport(ctx context.Context, actor policy.Actor, birthID string) ([]byte, string, error) {
	birth, err := s.births.FindByID(ctx, birthID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "birth record not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth record")
	}
	if !policy.CanView(actor, policy.Scope{OfficeID: birth.OfficeID, Region: birth.OfficeRegion}) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	marriages, err := s.marriages.ListBySpouse(ctx, birthID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage records")
	}
	death, err := s.deaths.FindByDeceased(ctx, birthID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death record")
	}

	doc := citizenReportXML{
		Generated: s.now().Format(xmlTimestampFormat),
		Birth: citizenBirthXML{
			CertificateNo:      birth.CertificateNo,
			FirstName:          birth.ChildFirstName,
			MiddleName:         birth.ChildMiddleName,
			LastName:           birth.ChildLastName,
			Gender:             string(birth.Gender),
			DateOfBirth:        birth.DateOfBirth.Format(xmlDateFormat),
			PlaceOfBirth:       birth.PlaceOfBirth,
			Nationality:        birth.Nationality,
			FatherName:         birth.FatherName,
			MotherName:         birth.MotherName,
			RegistrationOffice: birth.OfficeName,
			Region:             birth.OfficeRegion,
			RegistrationDate:   birth.RegistrationDate.Format(xmlDateFormat),
		},
	}
	if len(marriages) > 0 {
		wrapped := citizenMarriagesXML{Marriages: make([]citizenMarriageXML, 0, len(marriages))}
		for _, m := range marriages {
			wrapped.Marriages = append(wrapped.Marriages, citizenMarriageXML{
				CertificateNo:      m.CertificateNo,
				DateOfMarriage:     m.DateOfMarriage.Format(xmlDateFormat),
				PlaceOfMarriage:    m.PlaceOfMarriage,
				GroomID:            m.GroomID,
				BrideID:            m.BrideID,
				RegistrationOffice: m.OfficeName,
				Status:             string(m.Status),
			})
		}
		doc.Marriages = &wrapped
	}
	if death != nil {
		doc.Death = &citizenDeathXML{
			CertificateNo:      death.CertificateNo,
			DateOfDeath:        death.DateOfDeath.Format(xmlDateFormat),
			PlaceOfDeath:       death.PlaceOfDeath,
			CauseOfDeath:       death.CauseOfDeath,
			RegistrationOffice: death.OfficeName,
		}
	}

	payload, err := renderXML(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, fmt.Sprintf("citizen_report_%s.xml", birthID), nil
}

// RegionalStatistics renders per-status counts, monthly birth trends and the
// office directory for one region and year. Year 0 means the current year.
func (s *XMLReportService) RegionalStatistics(ctx context.Context, actor policy.Actor, region string, year int) ([]byte, string, error) {
	if !policy.CanViewAny(actor) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if year == 0 {
		year = s.now().Year()
	}
	exists, err := s.offices.RegionExists(ctx, region)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check region")
	}
	if !exists {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "region not found")
	}

	birthCounts, err := s.stats.StatusCountsByRegion(ctx, models.RecordTypeBirth, region, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate birth statistics")
	}
	marriageCounts, err := s.stats.StatusCountsByRegion(ctx, models.RecordTypeMarriage, region, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate marriage statistics")
	}
	deathCounts, err := s.stats.StatusCountsByRegion(ctx, models.RecordTypeDeath, region, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate death statistics")
	}
	months, err := s.stats.MonthlyBirthCounts(ctx, region, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate monthly trends")
	}
	offices, err := s.offices.ListByRegion(ctx, region)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offices")
	}

	doc := regionalStatisticsXML{
		Region:    region,
		Year:      year,
		Generated: s.now().Format(xmlTimestampFormat),
		Summary: regionalSummaryXML{
			TotalBirths:    sumStatusCounts(birthCounts),
			TotalMarriages: sumStatusCounts(marriageCounts),
			TotalDeaths:    sumStatusCounts(deathCounts),
			TotalOffices:   len(offices),
		},
		BirthStatistics:    toStatusCountsXML(birthCounts),
		MarriageStatistics: toStatusCountsXML(marriageCounts),
		DeathStatistics:    toStatusCountsXML(deathCounts),
	}
	for _, m := range months {
		doc.MonthlyTrends = append(doc.MonthlyTrends, monthTrendXML{Number: m.Month, Births: m.Count})
	}
	for _, o := range offices {
		doc.Offices = append(doc.Offices, regionalOfficeXML{
			ID:           o.ID,
			Name:         o.OfficeName,
			District:     o.District,
			ContactEmail: o.ContactEmail,
			ContactPhone: o.ContactPhone,
		})
	}

	payload, err := renderXML(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, fmt.Sprintf("regional_statistics_%s_%d.xml", region, year), nil
}

// MonthlyReport renders every record registered in one calendar month.
func (s *XMLReportService) MonthlyReport(ctx context.Context, actor policy.Actor, year, month int) ([]byte, string, error) {
	if !policy.CanViewAny(actor) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if month < 1 || month > 12 {
		return nil, "", appErrors.Fielded(appErrors.ErrValidation, "month", "month must be between 1 and 12")
	}

	births, marriages, deaths, err := s.stats.MonthlyRecords(ctx, year, month)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly records")
	}

	doc := monthlyReportXML{
		Year:      year,
		Month:     month,
		Generated: s.now().Format(xmlTimestampFormat),
		Summary: monthlySummaryXML{
			TotalBirths:    len(births),
			TotalMarriages: len(marriages),
			TotalDeaths:    len(deaths),
		},
	}
	for _, b := range births {
		doc.Births = append(doc.Births, monthlyBirthXML{
			CertificateNo: b.CertificateNo,
			ChildName:     b.ChildName(),
			Gender:        string(b.Gender),
			DateOfBirth:   b.DateOfBirth.Format(xmlDateFormat),
			Office:        b.OfficeName,
			Region:        b.OfficeRegion,
			Status:        string(b.Status),
		})
	}
	for _, m := range marriages {
		doc.Marriages = append(doc.Marriages, monthlyMarriageXML{
			CertificateNo:  m.CertificateNo,
			DateOfMarriage: m.DateOfMarriage.Format(xmlDateFormat),
			Office:         m.OfficeName,
			Region:         m.OfficeRegion,
			Status:         string(m.Status),
		})
	}
	for _, d := range deaths {
		doc.Deaths = append(doc.Deaths, monthlyDeathXML{
			CertificateNo: d.CertificateNo,
			DateOfDeath:   d.DateOfDeath.Format(xmlDateFormat),
			Office:        d.OfficeName,
			Region:        d.OfficeRegion,
			Status:        string(d.Status),
		})
	}

	payload, err := renderXML(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, fmt.Sprintf("monthly_report_%d_%d.xml", year, month), nil
}

// VitalStatistics renders the annual submission document. Year 0 means the
// current year; a non-empty region narrows the demographics section only.
func (s *XMLReportService) VitalStatistics(ctx context.Context, actor policy.Actor, year int, region string) ([]byte, string, error) {
	if !policy.CanViewAny(actor) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if year == 0 {
		year = s.now().Year()
	}
	if region != "" {
		exists, err := s.offices.RegionExists(ctx, region)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check region")
		}
		if !exists {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "region not found")
		}
	}

	hasRecords, err := s.stats.HasRecordsForYear(ctx, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check records for year")
	}
	if !hasRecords {
		s.logger.Info("vital statistics export for empty year", zap.Int("year", year))
	}

	birthStats, err := s.stats.BirthsByRegion(ctx, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate birth statistics")
	}
	deathStats, err := s.stats.DeathsByAge(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate death statistics")
	}
	marriageStats, err := s.stats.MarriagesByRegion(ctx, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate marriage statistics")
	}
	demographics, err := s.stats.Demographics(ctx, region)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate demographics")
	}
	completeness, err := s.stats.Completeness(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate registration completeness")
	}
	summary, err := s.stats.AnnualSummary(ctx, year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate annual summary")
	}

	doc := vitalStatisticsXML{
		Year:      year,
		Generated: s.now().Format(xmlTimestampFormat),
		Nation:    "Tanzania",
	}
	if summary != nil {
		doc.AnnualSummary = &annualSummaryXML{
			Year:           summary.Year,
			TotalBirths:    summary.Births,
			TotalDeaths:    summary.Deaths,
			TotalMarriages: summary.Marriages,
			PendingBirths:  summary.PendingBirths,
			RejectedBirths: summary.RejectedBirths,
		}
	}
	for _, st := range birthStats {
		doc.BirthStats = append(doc.BirthStats, birthRegionXML{
			Name:         st.Region,
			Year:         st.RegistrationYear,
			TotalBirths:  st.TotalBirths,
			MaleBirths:   st.MaleBirths,
			FemaleBirths: st.FemaleBirths,
			Status:       string(st.RecordStatus),
		})
	}
	for _, st := range deathStats {
		doc.DeathStats = append(doc.DeathStats, deathAgeGroupXML{
			Range:        st.AgeGroup,
			TotalDeaths:  st.TotalDeaths,
			Region:       st.Region,
			LeadingCause: st.LeadingCause,
		})
	}
	for _, st := range marriageStats {
		doc.MarriageStats = append(doc.MarriageStats, marriageRegionXML{
			Name:           st.Region,
			Year:           st.MarriageYear,
			TotalMarriages: st.TotalMarriages,
			Status:         string(st.RecordStatus),
			Month:          st.MonthRegistered,
		})
	}
	for _, st := range demographics {
		doc.Demographics = append(doc.Demographics, demographicsRegionXML{
			Name:          st.Region,
			TotalCitizens: st.TotalCitizens,
			MaleCount:     st.MaleCount,
			FemaleCount:   st.FemaleCount,
			AverageAge:    st.AverageAge,
			MarriedCount:  st.MarriedCount,
			DeceasedCount: st.DeceasedCount,
		})
	}
	for _, st := range completeness {
		doc.Completeness = append(doc.Completeness, completenessRegionXML{
			Name:                 st.Region,
			TotalRegistrations:   st.TotalRegistrations,
			Completed:            st.Completed,
			Pending:              st.Pending,
			Rejected:             st.Rejected,
			CompletionPercentage: st.CompletionPercentage,
		})
	}

	payload, err := renderXML(doc)
	if err != nil {
		return nil, "", err
	}
	return payload, fmt.Sprintf("vital_statistics_%d.xml", year), nil
}

func renderXML(doc interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return append([]byte(xml.Header), body...), nil
}

func sumStatusCounts(counts []models.StatusCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

func toStatusCountsXML(counts []models.StatusCount) []statusCountXML {
	out := make([]statusCountXML, 0, len(counts))
	for _, c := range counts {
		out = append(out, statusCountXML{Type: string(c.Status), Count: c.Count})
	}
	return out
}
