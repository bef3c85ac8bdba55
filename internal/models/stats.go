package models

import "time"

// BirthRegionStat is one grouped row of birth counts per region, year, status.
type BirthRegionStat struct {
	Region           string       `db:"region" json:"region"`
	RegistrationYear int          `db:"registration_year" json:"registration_year"`
	TotalBirths      int          `db:"total_births" json:"total_births"`
	MaleBirths       int          `db:"male_births" json:"male_births"`
	FemaleBirths     int          `db:"female_births" json:"female_births"`
	RecordStatus     RecordStatus `db:"record_status" json:"record_status"`
}

// DeathAgeStat is one grouped row of death counts per age band and region.
type DeathAgeStat struct {
	AgeGroup     string `db:"age_group" json:"age_group"`
	TotalDeaths  int    `db:"total_deaths" json:"total_deaths"`
	Region       string `db:"region" json:"region"`
	LeadingCause string `db:"leading_cause" json:"leading_cause"`
}

// MarriageRegionStat is one grouped row of marriage counts per region and year.
type MarriageRegionStat struct {
	Region          string       `db:"region" json:"region"`
	MarriageYear    int          `db:"marriage_year" json:"marriage_year"`
	TotalMarriages  int          `db:"total_marriages" json:"total_marriages"`
	RecordStatus    RecordStatus `db:"record_status" json:"record_status"`
	MonthRegistered string       `db:"month_registered" json:"month_registered"`
}

// RegionDemographics summarizes the citizens projection for one region.
type RegionDemographics struct {
	Region        string  `db:"region" json:"region"`
	TotalCitizens int     `db:"total_citizens" json:"total_citizens"`
	MaleCount     int     `db:"male_count" json:"male_count"`
	FemaleCount   int     `db:"female_count" json:"female_count"`
	AverageAge    float64 `db:"average_age" json:"average_age"`
	MarriedCount  int     `db:"married_count" json:"married_count"`
	DeceasedCount int     `db:"deceased_count" json:"deceased_count"`
}

// RegistrationCompleteness reports per-region birth registration progress.
type RegistrationCompleteness struct {
	Region               string  `db:"region" json:"region"`
	TotalRegistrations   int     `db:"total_registrations" json:"total_registrations"`
	Completed            int     `db:"completed" json:"completed"`
	Pending              int     `db:"pending" json:"pending"`
	Rejected             int     `db:"rejected" json:"rejected"`
	CompletionPercentage float64 `db:"completion_percentage" json:"completion_percentage"`
}

// AnnualVitalSummary is the one-row yearly totals report.
type AnnualVitalSummary struct {
	Year           int       `db:"report_year" json:"report_year"`
	Births         int       `db:"births" json:"births"`
	Deaths         int       `db:"deaths" json:"deaths"`
	Marriages      int       `db:"marriages" json:"marriages"`
	PendingBirths  int       `db:"pending_births" json:"pending_births"`
	RejectedBirths int       `db:"rejected_births" json:"rejected_births"`
	GeneratedAt    time.Time `db:"generated_at" json:"generated_at"`
}

// StatusCount is a generic status/count pair used in regional breakdowns.
type StatusCount struct {
	Status RecordStatus `db:"status" json:"status"`
	Count  int          `db:"count" json:"count"`
}

// MonthCount is a month/count pair used in monthly trend breakdowns.
type MonthCount struct {
	Month int `db:"month" json:"month"`
	Count int `db:"count" json:"count"`
}

// DashboardSummary feeds the landing page counters.
type DashboardSummary struct {
	TotalBirths       int `db:"total_births" json:"total_births"`
	TotalMarriages    int `db:"total_marriages" json:"total_marriages"`
	TotalDeaths       int `db:"total_deaths" json:"total_deaths"`
	TotalCertificates int `db:"total_certificates" json:"total_certificates"`
	PendingBirths     int `db:"pending_births" json:"pending_births"`
	PendingMarriages  int `db:"pending_marriages" json:"pending_marriages"`
	PendingDeaths     int `db:"pending_deaths" json:"pending_deaths"`
	TotalCitizens     int `db:"total_citizens" json:"total_citizens"`
}
