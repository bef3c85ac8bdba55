package models

import "time"

// DeathRecord registers the death of a person identified by a birth record.
type DeathRecord struct {
	ID                string       `db:"id" json:"id"`
	CertificateNo     string       `db:"certificate_no" json:"certificate_no"`
	DeceasedBirthID   string       `db:"deceased_birth_id" json:"deceased_birth_id"`
	InformantBirthID  *string      `db:"informant_birth_id" json:"informant_birth_id,omitempty"`
	DateOfDeath       time.Time    `db:"date_of_death" json:"date_of_death"`
	PlaceOfDeath      string       `db:"place_of_death" json:"place_of_death"`
	CauseOfDeath      string       `db:"cause_of_death" json:"cause_of_death"`
	InformantName     string       `db:"informant_name" json:"informant_name"`
	InformantRelation string       `db:"informant_relation" json:"informant_relation"`
	OfficeID          string       `db:"registration_office_id" json:"registration_office_id"`
	RegistrationDate  time.Time    `db:"registration_date" json:"registration_date"`
	Status            RecordStatus `db:"status" json:"status"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// DeathRecordDetail joins the deceased's name and the office for read paths.
type DeathRecordDetail struct {
	DeathRecord
	DeceasedName string `db:"deceased_name" json:"deceased_name"`
	OfficeName   string `db:"office_name" json:"office_name"`
	OfficeRegion string `db:"office_region" json:"office_region"`
}

// DeathFilter captures filtering criteria for listing death records.
type DeathFilter struct {
	OfficeID string
	Region   string
	Status   *RecordStatus
	Year     int
	Page     int
	PageSize int
}
