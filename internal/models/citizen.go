package models

import "time"

// Citizen is one denormalized row in the read-side citizens projection. It is
// rebuilt wholesale from birth, marriage and death records and is never
// authoritative.
type Citizen struct {
	ID                    string       `db:"id" json:"id"`
	BirthRecordID         string       `db:"birth_record_id" json:"birth_record_id"`
	FirstName             string       `db:"first_name" json:"first_name"`
	MiddleName            string       `db:"middle_name" json:"middle_name"`
	LastName              string       `db:"last_name" json:"last_name"`
	Gender                Gender       `db:"gender" json:"gender"`
	DateOfBirth           time.Time    `db:"date_of_birth" json:"date_of_birth"`
	BirthCertificateNo    string       `db:"birth_certificate_no" json:"birth_certificate_no"`
	PlaceOfBirth          string       `db:"place_of_birth" json:"place_of_birth"`
	BirthRegistrationDate time.Time    `db:"birth_registration_date" json:"birth_registration_date"`
	FatherName            string       `db:"father_name" json:"father_name"`
	MotherName            string       `db:"mother_name" json:"mother_name"`
	Nationality           string       `db:"nationality" json:"nationality"`
	OfficeID              string       `db:"registration_office_id" json:"registration_office_id"`
	Region                string       `db:"region" json:"region"`
	RecordStatus          RecordStatus `db:"record_status" json:"record_status"`
	IsMarried             bool         `db:"is_married" json:"is_married"`
	MarriageRecordID      *string      `db:"marriage_record_id" json:"marriage_record_id,omitempty"`
	MarriageCertificateNo *string      `db:"marriage_certificate_no" json:"marriage_certificate_no,omitempty"`
	MarriageDate          *time.Time   `db:"marriage_date" json:"marriage_date,omitempty"`
	IsDead                bool         `db:"is_dead" json:"is_dead"`
	DeathRecordID         *string      `db:"death_record_id" json:"death_record_id,omitempty"`
	DeathCertificateNo    *string      `db:"death_certificate_no" json:"death_certificate_no,omitempty"`
	DeathDate             *time.Time   `db:"death_date" json:"death_date,omitempty"`
	SyncedAt              time.Time    `db:"synced_at" json:"synced_at"`
}

// CitizenFilter captures filtering criteria for querying the projection.
type CitizenFilter struct {
	Region    string
	Gender    *Gender
	IsMarried *bool
	IsDead    *bool
	Search    string
	Page      int
	PageSize  int
}
