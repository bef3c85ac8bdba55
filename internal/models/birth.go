package models

import "time"

// Gender is the registered gender on a birth record.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// BirthRecord is the authoritative record of a registered birth.
type BirthRecord struct {
	ID               string       `db:"id" json:"id"`
	CertificateNo    string       `db:"certificate_no" json:"certificate_no"`
	DateOfBirth      time.Time    `db:"date_of_birth" json:"date_of_birth"`
	PlaceOfBirth     string       `db:"place_of_birth" json:"place_of_birth"`
	ChildFirstName   string       `db:"child_first_name" json:"child_first_name"`
	ChildMiddleName  string       `db:"child_middle_name" json:"child_middle_name"`
	ChildLastName    string       `db:"child_last_name" json:"child_last_name"`
	Gender           Gender       `db:"gender" json:"gender"`
	FatherName       string       `db:"father_name" json:"father_name"`
	MotherName       string       `db:"mother_name" json:"mother_name"`
	Nationality      string       `db:"nationality" json:"nationality"`
	OfficeID         string       `db:"registration_office_id" json:"registration_office_id"`
	RegistrationDate time.Time    `db:"registration_date" json:"registration_date"`
	Status           RecordStatus `db:"status" json:"status"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// ChildName returns the child's display name used in audit descriptions.
func (b BirthRecord) ChildName() string {
	if b.ChildLastName == "" {
		return b.ChildFirstName
	}
	return b.ChildFirstName + " " + b.ChildLastName
}

// BirthRecordDetail joins the owning office onto the record for read paths.
type BirthRecordDetail struct {
	BirthRecord
	OfficeName   string `db:"office_name" json:"office_name"`
	OfficeRegion string `db:"office_region" json:"office_region"`
}

// BirthFilter captures filtering criteria for listing birth records.
type BirthFilter struct {
	OfficeID string
	Region   string
	Status   *RecordStatus
	Year     int
	Search   string
	Page     int
	PageSize int
}
