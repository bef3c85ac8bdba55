package models

import "time"

// MarriageRecord links two birth records into a registered marriage.
type MarriageRecord struct {
	ID               string       `db:"id" json:"id"`
	CertificateNo    string       `db:"certificate_no" json:"certificate_no"`
	GroomID          string       `db:"groom_id" json:"groom_id"`
	BrideID          string       `db:"bride_id" json:"bride_id"`
	DateOfMarriage   time.Time    `db:"date_of_marriage" json:"date_of_marriage"`
	PlaceOfMarriage  string       `db:"place_of_marriage" json:"place_of_marriage"`
	Witness1Name     string       `db:"witness1_name" json:"witness1_name"`
	Witness2Name     string       `db:"witness2_name" json:"witness2_name"`
	OfficeID         string       `db:"registration_office_id" json:"registration_office_id"`
	RegistrationDate time.Time    `db:"registration_date" json:"registration_date"`
	Status           RecordStatus `db:"status" json:"status"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// MarriageRecordDetail joins spouse names and the office for read paths.
type MarriageRecordDetail struct {
	MarriageRecord
	GroomName    string `db:"groom_name" json:"groom_name"`
	BrideName    string `db:"bride_name" json:"bride_name"`
	OfficeName   string `db:"office_name" json:"office_name"`
	OfficeRegion string `db:"office_region" json:"office_region"`
}

// MarriageFilter captures filtering criteria for listing marriage records.
type MarriageFilter struct {
	OfficeID string
	Region   string
	Status   *RecordStatus
	Year     int
	Page     int
	PageSize int
}
