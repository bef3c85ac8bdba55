package models

import "time"

// OfficeStatus marks whether an office is accepting registrations.
type OfficeStatus string

const (
	OfficeStatusActive   OfficeStatus = "active"
	OfficeStatusInactive OfficeStatus = "inactive"
)

// RegistrationOffice is a physical registration office serving one district.
type RegistrationOffice struct {
	ID           string       `db:"id" json:"id"`
	OfficeName   string       `db:"office_name" json:"office_name"`
	Region       string       `db:"region" json:"region"`
	District     string       `db:"district" json:"district"`
	Location     string       `db:"location" json:"location"`
	Address      string       `db:"address" json:"address"`
	ContactEmail string       `db:"contact_email" json:"contact_email"`
	ContactPhone string       `db:"contact_phone" json:"contact_phone"`
	Status       OfficeStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// OfficeFilter captures filtering criteria for listing offices.
type OfficeFilter struct {
	Region   string
	Status   *OfficeStatus
	Search   string
	Page     int
	PageSize int
}
