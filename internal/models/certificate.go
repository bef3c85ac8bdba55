package models

import "time"

// CertificateStatus is the issuance lifecycle of a certificate copy.
type CertificateStatus string

const (
	CertificateStatusIssued    CertificateStatus = "issued"
	CertificateStatusCancelled CertificateStatus = "cancelled"
	CertificateStatusRenewed   CertificateStatus = "renewed"
)

// Valid reports whether the status is a known issuance state.
func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificateStatusIssued, CertificateStatusCancelled, CertificateStatusRenewed:
		return true
	}
	return false
}

// Certificate is an issued paper certificate referencing a record of any type.
type Certificate struct {
	ID                string            `db:"id" json:"id"`
	RecordID          string            `db:"record_id" json:"record_id"`
	RecordType        RecordType        `db:"record_type" json:"record_type"`
	CertificateNumber string            `db:"certificate_number" json:"certificate_number"`
	IssueDate         time.Time         `db:"issue_date" json:"issue_date"`
	ExpiryDate        *time.Time        `db:"expiry_date" json:"expiry_date,omitempty"`
	IssuedBy          string            `db:"issued_by" json:"issued_by"`
	CopiesIssued      int               `db:"copies_issued" json:"copies_issued"`
	Status            CertificateStatus `db:"status" json:"status"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// Ref returns the tagged reference to the underlying record.
func (c Certificate) Ref() RecordRef {
	return RecordRef{Type: c.RecordType, ID: c.RecordID}
}

// CertificateFilter captures filtering criteria for listing certificates.
type CertificateFilter struct {
	RecordType *RecordType
	Status     *CertificateStatus
	Region     string
	Page       int
	PageSize   int
}
