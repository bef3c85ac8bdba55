package models

// RecordType identifies one of the civil record families.
type RecordType string

const (
	RecordTypeBirth    RecordType = "birth"
	RecordTypeMarriage RecordType = "marriage"
	RecordTypeDeath    RecordType = "death"
)

// Valid reports whether the record type is one of the known families.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeBirth, RecordTypeMarriage, RecordTypeDeath:
		return true
	}
	return false
}

// Prefix returns the certificate number prefix for the record type.
func (t RecordType) Prefix() string {
	switch t {
	case RecordTypeBirth:
		return "BIR"
	case RecordTypeMarriage:
		return "MA"
	case RecordTypeDeath:
		return "DE"
	}
	return ""
}

// Table returns the storage table used in audit log module names.
func (t RecordType) Table() string {
	switch t {
	case RecordTypeBirth:
		return "birth_records"
	case RecordTypeMarriage:
		return "marriage_records"
	case RecordTypeDeath:
		return "death_records"
	}
	return ""
}

// RecordStatus is the registration lifecycle state shared by all record types.
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusRegistered RecordStatus = "registered"
	RecordStatusRejected   RecordStatus = "rejected"
)

// Valid reports whether the status is a known lifecycle state.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStatusPending, RecordStatusRegistered, RecordStatusRejected:
		return true
	}
	return false
}

// RecordRef is a tagged reference to a record of any family. The storage layer
// keeps two plain columns; the application always goes through this type so
// lookups stay exhaustive.
type RecordRef struct {
	Type RecordType `db:"record_type" json:"record_type"`
	ID   string     `db:"record_id" json:"record_id"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
