package models

import "time"

// AuditAction is the mutation kind recorded in the audit trail.
type AuditAction string

const (
	AuditActionCreated         AuditAction = "created"
	AuditActionUpdated         AuditAction = "updated"
	AuditActionDeleted         AuditAction = "deleted"
	AuditActionLogin           AuditAction = "login"
	AuditActionLogout          AuditAction = "logout"
	AuditActionPasswordChanged AuditAction = "password_changed"
	AuditActionApproved        AuditAction = "approved"
	AuditActionRevoked         AuditAction = "revoked"
)

// AuditLog is one immutable audit trail entry. Rows are append-only; the
// application never updates or deletes them.
type AuditLog struct {
	ID          string      `db:"id" json:"id"`
	UserID      *string     `db:"user_id" json:"user_id,omitempty"`
	Action      AuditAction `db:"action" json:"action"`
	Module      string      `db:"module" json:"module"`
	Description string      `db:"description" json:"description"`
	Changes     string      `db:"changes" json:"changes"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// AuditFilter captures filtering criteria for browsing the audit trail.
type AuditFilter struct {
	Module   string
	Action   *AuditAction
	UserID   string
	Page     int
	PageSize int
}
