package domain

import "time"

// AuditKind identifies a security-relevant event.
type AuditKind string

const (
	AuditRegistered      AuditKind = "registered"
	AuditLoginSucceeded  AuditKind = "login_succeeded"
	AuditLoginFailed     AuditKind = "login_failed"
	AuditTokenRefreshed  AuditKind = "token_refreshed"
	AuditRefreshRejected AuditKind = "refresh_rejected"
	AuditAccessDenied    AuditKind = "access_denied"
)

// AuditEvent records who did what and why it was allowed or refused.
type AuditEvent struct {
	Kind       AuditKind
	Username   string
	Resource   string // optional, e.g. "project:<id>"
	Reason     string // optional
	OccurredAt time.Time
}
