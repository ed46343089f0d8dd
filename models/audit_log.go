package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of authorization event being audited
type AuditAction string

const (
	AuditActionSignIn           AuditAction = "sign_in"
	AuditActionSignOut          AuditAction = "sign_out"
	AuditActionSessionError     AuditAction = "session_error"
	AuditActionCSRFRejected     AuditAction = "csrf_rejected"
	AuditActionPermissionDenied AuditAction = "permission_denied"
	AuditActionTenantRedirect   AuditAction = "tenant_redirect"
	AuditActionOrgCreated       AuditAction = "org_created"
	AuditActionMembershipChange AuditAction = "membership_change"
)

// AuditLog is one entry in the authorization audit trail
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrgID        *uuid.UUID      `json:"org_id,omitempty" db:"org_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // org, membership, route, request
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithOrg sets the organization ID
func (a *AuditLog) WithOrg(orgID uuid.UUID) *AuditLog {
	a.OrgID = &orgID
	return a
}

// WithUser sets the user ID
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
