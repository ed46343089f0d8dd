package models

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole represents the role of a member within an organization
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
	RoleViewer MemberRole = "viewer"
)

// Valid reports whether the role is one of the known roles
func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Membership is a user's role record within one organization.
//
// AllowedProjectIDs narrows project access: nil means unrestricted (the
// default), a non-nil list grants access to exactly the listed projects.
// An empty non-nil list therefore grants access to no project at all.
// That polarity must not be inverted; nil and empty are distinct states.
type Membership struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	OrgID             uuid.UUID   `json:"org_id" db:"org_id"`
	UserID            uuid.UUID   `json:"user_id" db:"user_id"`
	Role              MemberRole  `json:"role" db:"role"`
	AllowedProjectIDs []uuid.UUID `json:"allowed_project_ids,omitempty" db:"allowed_project_ids"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership with unrestricted project access
func NewMembership(orgID, userID uuid.UUID, role MemberRole) *Membership {
	now := time.Now()
	return &Membership{
		ID:        uuid.New(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AllowsProject reports whether the membership grants access to the
// given project. A nil allow-list is unrestricted.
func (m *Membership) AllowsProject(projectID uuid.UUID) bool {
	if m.AllowedProjectIDs == nil {
		return true
	}
	for _, id := range m.AllowedProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// RestrictToProjects replaces the allow-list. Passing nil lifts the
// restriction entirely.
func (m *Membership) RestrictToProjects(projectIDs []uuid.UUID) {
	m.AllowedProjectIDs = projectIDs
	m.UpdatedAt = time.Now()
}
