package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusOnHold   ProjectStatus = "on_hold"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project is a tenant-scoped project record. Budget is the monetary
// field subject to amount masking for members without the
// finance/view_amounts grant.
type Project struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	OrgID     uuid.UUID     `json:"org_id" db:"org_id"`
	Name      string        `json:"name" db:"name"`
	Status    ProjectStatus `json:"status" db:"status"`
	Budget    float64       `json:"budget" db:"budget"`
	Currency  string        `json:"currency" db:"currency"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// NewProject creates a new active Project
func NewProject(orgID uuid.UUID, name string, budget float64, currency string) *Project {
	now := time.Now()
	return &Project{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		Status:    ProjectStatusActive,
		Budget:    budget,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
