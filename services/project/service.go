// Package project serves tenant-scoped project data through the
// capability gate. Listings are filtered to the caller's project
// allow-list and budgets are masked for members without the
// finance/view_amounts grant.
package project

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/services"
)

// View is a project as rendered for one caller. Budget carries either
// the formatted amount or the mask placeholder; the raw number never
// leaves the service for callers without the grant.
type View struct {
	ID         uuid.UUID            `json:"id"`
	OrgID      uuid.UUID            `json:"org_id"`
	Name       string               `json:"name"`
	Status     models.ProjectStatus `json:"status"`
	Budget     string               `json:"budget"`
	BudgetNote string               `json:"budget_note,omitempty"`
	Currency   string               `json:"currency"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Service reads and writes projects for one organization at a time
type Service struct {
	projects repositories.ProjectRepository
	logger   *zap.Logger
}

// NewService creates a new project service
func NewService(projects repositories.ProjectRepository, logger *zap.Logger) *Service {
	return &Service{projects: projects, logger: logger}
}

// List returns the caller's visible projects in the organization.
// Projects outside the caller's allow-list are omitted entirely, not
// rendered as denied rows.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, gate *authz.Gate, limit, offset int) ([]*View, error) {
	if !gate.HasPermission(authz.ModuleProjects, authz.ActionView) {
		return nil, services.ErrInsufficientPermissions
	}

	projects, err := s.projects.GetByOrgID(ctx, orgID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("list projects", err)
	}

	views := make([]*View, 0, len(projects))
	for _, p := range projects {
		if !gate.HasProjectAccess(p.ID) {
			continue
		}
		views = append(views, render(p, gate))
	}
	return views, nil
}

// Get returns one project. A project in another organization reads as
// not found rather than leaking its existence.
func (s *Service) Get(ctx context.Context, orgID, projectID uuid.UUID, gate *authz.Gate) (*View, error) {
	if !gate.HasPermission(authz.ModuleProjects, authz.ActionView) {
		return nil, services.ErrInsufficientPermissions
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrProjectNotFound
		}
		return nil, services.WrapInternal("load project", err)
	}
	if p.OrgID != orgID {
		return nil, services.ErrProjectNotFound
	}
	if !gate.HasProjectAccess(p.ID) {
		return nil, services.ErrProjectAccessDenied
	}
	return render(p, gate), nil
}

// Create adds a project to the organization
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, name string, budget float64, currency string, gate *authz.Gate) (*View, error) {
	if !gate.HasPermission(authz.ModuleProjects, authz.ActionCreate) {
		return nil, services.ErrInsufficientPermissions
	}
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid input", nil).WithDetail("field", "name")
	}
	if budget < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid input", nil).WithDetail("field", "budget")
	}

	p := models.NewProject(orgID, name, budget, currency)
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, services.WrapInternal("create project", err)
	}

	s.logger.Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("org_id", orgID.String()))
	return render(p, gate), nil
}

// render applies amount masking for the caller
func render(p *models.Project, gate *authz.Gate) *View {
	v := &View{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Name:      p.Name,
		Status:    p.Status,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if gate.CanViewAmounts() {
		v.Budget = strconv.FormatFloat(p.Budget, 'f', 2, 64)
	} else {
		v.Budget = authz.MaskedAmount
		v.BudgetNote = authz.MaskedAmountNote
	}
	return v
}
