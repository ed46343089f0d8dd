package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/services/project"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// ProjectService defines the interface for project operations
type ProjectService interface {
	List(ctx context.Context, orgID uuid.UUID, gate *authz.Gate, limit, offset int) ([]*project.View, error)
	Get(ctx context.Context, orgID, projectID uuid.UUID, gate *authz.Gate) (*project.View, error)
	Create(ctx context.Context, orgID uuid.UUID, name string, budget float64, currency string, gate *authz.Gate) (*project.View, error)
}

// ProjectHandler serves org-scoped project routes. The capability gate
// is built per request from the caller's snapshot, so listings honor
// the project allow-list and budgets are masked for members without
// the amounts grant.
type ProjectHandler struct {
	projects ProjectService
	source   middleware.SnapshotSource
	logger   *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projects ProjectService, source middleware.SnapshotSource, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, source: source, logger: logger}
}

// HandleList handles GET /org/{slug}/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	gate := authz.NewGate(h.source.Snapshot(r))
	limit, offset := paginationParams(r)

	views, err := h.projects.List(r.Context(), tenant.ID, gate, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, views)
}

// HandleGet handles GET /org/{slug}/projects/{projectID}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid project id", nil)
		return
	}

	gate := authz.NewGate(h.source.Snapshot(r))
	view, err := h.projects.Get(r.Context(), tenant.ID, projectID, gate)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, view)
}

type createProjectRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Budget   float64 `json:"budget" validate:"gte=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
}

// HandleCreate handles POST /org/{slug}/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	var req createProjectRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	gate := authz.NewGate(h.source.Snapshot(r))
	view, err := h.projects.Create(r.Context(), tenant.ID, req.Name, req.Budget, req.Currency, gate)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, view)
}
