package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// OrgService defines the interface for organization operations
type OrgService interface {
	Create(ctx context.Context, name, slug string, creatorID uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	Rename(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error)
	ListMembers(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Membership, error)
	AddMember(ctx context.Context, orgID uuid.UUID, email string, role models.MemberRole, actorID uuid.UUID) (*models.Membership, error)
	ChangeRole(ctx context.Context, orgID, membershipID uuid.UUID, role models.MemberRole, actorID uuid.UUID) (*models.Membership, error)
	SetProjectAccess(ctx context.Context, orgID, membershipID uuid.UUID, allowed []uuid.UUID, actorID uuid.UUID) (*models.Membership, error)
	RemoveMember(ctx context.Context, orgID, membershipID, actorID uuid.UUID) error
}

// OrgHandler serves organization settings and membership management.
// Routes mounting it sit behind the org guard, so the request context
// always carries the resolved tenant.
type OrgHandler struct {
	orgs   OrgService
	logger *zap.Logger
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(orgs OrgService, logger *zap.Logger) *OrgHandler {
	return &OrgHandler{orgs: orgs, logger: logger}
}

type createOrgRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Slug string `json:"slug" validate:"required,min=2,max=50"`
}

// HandleCreate handles POST /api/orgs. The caller becomes the owner.
func (h *OrgHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req createOrgRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	created, err := h.orgs.Create(r.Context(), req.Name, req.Slug, claims.Sub)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, created)
}

// HandleGetSettings handles GET /org/{slug}/settings
func (h *OrgHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	loaded, err := h.orgs.GetBySlug(r.Context(), tenant.Slug)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, loaded)
}

type renameOrgRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// HandleRename handles PUT /org/{slug}/settings. Only the display name
// changes; the slug never does.
func (h *OrgHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	var req renameOrgRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	updated, err := h.orgs.Rename(r.Context(), tenant.ID, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, updated)
}

// HandleListMembers handles GET /org/{slug}/members
func (h *OrgHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return
	}

	limit, offset := paginationParams(r)
	members, err := h.orgs.ListMembers(r.Context(), tenant.ID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, members)
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=owner admin member viewer"`
}

// HandleAddMember handles POST /org/{slug}/members
func (h *OrgHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	tenant, claims, ok := orgAndClaims(w, r)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	membership, err := h.orgs.AddMember(r.Context(), tenant.ID, req.Email, models.MemberRole(req.Role), claims.Sub)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, membership)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin member viewer"`
}

// HandleChangeRole handles PATCH /org/{slug}/members/{memberID}
func (h *OrgHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	tenant, claims, ok := orgAndClaims(w, r)
	if !ok {
		return
	}
	memberID, ok := memberIDParam(w, r)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	membership, err := h.orgs.ChangeRole(r.Context(), tenant.ID, memberID, models.MemberRole(req.Role), claims.Sub)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, membership)
}

type projectAccessRequest struct {
	// AllowedProjectIDs null means unrestricted; an empty array grants
	// access to no project. The distinction is part of the contract.
	AllowedProjectIDs []uuid.UUID `json:"allowed_project_ids"`
}

// HandleSetProjectAccess handles PUT /org/{slug}/members/{memberID}/projects
func (h *OrgHandler) HandleSetProjectAccess(w http.ResponseWriter, r *http.Request) {
	tenant, claims, ok := orgAndClaims(w, r)
	if !ok {
		return
	}
	memberID, ok := memberIDParam(w, r)
	if !ok {
		return
	}

	var req projectAccessRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	membership, err := h.orgs.SetProjectAccess(r.Context(), tenant.ID, memberID, req.AllowedProjectIDs, claims.Sub)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, membership)
}

// HandleRemoveMember handles DELETE /org/{slug}/members/{memberID}
func (h *OrgHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	tenant, claims, ok := orgAndClaims(w, r)
	if !ok {
		return
	}
	memberID, ok := memberIDParam(w, r)
	if !ok {
		return
	}

	if err := h.orgs.RemoveMember(r.Context(), tenant.ID, memberID, claims.Sub); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// orgAndClaims pulls the guard-resolved tenant and the caller's claims
// from the request context, answering the error itself when absent.
func orgAndClaims(w http.ResponseWriter, r *http.Request) (*session.Tenant, *middleware.Claims, bool) {
	tenant := middleware.GetOrgFromContext(r.Context())
	if tenant == nil {
		_ = utils.WriteInternalServerError(w, "Organization missing from request")
		return nil, nil, false
	}
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return nil, nil, false
	}
	return tenant, claims, true
}

// memberIDParam parses the {memberID} URL parameter
func memberIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid member id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// paginationParams reads limit and offset query parameters with
// saturating defaults.
func paginationParams(r *http.Request) (int, int) {
	limitMin, limitMax := 1.0, 200.0
	offsetMin := 0.0
	limit := utils.ParseInteger(r.URL.Query().Get("limit"), utils.NumberOptions{
		Min: &limitMin, Max: &limitMax, Default: 50,
	})
	offset := utils.ParseInteger(r.URL.Query().Get("offset"), utils.NumberOptions{
		Min: &offsetMin, Default: 0,
	})
	return limit, offset
}
