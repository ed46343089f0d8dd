// Package org implements organization and membership management for
// the suite. All writes are transactional and emit audit events.
package org

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/services"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// Auditor records organization lifecycle events. The async audit
// service implements it; a nil Auditor disables auditing.
type Auditor interface {
	LogOrgCreated(org *models.Organization, creatorID uuid.UUID) error
	LogMembershipChange(membership *models.Membership, actorID uuid.UUID, changes map[string]interface{}) error
}

// Service manages organizations and their memberships
type Service struct {
	txMgr       repositories.TransactionManager
	orgs        repositories.OrganizationRepository
	users       repositories.UserRepository
	memberships repositories.MembershipRepository
	auditor     Auditor
	logger      *zap.Logger
}

// NewService creates a new organization service
func NewService(
	txMgr repositories.TransactionManager,
	orgs repositories.OrganizationRepository,
	users repositories.UserRepository,
	memberships repositories.MembershipRepository,
	auditor Auditor,
	logger *zap.Logger,
) *Service {
	return &Service{
		txMgr:       txMgr,
		orgs:        orgs,
		users:       users,
		memberships: memberships,
		auditor:     auditor,
		logger:      logger,
	}
}

// Create provisions a new organization with the creator as its owner.
// The organization row and the owner membership commit together.
func (s *Service) Create(ctx context.Context, name, slug string, creatorID uuid.UUID) (*models.Organization, error) {
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid input", nil).WithDetail("field", "name")
	}
	if v := utils.ValidateSlug(slug); !v.Valid {
		return nil, services.NewDomainError(services.ErrorTypeValidation, v.Err, nil).WithDetail("field", "slug")
	}

	org := models.NewOrganization(name, slug)
	membership := models.NewMembership(org.ID, creatorID, models.RoleOwner)

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.orgs.WithTx(tx).Create(tx.Context(), org); err != nil {
			return err
		}
		return s.memberships.WithTx(tx).Create(tx.Context(), membership)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.NewDomainError(services.ErrorTypeConflict, "slug already exists", nil).WithDetail("slug", slug)
		}
		return nil, services.WrapInternal("create organization", err)
	}

	if s.auditor != nil {
		_ = s.auditor.LogOrgCreated(org, creatorID)
	}
	s.logger.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug))
	return org, nil
}

// GetBySlug loads an organization by its slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "organization not found", nil).WithDetail("slug", slug)
		}
		return nil, services.WrapInternal("load organization", err)
	}
	return org, nil
}

// Rename changes the organization's display name. The slug is
// immutable; it anchors routes and bookmarks.
func (s *Service) Rename(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error) {
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid input", nil).WithDetail("field", "name")
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrOrganizationNotFound
		}
		return nil, services.WrapInternal("load organization", err)
	}

	org.Name = name
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, services.WrapInternal("update organization", err)
	}
	return org, nil
}

// ListMembers returns the organization's memberships with pagination
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	members, err := s.memberships.GetByOrgID(ctx, orgID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("list members", err)
	}
	return members, nil
}

// AddMember adds an existing user to the organization by email
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, email string, role models.MemberRole, actorID uuid.UUID) (*models.Membership, error) {
	if !utils.ValidateEmail(email) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid email format", nil).WithDetail("email", email)
	}
	if !role.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid member role", nil).WithDetail("role", string(role))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "user not found", nil).WithDetail("email", email)
		}
		return nil, services.WrapInternal("load user", err)
	}

	membership := models.NewMembership(orgID, user.ID, role)
	if err := s.memberships.Create(ctx, membership); err != nil {
		if isUniqueViolation(err) {
			return nil, services.ErrDuplicateMembership
		}
		return nil, services.WrapInternal("create membership", err)
	}

	if s.auditor != nil {
		_ = s.auditor.LogMembershipChange(membership, actorID, map[string]interface{}{
			"added": true,
			"role":  string(role),
		})
	}
	return membership, nil
}

// ChangeRole updates a member's role. Demoting the last owner is
// rejected so the organization never loses all owners.
func (s *Service) ChangeRole(ctx context.Context, orgID, membershipID uuid.UUID, role models.MemberRole, actorID uuid.UUID) (*models.Membership, error) {
	if !role.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid member role", nil).WithDetail("role", string(role))
	}

	membership, err := s.loadMembership(ctx, orgID, membershipID)
	if err != nil {
		return nil, err
	}

	if membership.Role == role {
		return membership, nil
	}
	if membership.Role == models.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, membership); err != nil {
			return nil, err
		}
	}

	previous := membership.Role
	membership.Role = role
	if err := s.memberships.Update(ctx, membership); err != nil {
		return nil, services.WrapInternal("update membership", err)
	}

	if s.auditor != nil {
		_ = s.auditor.LogMembershipChange(membership, actorID, map[string]interface{}{
			"role_from": string(previous),
			"role_to":   string(role),
		})
	}
	return membership, nil
}

// SetProjectAccess replaces a member's project allow-list. A nil list
// restores unrestricted access; an empty non-nil list revokes access
// to every project. The two must stay distinct all the way to storage.
func (s *Service) SetProjectAccess(ctx context.Context, orgID, membershipID uuid.UUID, allowed []uuid.UUID, actorID uuid.UUID) (*models.Membership, error) {
	membership, err := s.loadMembership(ctx, orgID, membershipID)
	if err != nil {
		return nil, err
	}

	membership.AllowedProjectIDs = allowed
	if err := s.memberships.Update(ctx, membership); err != nil {
		return nil, services.WrapInternal("update membership", err)
	}

	if s.auditor != nil {
		change := map[string]interface{}{"project_access": "unrestricted"}
		if allowed != nil {
			change["project_access"] = "restricted"
			change["allowed_count"] = len(allowed)
		}
		_ = s.auditor.LogMembershipChange(membership, actorID, change)
	}
	return membership, nil
}

// RemoveMember deletes a membership. The last owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, orgID, membershipID uuid.UUID, actorID uuid.UUID) error {
	membership, err := s.loadMembership(ctx, orgID, membershipID)
	if err != nil {
		return err
	}

	if membership.Role == models.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, membership); err != nil {
			return err
		}
	}

	if err := s.memberships.Delete(ctx, membershipID); err != nil {
		return services.WrapInternal("delete membership", err)
	}

	if s.auditor != nil {
		_ = s.auditor.LogMembershipChange(membership, actorID, map[string]interface{}{
			"removed": true,
		})
	}
	return nil
}

// loadMembership fetches a membership and confirms it belongs to the
// organization. A membership from another tenant reads as not found.
func (s *Service) loadMembership(ctx context.Context, orgID, membershipID uuid.UUID) (*models.Membership, error) {
	membership, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrMembershipNotFound
		}
		return nil, services.WrapInternal("load membership", err)
	}
	if membership.OrgID != orgID {
		return nil, services.ErrMembershipNotFound
	}
	return membership, nil
}

// ensureAnotherOwner fails with ErrLastOwner unless the organization
// has an owner besides the given membership.
func (s *Service) ensureAnotherOwner(ctx context.Context, membership *models.Membership) error {
	owners, err := s.memberships.CountByOrgAndRole(ctx, membership.OrgID, models.RoleOwner)
	if err != nil {
		return services.WrapInternal("count owners", err)
	}
	if owners <= 1 {
		return services.ErrLastOwner
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique
// constraint violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
