// Package session resolves request credentials into session snapshots.
// It is the server-side collaborator behind the session state machine:
// identity, tenant, membership and permission matrix are loaded in one
// pass so a snapshot never mixes data from two tenants.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authn"
	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

// TokenValidator validates a bearer token into parsed claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*authn.ParsedClaims, error)
}

// Service resolves tokens into session snapshots. It implements both
// session.Resolver (for the session provider state machine) and the
// guard middleware's SnapshotSource.
type Service struct {
	validator   TokenValidator
	users       repositories.UserRepository
	orgs        repositories.OrganizationRepository
	memberships repositories.MembershipRepository
	cache       *SnapshotCache
	logger      *zap.Logger
}

// NewService creates a new session resolution service. cache may be
// nil, in which case every snapshot is resolved from the store.
func NewService(
	validator TokenValidator,
	users repositories.UserRepository,
	orgs repositories.OrganizationRepository,
	memberships repositories.MembershipRepository,
	cache *SnapshotCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		validator:   validator,
		users:       users,
		orgs:        orgs,
		memberships: memberships,
		cache:       cache,
		logger:      logger,
	}
}

// Resolve implements session.Resolver. An invalid or expired token is
// an unauthenticated outcome, not an error; only store failures make
// the session unresolvable. orgSlug overrides the token's tenant claim
// when set (tenant switch).
func (s *Service) Resolve(ctx context.Context, token, orgSlug string) (*session.Resolution, error) {
	if token == "" {
		return &session.Resolution{}, nil
	}

	claims, err := s.validator.ValidateToken(ctx, token)
	if err != nil {
		if errors.Is(err, authn.ErrInvalidToken) ||
			errors.Is(err, authn.ErrTokenExpired) ||
			errors.Is(err, authn.ErrInvalidIssuer) {
			s.logger.Debug("token rejected during resolution", zap.Error(err))
			return &session.Resolution{}, nil
		}
		return nil, fmt.Errorf("validate token: %w", err)
	}

	user, err := s.users.GetByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	slug := claims.OrgSlug
	if orgSlug != "" {
		slug = orgSlug
	}
	if slug == "" {
		// Token carries no tenant; the session cannot scope to an org.
		return nil, fmt.Errorf("token for user %s carries no organization", user.ID)
	}

	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load organization %q: %w", slug, err)
	}

	membership, err := s.memberships.GetByOrgAndUser(ctx, org.ID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}

	return &session.Resolution{
		Identity:   user,
		Tenant:     &session.Tenant{ID: org.ID, Slug: org.Slug},
		Membership: membership,
		Matrix:     authz.MatrixForRole(membership.Role),
	}, nil
}

// Snapshot implements the guard middleware's SnapshotSource. The
// request's credentials are resolved into a ready or error snapshot;
// the loading state belongs to the client-held session, the server
// always answers with a terminal one.
func (s *Service) Snapshot(r *http.Request) *session.Snapshot {
	ctx := r.Context()
	token := middleware.ExtractToken(r)
	if token == "" {
		return &session.Snapshot{Status: session.StatusReady}
	}

	if s.cache != nil {
		if snap, ok := s.cache.Get(ctx, token); ok {
			return snap
		}
	}

	resolution, err := s.Resolve(ctx, token, "")
	if err != nil {
		s.logger.Warn("session resolution failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		return &session.Snapshot{Status: session.StatusError, Error: err.Error()}
	}

	snap, ok := session.SnapshotFromResolution(resolution)
	if !ok {
		snap = &session.Snapshot{Status: session.StatusError, Error: "session state is inconsistent"}
	}
	if s.cache != nil && snap.Authenticated() {
		s.cache.Put(ctx, token, snap)
	}
	return snap
}

// Invalidate drops any cached snapshot for the token. Called on
// sign-out and tenant switch so the next request re-resolves.
func (s *Service) Invalidate(ctx context.Context, token string) {
	if s.cache != nil {
		s.cache.Delete(ctx, token)
	}
}

