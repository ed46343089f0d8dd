package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

// stubSnapshotSource returns a fixed snapshot for every request
type stubSnapshotSource struct {
	snap *session.Snapshot
}

func (s *stubSnapshotSource) Snapshot(_ *http.Request) *session.Snapshot {
	return s.snap
}

func authenticatedSnapshot(slug string, matrix authz.Matrix) *session.Snapshot {
	orgID := uuid.New()
	user := models.NewUser("user@example.com", "User Example")
	membership := models.NewMembership(orgID, user.ID, models.RoleMember)
	return &session.Snapshot{
		Status:     session.StatusReady,
		Identity:   user,
		Tenant:     &session.Tenant{ID: orgID, Slug: slug},
		Membership: membership,
		Matrix:     matrix,
	}
}

// orgRouter mounts the guard the way the real route table does
func orgRouter(g *OrgGuard, next http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Route("/org/{slug}", func(r chi.Router) {
		r.Use(g.RequireOrg)
		r.Get("/projects", next)
		r.Get("/", next)
	})
	return r
}

func TestRequireOrg(t *testing.T) {
	logger := zap.NewNop()
	viewMatrix := authz.Matrix{authz.ModuleProjects: {authz.ActionView: true}}

	t.Run("loading session returns 503 with Retry-After", func(t *testing.T) {
		source := &stubSnapshotSource{snap: &session.Snapshot{Status: session.StatusLoading}}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/org/acme/projects", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "retryable")
	})

	t.Run("error session returns 503 with retry affordance", func(t *testing.T) {
		source := &stubSnapshotSource{snap: &session.Snapshot{
			Status: session.StatusError,
			Error:  "backend unreachable",
		}}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/org/acme/projects", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "backend unreachable")
		assert.Contains(t, w.Body.String(), "retryable")
	})

	t.Run("unauthenticated session redirects to sign-in with 303", func(t *testing.T) {
		source := &stubSnapshotSource{snap: &session.Snapshot{Status: session.StatusReady}}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/org/acme/projects", nil))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	})

	t.Run("matching claim allows and sets org context", func(t *testing.T) {
		snap := authenticatedSnapshot("acme", viewMatrix)
		source := &stubSnapshotSource{snap: snap}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		called := false
		w := httptest.NewRecorder()
		orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
			called = true
			org := GetOrgFromContext(r.Context())
			require.NotNil(t, org)
			assert.Equal(t, "acme", org.Slug)
			assert.Equal(t, snap.Tenant.ID, org.ID)

			claims := GetClaimsFromContext(r.Context())
			require.NotNil(t, claims)
			assert.Equal(t, snap.Identity.ID, claims.Sub)
			assert.Equal(t, "user@example.com", claims.Email)
			assert.Equal(t, "acme", claims.OrgSlug)
			w.WriteHeader(http.StatusOK)
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/org/acme/projects", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("foreign claim redirects to session slug with 307", func(t *testing.T) {
		auditor := &recordingAuditor{}
		snap := authenticatedSnapshot("acme", viewMatrix)
		source := &stubSnapshotSource{snap: snap}
		g := NewOrgGuard(source, auditor, logger, "/sign-in")

		w := httptest.NewRecorder()
		orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/org/globex/projects", nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/org/acme/projects", w.Header().Get("Location"))
		assert.Equal(t, []models.AuditAction{models.AuditActionTenantRedirect}, auditor.actions())
	})

	t.Run("foreign claim never renders foreign content", func(t *testing.T) {
		snap := authenticatedSnapshot("acme", viewMatrix)
		source := &stubSnapshotSource{snap: snap}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		for _, path := range []string{
			"/org/globex/projects",
			"/org/initech/projects",
			"/org/acme-corp/projects",
		} {
			w := httptest.NewRecorder()
			orgRouter(g, func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("handler should not be called for %s", path)
			}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusTemporaryRedirect, w.Code, path)
			assert.Equal(t, "/org/acme/projects", w.Header().Get("Location"), path)
		}
	})
}

func TestRequirePermission(t *testing.T) {
	logger := zap.NewNop()

	route := func(g *OrgGuard, module authz.Module, action authz.Action, next http.HandlerFunc) http.Handler {
		r := chi.NewRouter()
		r.With(g.RequirePermission(module, action)).Get("/settings", next)
		return r
	}

	t.Run("explicit grant allows", func(t *testing.T) {
		snap := authenticatedSnapshot("acme", authz.Matrix{
			authz.ModuleSettings: {authz.ActionManageOrg: true},
		})
		g := NewOrgGuard(&stubSnapshotSource{snap: snap}, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		route(g, authz.ModuleSettings, authz.ActionManageOrg, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing grant denies with 403 and audit entry", func(t *testing.T) {
		auditor := &recordingAuditor{}
		snap := authenticatedSnapshot("acme", authz.Matrix{
			authz.ModuleSettings: {authz.ActionView: true},
		})
		g := NewOrgGuard(&stubSnapshotSource{snap: snap}, auditor, logger, "/sign-in")

		w := httptest.NewRecorder()
		route(g, authz.ModuleSettings, authz.ActionManageOrg, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, []models.AuditAction{models.AuditActionPermissionDenied}, auditor.actions())
	})

	t.Run("loading session denies", func(t *testing.T) {
		source := &stubSnapshotSource{snap: &session.Snapshot{Status: session.StatusLoading}}
		g := NewOrgGuard(source, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		route(g, authz.ModuleProjects, authz.ActionView, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unauthenticated session denies", func(t *testing.T) {
		source := &stubSnapshotSource{snap: &session.Snapshot{Status: session.StatusReady}}
		g := NewOrgGuard(&stubSnapshotSource{snap: source.snap}, nil, logger, "/sign-in")

		w := httptest.NewRecorder()
		route(g, authz.ModuleProjects, authz.ActionView, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
