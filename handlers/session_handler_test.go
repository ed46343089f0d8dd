package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

type MockSessionResolver struct {
	mock.Mock
}

func (m *MockSessionResolver) Resolve(ctx context.Context, token, orgSlug string) (*session.Resolution, error) {
	args := m.Called(ctx, token, orgSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Resolution), args.Error(1)
}

func (m *MockSessionResolver) Snapshot(r *http.Request) *session.Snapshot {
	args := m.Called(r)
	return args.Get(0).(*session.Snapshot)
}

func (m *MockSessionResolver) Invalidate(ctx context.Context, token string) {
	m.Called(ctx, token)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(sub uuid.UUID, email, name, orgSlug string, ttl time.Duration) (string, error) {
	args := m.Called(sub, email, name, orgSlug, ttl)
	return args.String(0), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) WithTx(tx repositories.Transaction) repositories.UserRepository {
	args := m.Called(tx)
	return args.Get(0).(repositories.UserRepository)
}

type MockSessionAuditor struct {
	mock.Mock
}

func (m *MockSessionAuditor) LogSignIn(userID, orgID uuid.UUID, requestID, ipAddress, userAgent string) error {
	args := m.Called(userID, orgID, requestID, ipAddress, userAgent)
	return args.Error(0)
}

func (m *MockSessionAuditor) LogSignOut(userID, orgID uuid.UUID, requestID string) error {
	args := m.Called(userID, orgID, requestID)
	return args.Error(0)
}

type sessionHandlerFixture struct {
	sessions *MockSessionResolver
	issuer   *MockTokenIssuer
	users    *MockUserStore
	auditor  *MockSessionAuditor
	handler  *SessionHandler
}

func newSessionHandlerFixture(t *testing.T) *sessionHandlerFixture {
	t.Helper()

	f := &sessionHandlerFixture{
		sessions: new(MockSessionResolver),
		issuer:   new(MockTokenIssuer),
		users:    new(MockUserStore),
		auditor:  new(MockSessionAuditor),
	}
	f.handler = NewSessionHandler(f.sessions, f.issuer, f.users, f.auditor, time.Hour, false, zap.NewNop())
	return f
}

func authenticatedResolution(t *testing.T, slug string, role models.MemberRole) (*session.Resolution, *session.Snapshot) {
	t.Helper()

	user := models.NewUser("ada@example.com", "Ada Lovelace")
	org := models.NewOrganization("Acme", slug)
	membership := models.NewMembership(org.ID, user.ID, role)

	resolution := &session.Resolution{
		Identity:   user,
		Tenant:     &session.Tenant{ID: org.ID, Slug: org.Slug},
		Membership: membership,
		Matrix:     authz.MatrixForRole(role),
	}
	snap, ok := session.SnapshotFromResolution(resolution)
	require.True(t, ok)
	return resolution, snap
}

func postJSON(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	return nil
}

func TestHandleState(t *testing.T) {
	t.Run("returns the snapshot for the request credentials", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		_, snap := authenticatedResolution(t, "acme", models.RoleAdmin)
		f.sessions.On("Snapshot", mock.Anything).Return(snap)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		w := httptest.NewRecorder()

		f.handler.HandleState(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "ready", data["status"])
		tenant := data["tenant"].(map[string]interface{})
		assert.Equal(t, "acme", tenant["slug"])
	})

	t.Run("unauthenticated caller still gets 200", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		f.sessions.On("Snapshot", mock.Anything).Return(&session.Snapshot{Status: session.StatusReady})

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		w := httptest.NewRecorder()

		f.handler.HandleState(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "ready", data["status"])
		assert.Nil(t, data["identity"])
	})
}

func TestHandleSignIn(t *testing.T) {
	t.Run("issues a token and returns the session", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		resolution, _ := authenticatedResolution(t, "acme", models.RoleOwner)
		user := resolution.Identity

		f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.issuer.On("IssueToken", user.ID, user.Email, user.Name, "acme", time.Hour).
			Return("signed-token", nil)
		f.sessions.On("Resolve", mock.Anything, "signed-token", "").Return(resolution, nil)
		f.auditor.On("LogSignIn", user.ID, resolution.Tenant.ID, mock.Anything, mock.Anything, mock.Anything).
			Return(nil)

		req := postJSON(t, "/api/auth/sign-in", map[string]string{
			"email":    user.Email,
			"org_slug": "acme",
		})
		w := httptest.NewRecorder()

		f.handler.HandleSignIn(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "signed-token", data["token"])

		sess := data["session"].(map[string]interface{})
		assert.Equal(t, "ready", sess["status"])

		cookie := sessionCookie(t, w)
		require.NotNil(t, cookie)
		assert.Equal(t, "signed-token", cookie.Value)
		assert.True(t, cookie.HttpOnly)

		f.auditor.AssertExpectations(t)
	})

	t.Run("unknown email answers 401", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		f.users.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, fmt.Errorf("user not found: ghost@example.com: %w", sql.ErrNoRows))

		req := postJSON(t, "/api/auth/sign-in", map[string]string{
			"email":    "ghost@example.com",
			"org_slug": "acme",
		})
		w := httptest.NewRecorder()

		f.handler.HandleSignIn(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("missing membership answers the same 401 as an unknown email", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		user := models.NewUser("ada@example.com", "Ada Lovelace")

		f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.issuer.On("IssueToken", user.ID, user.Email, user.Name, "globex", time.Hour).
			Return("signed-token", nil)
		f.sessions.On("Resolve", mock.Anything, "signed-token", "").
			Return(nil, fmt.Errorf("load membership: membership not found: %w", sql.ErrNoRows))

		req := postJSON(t, "/api/auth/sign-in", map[string]string{
			"email":    user.Email,
			"org_slug": "globex",
		})
		w := httptest.NewRecorder()

		f.handler.HandleSignIn(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("malformed email is rejected before any lookup", func(t *testing.T) {
		f := newSessionHandlerFixture(t)

		req := postJSON(t, "/api/auth/sign-in", map[string]string{
			"email":    "not-an-email",
			"org_slug": "acme",
		})
		w := httptest.NewRecorder()

		f.handler.HandleSignIn(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		details := body["details"].(map[string]interface{})
		assert.Contains(t, details["Email"], "valid email")
	})

	t.Run("store failure answers 500 without detail", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		f.users.On("GetByEmail", mock.Anything, "ada@example.com").
			Return(nil, fmt.Errorf("pq: connection refused"))

		req := postJSON(t, "/api/auth/sign-in", map[string]string{
			"email":    "ada@example.com",
			"org_slug": "acme",
		})
		w := httptest.NewRecorder()

		f.handler.HandleSignIn(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestHandleSignOut(t *testing.T) {
	t.Run("invalidates the session and clears the cookie", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		_, snap := authenticatedResolution(t, "acme", models.RoleMember)

		f.sessions.On("Snapshot", mock.Anything).Return(snap)
		f.sessions.On("Invalidate", mock.Anything, "signed-token").Return()
		f.auditor.On("LogSignOut", snap.Identity.ID, snap.Tenant.ID, mock.Anything).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
		req.Header.Set("Authorization", "Bearer signed-token")
		w := httptest.NewRecorder()

		f.handler.HandleSignOut(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)

		cookie := sessionCookie(t, w)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)

		f.sessions.AssertExpectations(t)
		f.auditor.AssertExpectations(t)
	})

	t.Run("signing out without a session is a no-op", func(t *testing.T) {
		f := newSessionHandlerFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
		w := httptest.NewRecorder()

		f.handler.HandleSignOut(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.sessions.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})
}

func TestHandleSwitchOrg(t *testing.T) {
	t.Run("reissues the token for the new tenant and drops the old session", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		resolution, _ := authenticatedResolution(t, "globex", models.RoleMember)
		user := resolution.Identity

		f.sessions.On("Resolve", mock.Anything, "old-token", "globex").Return(resolution, nil)
		f.issuer.On("IssueToken", user.ID, user.Email, user.Name, "globex", time.Hour).
			Return("new-token", nil)
		f.sessions.On("Invalidate", mock.Anything, "old-token").Return()

		req := postJSON(t, "/api/session/switch-org", map[string]string{"org_slug": "globex"})
		req.Header.Set("Authorization", "Bearer old-token")
		w := httptest.NewRecorder()

		f.handler.HandleSwitchOrg(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "new-token", data["token"])

		sess := data["session"].(map[string]interface{})
		tenant := sess["tenant"].(map[string]interface{})
		assert.Equal(t, "globex", tenant["slug"])

		cookie := sessionCookie(t, w)
		require.NotNil(t, cookie)
		assert.Equal(t, "new-token", cookie.Value)

		f.sessions.AssertExpectations(t)
	})

	t.Run("no membership in the target org answers 403", func(t *testing.T) {
		f := newSessionHandlerFixture(t)
		f.sessions.On("Resolve", mock.Anything, "old-token", "globex").
			Return(nil, fmt.Errorf("load membership: membership not found: %w", sql.ErrNoRows))

		req := postJSON(t, "/api/session/switch-org", map[string]string{"org_slug": "globex"})
		req.Header.Set("Authorization", "Bearer old-token")
		w := httptest.NewRecorder()

		f.handler.HandleSwitchOrg(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		f.sessions.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("requires a token", func(t *testing.T) {
		f := newSessionHandlerFixture(t)

		req := postJSON(t, "/api/session/switch-org", map[string]string{"org_slug": "globex"})
		w := httptest.NewRecorder()

		f.handler.HandleSwitchOrg(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires a target slug", func(t *testing.T) {
		f := newSessionHandlerFixture(t)

		req := postJSON(t, "/api/session/switch-org", map[string]string{})
		req.Header.Set("Authorization", "Bearer old-token")
		w := httptest.NewRecorder()

		f.handler.HandleSwitchOrg(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
