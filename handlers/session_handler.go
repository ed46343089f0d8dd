package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// SessionResolver resolves credentials into session state
type SessionResolver interface {
	Resolve(ctx context.Context, token, orgSlug string) (*session.Resolution, error)
	Snapshot(r *http.Request) *session.Snapshot
	Invalidate(ctx context.Context, token string)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	IssueToken(sub uuid.UUID, email, name, orgSlug string, ttl time.Duration) (string, error)
}

// SessionAuditor records sign-in and sign-out events
type SessionAuditor interface {
	LogSignIn(userID, orgID uuid.UUID, requestID, ipAddress, userAgent string) error
	LogSignOut(userID, orgID uuid.UUID, requestID string) error
}

// SessionHandler serves session state and the sign-in, sign-out and
// tenant-switch endpoints.
type SessionHandler struct {
	sessions      SessionResolver
	issuer        TokenIssuer
	users         repositories.UserRepository
	auditor       SessionAuditor
	tokenTTL      time.Duration
	secureCookies bool
	logger        *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. auditor may be nil.
func NewSessionHandler(
	sessions SessionResolver,
	issuer TokenIssuer,
	users repositories.UserRepository,
	auditor SessionAuditor,
	tokenTTL time.Duration,
	secureCookies bool,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		issuer:        issuer,
		users:         users,
		auditor:       auditor,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleState handles GET /api/session. It always answers 200 with a
// terminal snapshot; an unauthenticated caller gets a ready snapshot
// with no identity, a resolution failure gets status=error.
func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot(r)
	_ = utils.WriteOK(w, snap)
}

type signInRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OrgSlug string `json:"org_slug" validate:"required,max=50"`
}

type signInResponse struct {
	Token   string            `json:"token"`
	Session *session.Snapshot `json:"session"`
}

// HandleSignIn handles POST /api/auth/sign-in. Unknown emails and
// missing memberships both answer with the same 401 so the endpoint
// does not reveal which accounts exist.
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = utils.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		h.logger.Error("sign-in user lookup failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Sign-in failed")
		return
	}

	token, err := h.issuer.IssueToken(user.ID, user.Email, user.Name, req.OrgSlug, h.tokenTTL)
	if err != nil {
		h.logger.Error("token issuance failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Sign-in failed")
		return
	}

	resolution, err := h.sessions.Resolve(ctx, token, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No membership in the requested org. Same answer as an
			// unknown email.
			_ = utils.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		h.logger.Error("sign-in resolution failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Sign-in failed")
		return
	}
	snap, ok := session.SnapshotFromResolution(resolution)
	if !ok || !snap.Authenticated() {
		_ = utils.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	h.setSessionCookie(w, token, h.tokenTTL)
	if h.auditor != nil {
		_ = h.auditor.LogSignIn(user.ID, snap.Tenant.ID,
			middleware.GetRequestIDFromContext(ctx), requestIP(r), r.UserAgent())
	}
	_ = utils.WriteOK(w, signInResponse{Token: token, Session: snap})
}

// HandleSignOut handles POST /api/auth/sign-out. Signing out with no
// session is a no-op, not an error.
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := middleware.ExtractToken(r)
	if token != "" {
		snap := h.sessions.Snapshot(r)
		h.sessions.Invalidate(ctx, token)
		if h.auditor != nil && snap.Authenticated() {
			_ = h.auditor.LogSignOut(snap.Identity.ID, snap.Tenant.ID,
				middleware.GetRequestIDFromContext(ctx))
		}
	}
	h.clearSessionCookie(w)
	utils.WriteNoContent(w)
}

type switchOrgRequest struct {
	OrgSlug string `json:"org_slug" validate:"required,max=50"`
}

// HandleSwitchOrg handles POST /api/session/switch-org. The new
// tenant's identity, membership and matrix land in one response and
// one reissued token; the old cached snapshot is dropped so no request
// observes a half-switched session.
func (h *SessionHandler) HandleSwitchOrg(w http.ResponseWriter, r *http.Request) {
	var req switchOrgRequest
	if err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx := r.Context()
	token := middleware.ExtractToken(r)
	if token == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	resolution, err := h.sessions.Resolve(ctx, token, req.OrgSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = utils.WriteForbidden(w, "No membership in the requested organization")
			return
		}
		h.logger.Error("tenant switch resolution failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Organization switch failed")
		return
	}
	snap, ok := session.SnapshotFromResolution(resolution)
	if !ok || !snap.Authenticated() {
		_ = utils.WriteUnauthorized(w, "Invalid or expired token")
		return
	}

	newToken, err := h.issuer.IssueToken(snap.Identity.ID, snap.Identity.Email, snap.Identity.Name, req.OrgSlug, h.tokenTTL)
	if err != nil {
		h.logger.Error("token reissue failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Organization switch failed")
		return
	}

	h.sessions.Invalidate(ctx, token)
	h.setSessionCookie(w, newToken, h.tokenTTL)
	_ = utils.WriteOK(w, signInResponse{Token: newToken, Session: snap})
}

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *SessionHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestIP extracts the client address without the port
func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
