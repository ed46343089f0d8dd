package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/guard"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// SnapshotSource yields the session snapshot for a request's
// credentials. Implemented by the session service.
type SnapshotSource interface {
	Snapshot(r *http.Request) *session.Snapshot
}

// AuditRecorder records authorization-relevant events. Implemented by
// the audit service; recording is fire-and-forget from the guard's
// point of view.
type AuditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// OrgGuard enforces the organization claim on /org/{slug} routes. The
// slug in the URL is user-controlled; the session's resolved tenant is
// the only authority on which organization may render.
type OrgGuard struct {
	source     SnapshotSource
	auditor    AuditRecorder
	logger     *zap.Logger
	signInPath string
}

// NewOrgGuard creates a new OrgGuard
func NewOrgGuard(source SnapshotSource, auditor AuditRecorder, logger *zap.Logger, signInPath string) *OrgGuard {
	return &OrgGuard{
		source:     source,
		auditor:    auditor,
		logger:     logger,
		signInPath: signInPath,
	}
}

// RequireOrg is a middleware that maps the route-guard decision onto
// the HTTP surface. Mounted inside a chi /org/{slug} subtree.
func (g *OrgGuard) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)
		claim := chi.URLParam(r, "slug")

		snap := g.source.Snapshot(r)
		decision := guard.Evaluate(snap, claim)

		switch decision.Kind {
		case guard.KindWait:
			w.Header().Set("Retry-After", "1")
			_ = utils.WriteServiceUnavailable(w, "Session is still resolving", map[string]interface{}{
				"retryable": true,
			})

		case guard.KindRetryScreen:
			g.logger.Warn("session in error state",
				zap.String("request_id", requestID),
				zap.String("claim", claim),
				zap.String("session_error", decision.Error))
			_ = utils.WriteServiceUnavailable(w, "Session could not be resolved", map[string]interface{}{
				"retryable":     true,
				"session_error": decision.Error,
			})

		case guard.KindSignIn:
			// 303 so the replay is always a GET; the client replaces
			// history instead of stacking a back-navigation loop.
			http.Redirect(w, r, g.signInPath, http.StatusSeeOther)

		case guard.KindRedirect:
			target := guard.RedirectPath(r.URL.Path, decision.TargetSlug)
			g.logger.Info("tenant claim corrected",
				zap.String("request_id", requestID),
				zap.String("claimed_slug", claim),
				zap.String("session_slug", decision.TargetSlug))
			if g.auditor != nil {
				log := models.NewAuditLog(models.AuditActionTenantRedirect, "organization").
					WithRequest(requestID, clientIP(r), r.UserAgent()).
					WithDetails(map[string]interface{}{
						"claimed_slug": claim,
						"target_path":  target,
					})
				if snap.Identity != nil {
					log = log.WithUser(snap.Identity.ID)
				}
				if snap.Tenant != nil {
					log = log.WithOrg(snap.Tenant.ID)
				}
				g.auditor.Record(ctx, log)
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)

		case guard.KindAllow:
			if snap.Identity != nil && snap.Tenant != nil {
				ctx = WithClaims(ctx, &Claims{
					Sub:     snap.Identity.ID,
					Email:   snap.Identity.Email,
					Name:    snap.Identity.Name,
					OrgSlug: snap.Tenant.Slug,
				})
			}
			if snap.Tenant != nil {
				ctx = WithOrg(ctx, snap.Tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))

		default:
			g.logger.Error("unhandled guard decision",
				zap.String("request_id", requestID),
				zap.String("kind", string(decision.Kind)))
			_ = utils.WriteInternalServerError(w, "Internal server error")
		}
	})
}

// RequirePermission is a middleware that gates a route on a single
// module/action pair. Deny-by-default: anything short of a ready
// session with an explicit grant is a 403.
func (g *OrgGuard) RequirePermission(module authz.Module, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			snap := g.source.Snapshot(r)
			state := snap.AuthzState()
			if !state.Ready || !state.Matrix.Allowed(module, action) {
				g.logger.Warn("permission denied",
					zap.String("request_id", requestID),
					zap.String("module", string(module)),
					zap.String("action", string(action)))
				if g.auditor != nil {
					log := models.NewAuditLog(models.AuditActionPermissionDenied, "route").
						WithRequest(requestID, clientIP(r), r.UserAgent()).
						WithDetails(map[string]interface{}{
							"module": module,
							"action": action,
							"path":   r.URL.Path,
						})
					if snap.Identity != nil {
						log = log.WithUser(snap.Identity.ID)
					}
					if snap.Tenant != nil {
						log = log.WithOrg(snap.Tenant.ID)
					}
					g.auditor.Record(ctx, log)
				}
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr, falling back to the raw
// value when it has none.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
