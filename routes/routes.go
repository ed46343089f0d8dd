package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hashim1213/soluly-business-suite-sub004/app"
	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-csrf-token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var sqlDB *sql.DB
	if deps.DB != nil {
		sqlDB = deps.DB.DB
	}
	healthHandler := handlers.NewHealthHandler(sqlDB, deps.Cache, deps.Logger)
	sessionHandler := handlers.NewSessionHandler(
		deps.Sessions, deps.Validator, deps.Users, deps.Audit,
		deps.Config.Auth.TokenTTL, deps.Config.IsProduction(), deps.Logger)
	orgHandler := handlers.NewOrgHandler(deps.Orgs, deps.Logger)
	projectHandler := handlers.NewProjectHandler(deps.ProjectS, deps.Sessions, deps.Logger)

	// Health check endpoints
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// Session lifecycle. State is public; sign-in carries no session
	// yet, so neither sits behind the auth middleware. All
	// state-changing calls still carry the anti-forgery token.
	r.Get("/api/session", sessionHandler.HandleState)
	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.CSRF.RequireCSRFToken).Post("/sign-in", sessionHandler.HandleSignIn)
		r.With(deps.CSRF.RequireCSRFToken).Post("/sign-out", sessionHandler.HandleSignOut)
	})
	r.With(deps.AuthMiddleware.RequireAuth, deps.CSRF.RequireCSRFToken).
		Post("/api/session/switch-org", sessionHandler.HandleSwitchOrg)

	// Organization creation happens outside any tenant scope
	r.With(deps.AuthMiddleware.RequireAuth, deps.CSRF.RequireCSRFToken).
		Post("/api/orgs", orgHandler.HandleCreate)

	// Tenant-scoped routes. The org guard owns the whole subtree: it
	// resolves the request's credentials itself, sends an
	// unauthenticated caller to the sign-in page, blocks while the
	// session resolves, redirects a mismatched slug and only then lets
	// the request through with the tenant and identity attached. No
	// separate auth middleware here; a 401 ahead of the guard would
	// swallow the sign-in redirect.
	r.Route("/org/{slug}", func(r chi.Router) {
		r.Use(deps.OrgGuard.RequireOrg)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", orgHandler.HandleGetSettings)
			r.With(
				deps.OrgGuard.RequirePermission(authz.ModuleSettings, authz.ActionManageOrg),
				deps.CSRF.RequireCSRFToken,
			).Put("/", orgHandler.HandleRename)
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", orgHandler.HandleListMembers)

			r.Group(func(r chi.Router) {
				r.Use(deps.OrgGuard.RequirePermission(authz.ModuleSettings, authz.ActionManageOrg))
				r.Use(deps.CSRF.RequireCSRFToken)
				r.Post("/", orgHandler.HandleAddMember)
				r.Patch("/{memberID}", orgHandler.HandleChangeRole)
				r.Put("/{memberID}/projects", orgHandler.HandleSetProjectAccess)
				r.Delete("/{memberID}", orgHandler.HandleRemoveMember)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Get("/{projectID}", projectHandler.HandleGet)
			r.With(deps.CSRF.RequireCSRFToken).Post("/", projectHandler.HandleCreate)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
