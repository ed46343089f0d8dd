package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hashim1213/soluly-business-suite-sub004/app"
	"github.com/hashim1213/soluly-business-suite-sub004/config"
	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/routes"
	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

// rejectAllValidator rejects all tokens for testing (unauthenticated requests get 401)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, assert.AnError
}

// unauthenticatedSource hands every request a ready, signed-out snapshot
type unauthenticatedSource struct{}

func (unauthenticatedSource) Snapshot(*http.Request) *session.Snapshot {
	return &session.Snapshot{Status: session.StatusReady}
}

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	code := m.Run()

	os.Exit(code)
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "info")
		os.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "invalid")
		os.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("LOG_FORMAT")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Auth: config.AuthConfig{
			SignInPath: "/sign-in",
			TokenTTL:   time.Hour,
		},
	}
}

// testDependencies builds the minimal wiring SetupRoutes needs without
// a database or redis behind it.
func testDependencies(t *testing.T) *app.Dependencies {
	t.Helper()

	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	return &app.Dependencies{
		Config:         cfg,
		Logger:         logger,
		AuthMiddleware: middleware.NewAuthMiddleware(&rejectAllValidator{}, logger),
		CSRF:           middleware.NewCSRFMiddleware(logger, nil),
		OrgGuard:       middleware.NewOrgGuard(unauthenticatedSource{}, nil, logger, cfg.Auth.SignInPath),
	}
}

func TestHealthEndpoints(t *testing.T) {
	handler := routes.SetupRoutes(testDependencies(t))
	ts := httptest.NewServer(handler)
	defer ts.Close()

	t.Run("health check returns ok", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&body)
		require.NoError(t, err)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
	})

	t.Run("readiness with no backing stores configured", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouteProtection(t *testing.T) {
	handler := routes.SetupRoutes(testDependencies(t))
	ts := httptest.NewServer(handler)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Run("authenticated routes answer 401 without a token", func(t *testing.T) {
		testCases := []struct {
			name   string
			method string
			path   string
		}{
			{"switch org", "POST", "/api/session/switch-org"},
			{"create org", "POST", "/api/orgs"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader("{}"))
				require.NoError(t, err)
				req.Header.Set("Content-Type", "application/json")

				resp, err := client.Do(req)
				require.NoError(t, err)
				defer resp.Body.Close()

				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		}
	})

	t.Run("org routes redirect a signed-out caller to sign-in", func(t *testing.T) {
		for _, path := range []string{
			"/org/acme/settings",
			"/org/acme/members",
			"/org/acme/projects",
			"/org/acme/projects/9d2f1c7e-0000-0000-0000-000000000001",
		} {
			t.Run(path, func(t *testing.T) {
				resp, err := client.Get(ts.URL + path)
				require.NoError(t, err)
				defer resp.Body.Close()

				assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
				assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
			})
		}
	})

	t.Run("sign-in without a csrf token answers 403", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/auth/sign-in", "application/json",
			strings.NewReader(`{"email":"ada@example.com","org_slug":"acme"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Invalid CSRF token", body["message"])
	})

	t.Run("unknown endpoint answers 404", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/unknown")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
