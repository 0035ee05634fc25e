package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robertrullyp/drsis-finance/pkg/actor"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "drsis", ExpirationMinutes: 30},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testRouterConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(cfg, logg, nil, nil, nil, Services{})
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-DRSIS-Env"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{
		"/api/v1/invoices",
		"/api/v1/accounts",
		"/api/v1/transactions",
		"/api/v1/budgets/report",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestApprovalRoutesRequireElevatedRole(t *testing.T) {
	router := testRouter(t)
	cfg := testRouterConfig()

	token, err := actor.Mint(cfg.JWT, time.Now(), "kasir-01", enums.ActorRoleCashier)
	require.NoError(t, err)

	for _, path := range []string{
		"/api/v1/transactions/2e9dd3f0-54d5-4f37-a55c-2f3bb4a2dd40/approve",
		"/api/v1/transactions/2e9dd3f0-54d5-4f37-a55c-2f3bb4a2dd40/reject",
		"/api/v1/period-locks",
		"/api/v1/invoices/2e9dd3f0-54d5-4f37-a55c-2f3bb4a2dd40/void",
	} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
