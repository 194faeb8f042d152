package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersys/coffer/internal/modules/layout"
	testutil "github.com/coffersys/coffer/internal/testing"
	"github.com/coffersys/coffer/internal/workers"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t, "runs")
	repo := layout.NewRepository(db, zerolog.Nop())
	optimizer := layout.NewCeilingLayoutOptimizer(42, zerolog.Nop())
	pool := workers.NewPool(2)
	svc := layout.NewService(optimizer, repo, pool, zerolog.Nop())

	s := New(Config{
		Log:           zerolog.Nop(),
		RunsDB:        db,
		LayoutService: svc,
		Pool:          pool,
		Port:          0,
		DevMode:       true,
	})
	return s, cleanup
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := get(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "coffer", response["service"])
}

func TestHandleSystemStats(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := get(t, s, "/api/system/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, int64(0), response.StoredRuns)
	assert.Equal(t, 2, response.Workers)
	assert.GreaterOrEqual(t, response.UptimeSeconds, 0.0)
	assert.NotEmpty(t, response.LastChecked)
}

func TestHandleDatabaseStats(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := get(t, s, "/api/system/database/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "runs", response.Name)
	assert.Greater(t, response.PageCount, int64(0))
	assert.Greater(t, response.PageSize, int64(0))
}

func TestLayoutRoutesMounted(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := get(t, s, "/api/layout/runs")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, s, "/api/layout/runs/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
