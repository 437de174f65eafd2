package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumora/website/internal/handler"
)

func TestRoutes_Mount(t *testing.T) {
	env := newTestEnv(t, true)

	t.Run("root redirects home", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, handler.HomePath, rr.Header().Get("Location"))
	})

	t.Run("health is mounted", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/health")

		require.Equal(t, http.StatusOK, rr.Code)
		var body handler.HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "test", body.Environment)
	})

	t.Run("api user routes need a session", func(t *testing.T) {
		for _, tc := range []struct{ method, target string }{
			{http.MethodGet, "/api/user/profile"},
			{http.MethodPost, "/api/user/claim-cape"},
		} {
			rr := env.do(tc.method, tc.target)
			assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.target)
		}
	})

	t.Run("dashboard redirects to sign-in", func(t *testing.T) {
		rr := env.do(http.MethodGet, handler.DashboardPath)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, handler.SignInPath, rr.Header().Get("Location"))
	})

	t.Run("unknown path under a mounted prefix", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/testing/nowhere")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
