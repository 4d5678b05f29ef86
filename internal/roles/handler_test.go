package roles

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRolesRouter(guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/roles", NewHandler(NewDefaultCatalog(), guard).MountRoutes)
	return r
}

func TestListRoles(t *testing.T) {
	rec := httptest.NewRecorder()
	newRolesRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roles/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Roles []struct {
			Key         string   `json:"key"`
			Permissions []string `json:"permissions"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Roles, len(DefaultRoles()))
	assert.Equal(t, KeyAdmin, body.Roles[0].Key)
	assert.Equal(t, []string{"all"}, body.Roles[0].Permissions)
}

func TestGetRole(t *testing.T) {
	router := newRolesRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roles/"+KeyTreasurer, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"donations.manage"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roles/owner", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuardWrapsRoleRoutes(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	router := newRolesRouter(deny)

	for _, path := range []string{"/api/roles/", "/api/roles/" + KeyAdmin} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}
