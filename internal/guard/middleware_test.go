package guard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/session"
	"github.com/odyssey-erp/steward/internal/users"
)

func guardedRouter(g *Guard) http.Handler {
	r := chi.NewRouter()
	r.Route("/app", func(r chi.Router) {
		r.Use(g.Middleware(MiddlewareOptions{StripPrefix: "/app", CheckRoute: true}))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			d, ok := DecisionFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(d)
		})
	})
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMiddlewareResponses(t *testing.T) {
	g, view := newFakeGuard(session.State{Loading: true}, Config{})
	router := guardedRouter(g)

	rec := get(router, "/app/members")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, RetryAfterSeconds, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"LOADING"`)

	view.state = session.State{}
	rec = get(router, "/app/members?tab=active")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fapp%2Fmembers%3Ftab%3Dactive", rec.Header().Get("Location"))

	view.state = session.State{Identity: &users.Identity{ID: 9, Username: "z", Role: roles.KeyAdmin, Status: users.StatusInactive}}
	rec = get(router, "/app/members")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "INACTIVE")
	assert.Contains(t, rec.Body.String(), DefaultSignOutPath)

	view.state = session.State{Identity: active(roles.KeyVolunteer)}
	rec = get(router, "/app/members")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	rec = get(router, "/app/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var d Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, StateAuthorized, d.State)
	assert.Equal(t, "/events", d.Path)
}

func TestMiddlewareRedirectsDeniedToFallback(t *testing.T) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyVolunteer)}, Config{Denied: DeniedRedirect})

	rec := get(guardedRouter(g), "/app/settings")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DefaultFallbackPath, rec.Header().Get("Location"))
}

func TestMiddlewareCanonicalisesRequestPath(t *testing.T) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyVolunteer)}, Config{})
	router := guardedRouter(g)

	for _, target := range []string{"/app/users", "/app//users", "/app/users/.", "/app/./users", "/app/events/../users"} {
		rec := get(router, target)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED", target)
	}
}
