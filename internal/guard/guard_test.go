package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/steward/internal/authz"
	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/session"
	"github.com/odyssey-erp/steward/internal/users"
)

type fakeSession struct {
	state session.State
}

func (f *fakeSession) State() session.State {
	return f.state
}

func (f *fakeSession) CurrentIdentity() *users.Identity {
	return f.state.Identity
}

type recordingObserver struct {
	mu     sync.Mutex
	states []string
}

func (o *recordingObserver) ObserveGuardDecision(state string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.states...)
}

func newFakeGuard(state session.State, cfg Config) (*Guard, *fakeSession) {
	view := &fakeSession{state: state}
	engine := authz.NewDefaultEngine(view, roles.NewDefaultCatalog())
	return New(view, engine, cfg), view
}

func active(role string) *users.Identity {
	return &users.Identity{ID: 2, Username: "pat", Role: role, Status: users.StatusActive}
}

func TestDecideOrder(t *testing.T) {
	inactiveAdmin := &users.Identity{ID: 1, Username: "old", Role: roles.KeyAdmin, Status: users.StatusInactive}

	cases := []struct {
		name  string
		state session.State
		want  State
	}{
		{name: "loading wins over identity", state: session.State{Loading: true, Identity: active(roles.KeyAdmin)}, want: StateLoading},
		{name: "logging out", state: session.State{LoggingOut: true, Identity: active(roles.KeyAdmin)}, want: StateLoading},
		{name: "anonymous", state: session.State{}, want: StateUnauthenticated},
		{name: "inactive admin", state: session.State{Identity: inactiveAdmin}, want: StateInactive},
		{name: "viewer on users page", state: session.State{Identity: active(roles.KeyViewer)}, want: StateUnauthorized},
		{name: "admin on users page", state: session.State{Identity: active(roles.KeyAdmin)}, want: StateAuthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newFakeGuard(tc.state, Config{})
			assert.Equal(t, tc.want, g.Protect(rbac.RouteUsers, nil).State)
		})
	}
}

func TestUnauthenticatedCarriesReturnPath(t *testing.T) {
	g, _ := newFakeGuard(session.State{}, Config{LoginPath: "/signin"})

	d := g.Protect("/reports/financial/", nil)
	assert.Equal(t, StateUnauthenticated, d.State)
	assert.Equal(t, "/signin?next=%2Freports%2Ffinancial", d.RedirectTo)

	d = g.Decide(Request{Path: "/members", ReturnTo: "/app/members?page=2"})
	assert.Equal(t, "/signin?next=%2Fapp%2Fmembers%3Fpage%3D2", d.RedirectTo)
}

func TestInactiveOffersOnlySignOut(t *testing.T) {
	g, _ := newFakeGuard(session.State{Identity: &users.Identity{ID: 4, Username: "x", Role: roles.KeyAdmin, Status: users.StatusInactive}}, Config{})

	d := g.Require("/about", nil, ModeAll, false)
	assert.Equal(t, StateInactive, d.State)
	assert.Equal(t, DefaultSignOutPath, d.SignOutPath)
	assert.Empty(t, d.RedirectTo)
	assert.False(t, d.Allowed())
}

func TestUnauthorizedPresentation(t *testing.T) {
	viewer := session.State{Identity: active(roles.KeyViewer)}

	panel, _ := newFakeGuard(viewer, Config{})
	d := panel.Protect(rbac.RouteSettings, nil)
	assert.Equal(t, StateUnauthorized, d.State)
	assert.True(t, d.Panel)
	assert.Empty(t, d.RedirectTo)

	redirect, _ := newFakeGuard(viewer, Config{Denied: DeniedRedirect, FallbackPath: "/home"})
	d = redirect.Protect(rbac.RouteSettings, nil)
	assert.Equal(t, StateUnauthorized, d.State)
	assert.False(t, d.Panel)
	assert.Equal(t, "/home", d.RedirectTo)
}

func TestNonCanonicalPathsHitTheSameRule(t *testing.T) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyViewer)}, Config{})

	for _, p := range []string{rbac.RouteUsers, "//users", "/users/.", "/./users", "/settings/../users", "/users/"} {
		d := g.Protect(p, nil)
		assert.Equal(t, StateUnauthorized, d.State, "path %q", p)
		assert.Equal(t, rbac.RouteUsers, d.Path, "path %q", p)
	}
}

func TestAdaptersShareDecision(t *testing.T) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyTreasurer)}, Config{})

	export := rbac.PermReportsExport
	send := rbac.PermCommunicationsSend
	assert.Equal(t, StateAuthorized, g.Protect(rbac.RouteFinancialReport, &export).State)
	assert.Equal(t, StateUnauthorized, g.Protect(rbac.RouteFinancialReport, &send).State)
	assert.Equal(t, StateAuthorized, g.Protect("/unlisted", nil).State)

	perms := []rbac.Permission{rbac.PermDonationsManage, rbac.PermEventsManage}
	assert.Equal(t, StateAuthorized, g.Require("/unlisted", perms, ModeAny, true).State)
	assert.Equal(t, StateUnauthorized, g.Require("/unlisted", perms, ModeAll, true).State)
	assert.Equal(t, StateUnauthorized, g.Require(rbac.RouteEvents, nil, ModeAny, true).State)
	assert.Equal(t, StateAuthorized, g.Require(rbac.RouteEvents, nil, ModeAny, false).State)
}

func TestEveryOutcomeIsObserved(t *testing.T) {
	observer := &recordingObserver{}
	g, view := newFakeGuard(session.State{Loading: true}, Config{Observer: observer})

	g.Protect(rbac.RouteDashboard, nil)
	view.state = session.State{}
	g.Protect(rbac.RouteDashboard, nil)
	view.state = session.State{Identity: active(roles.KeyVolunteer)}
	g.Protect(rbac.RouteDashboard, nil)

	assert.Equal(t, []string{"LOADING", "UNAUTHENTICATED", "AUTHORIZED"}, observer.seen())
}

// gatedStorage blocks reads until release is closed.
type gatedStorage struct {
	session.Storage
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	close(s.entered)
	<-s.release
	return s.Storage.Get(ctx, key)
}

func TestAnonymousVisitGoesFromLoadingToUnauthenticated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := &gatedStorage{
		Storage: session.NewRedisStorage(client, "guard:"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	catalog := roles.NewDefaultCatalog()
	directory := users.NewService(users.NewMemoryRepository(), catalog)
	store := session.NewStore(directory, storage, session.Options{})
	observer := &recordingObserver{}
	g := New(store, authz.NewDefaultEngine(store, catalog), Config{Observer: observer})

	var states []State
	states = append(states, g.Protect(rbac.RouteMembers, nil).State)

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Restore(context.Background())
	}()
	<-storage.entered
	states = append(states, g.Protect(rbac.RouteMembers, nil).State)
	close(storage.release)
	<-done
	states = append(states, g.Protect(rbac.RouteMembers, nil).State)

	require.Equal(t, []State{StateLoading, StateLoading, StateUnauthenticated}, states)
	assert.NotContains(t, observer.seen(), string(StateAuthorized))
}
