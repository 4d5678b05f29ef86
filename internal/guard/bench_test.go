package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/session"
)

func BenchmarkProtectAuthorized(b *testing.B) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyTreasurer)}, Config{})
	perm := rbac.PermDonationsView
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !g.Protect(rbac.RouteDonations, &perm).Allowed() {
			b.Fatal("expected authorized")
		}
	}
}

func BenchmarkRequireAllDenied(b *testing.B) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyVolunteer)}, Config{})
	perms := []rbac.Permission{rbac.PermUsersManage, rbac.PermSettingsManage}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if g.Require(rbac.RouteUsers, perms, ModeAll, true).Allowed() {
			b.Fatal("expected denial")
		}
	}
}

func BenchmarkMiddleware(b *testing.B) {
	g, _ := newFakeGuard(session.State{Identity: active(roles.KeyAdmin)}, Config{})
	h := g.Middleware(MiddlewareOptions{StripPrefix: "/app"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/app/members", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			b.Fatalf("status %d", rec.Code)
		}
	}
}
