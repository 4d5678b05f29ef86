package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/rbac"
)

// RetryAfterSeconds is sent with LOADING responses.
const RetryAfterSeconds = "1"

// MiddlewareOptions configures the HTTP adapter.
type MiddlewareOptions struct {
	// StripPrefix is removed from the request path before the route lookup.
	StripPrefix string
	Permissions []rbac.Permission
	Mode        Mode
	CheckRoute  bool
}

type decisionKey struct{}

// DecisionFromContext returns the decision that admitted the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}

// Middleware renders every non-authorized state and passes AUTHORIZED
// requests on with the decision in their context.
func (g *Guard) Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if opts.StripPrefix != "" {
				path = strings.TrimPrefix(path, opts.StripPrefix)
			}
			decision := g.Decide(Request{
				Path:        path,
				ReturnTo:    r.URL.RequestURI(),
				Permissions: opts.Permissions,
				Mode:        opts.Mode,
				CheckRoute:  opts.CheckRoute,
			})

			switch decision.State {
			case StateAuthorized:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionKey{}, decision)))
			case StateLoading:
				w.Header().Set("Retry-After", RetryAfterSeconds)
				httpx.JSON(w, http.StatusServiceUnavailable, decision)
			case StateUnauthenticated:
				http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
			case StateInactive:
				httpx.ProblemWith(w, http.StatusForbidden, "Account Inactive",
					"this account is inactive, sign out to continue",
					map[string]any{"state": decision.State, "sign_out_path": decision.SignOutPath})
			case StateUnauthorized:
				if decision.RedirectTo != "" {
					http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
					return
				}
				httpx.ProblemWith(w, http.StatusForbidden, "Access Denied",
					"you do not have permission to open this page",
					map[string]any{"state": decision.State, "path": decision.Path, "sign_out_path": decision.SignOutPath})
			default:
				httpx.RespondError(w, httpx.ErrForbidden)
			}
		})
	}
}
