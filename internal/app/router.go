package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/steward/internal/authz"
	"github.com/odyssey-erp/steward/internal/guard"
	"github.com/odyssey-erp/steward/internal/observability"
	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/session"
	"github.com/odyssey-erp/steward/internal/users"
	"github.com/odyssey-erp/steward/jobs"
)

// GuardedPrefix is where guard-protected pages are served.
const GuardedPrefix = "/app"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionHandler     *session.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *authz.Handler
	JobHandler         *jobs.Handler
	Guard              *guard.Guard
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Steward defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get(guard.DefaultLoginPath, func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{
			"login": "/api/session/login",
			"next":  r.URL.Query().Get("next"),
		})
	})

	r.Route("/api", func(r chi.Router) {
		if params.SessionHandler != nil {
			r.Route("/session", params.SessionHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Guard != nil {
		r.Route(GuardedPrefix, func(r chi.Router) {
			r.Use(params.Guard.Middleware(guard.MiddlewareOptions{StripPrefix: GuardedPrefix, CheckRoute: true}))
			r.Get("/*", guardedPage)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// guardedPage renders the decision that admitted the request.
func guardedPage(w http.ResponseWriter, r *http.Request) {
	decision, ok := guard.DecisionFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}
