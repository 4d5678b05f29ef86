// Package guard decides what a navigation to a protected page resolves to.
package guard

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/odyssey-erp/steward/internal/authz"
	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/session"
	"github.com/odyssey-erp/steward/internal/users"
)

// State is the outcome of a guard evaluation.
type State string

const (
	StateLoading         State = "LOADING"
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateInactive        State = "INACTIVE"
	StateUnauthorized    State = "UNAUTHORIZED"
	StateAuthorized      State = "AUTHORIZED"
)

// Mode combines an explicit permission list.
type Mode int

const (
	ModeAny Mode = iota
	ModeAll
)

// DeniedBehavior selects how UNAUTHORIZED is presented.
type DeniedBehavior int

const (
	DeniedPanel DeniedBehavior = iota
	DeniedRedirect
)

// Defaults for Config.
const (
	DefaultLoginPath    = "/login"
	DefaultSignOutPath  = "/api/session/logout"
	DefaultFallbackPath = rbac.RouteDashboard
)

// SessionView is the read side of the session the guard consumes.
type SessionView interface {
	State() session.State
}

// DecisionObserver counts decisions by state.
type DecisionObserver interface {
	ObserveGuardDecision(state string)
}

// Config tunes a Guard. Zero values select the defaults.
type Config struct {
	LoginPath    string
	SignOutPath  string
	FallbackPath string
	Denied       DeniedBehavior
	Observer     DecisionObserver
	Logger       *slog.Logger
}

// Request describes one protected navigation.
type Request struct {
	// Path is matched against the route table when CheckRoute is set.
	Path string
	// ReturnTo is carried to the login page; Path is used when empty.
	ReturnTo    string
	Permissions []rbac.Permission
	Mode        Mode
	CheckRoute  bool
}

// Decision is the tagged result of Decide.
type Decision struct {
	State       State           `json:"state"`
	Path        string          `json:"path"`
	Identity    *users.Identity `json:"identity,omitempty"`
	RedirectTo  string          `json:"redirect_to,omitempty"`
	SignOutPath string          `json:"sign_out_path,omitempty"`
	Panel       bool            `json:"panel,omitempty"`
}

// Allowed reports whether guarded content may render.
func (d Decision) Allowed() bool {
	return d.State == StateAuthorized
}

// Guard evaluates protected navigations against the session and engine.
type Guard struct {
	session SessionView
	engine  *authz.Engine
	cfg     Config
	logger  *slog.Logger
}

// New constructs a Guard.
func New(view SessionView, engine *authz.Engine, cfg Config) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.SignOutPath == "" {
		cfg.SignOutPath = DefaultSignOutPath
	}
	if cfg.FallbackPath == "" {
		cfg.FallbackPath = DefaultFallbackPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{session: view, engine: engine, cfg: cfg, logger: logger}
}

// Decide evaluates req in strict order: loading, no identity, inactive,
// failed permission checks, authorized. It never panics.
func (g *Guard) Decide(req Request) Decision {
	decision := g.decide(req)
	if g.cfg.Observer != nil {
		g.cfg.Observer.ObserveGuardDecision(string(decision.State))
	}
	g.logger.Debug("guard decision",
		slog.String("path", decision.Path),
		slog.String("state", string(decision.State)),
	)
	return decision
}

func (g *Guard) decide(req Request) Decision {
	path := rbac.NormalizePath(req.Path)
	decision := Decision{Path: path}

	snapshot := g.session.State()
	if snapshot.Loading || snapshot.LoggingOut {
		decision.State = StateLoading
		return decision
	}
	if snapshot.Identity == nil {
		decision.State = StateUnauthenticated
		decision.RedirectTo = g.loginRedirect(req, path)
		return decision
	}
	decision.Identity = snapshot.Identity
	if !snapshot.Identity.IsActive() {
		decision.State = StateInactive
		decision.SignOutPath = g.cfg.SignOutPath
		return decision
	}

	checker := g.engine.For(snapshot.Identity)
	if !permitted(checker, req, path) {
		decision.State = StateUnauthorized
		if g.cfg.Denied == DeniedRedirect {
			decision.RedirectTo = g.cfg.FallbackPath
		} else {
			decision.Panel = true
			decision.SignOutPath = g.cfg.SignOutPath
		}
		return decision
	}
	decision.State = StateAuthorized
	return decision
}

func permitted(checker authz.Checker, req Request, path string) bool {
	if req.CheckRoute && !checker.CanAccessRoute(path) {
		return false
	}
	if len(req.Permissions) == 0 {
		return true
	}
	if req.Mode == ModeAll {
		return checker.HasAllPermissions(req.Permissions...)
	}
	return checker.HasAnyPermission(req.Permissions...)
}

func (g *Guard) loginRedirect(req Request, path string) string {
	next := strings.TrimSpace(req.ReturnTo)
	if next == "" {
		next = path
	}
	sep := "?"
	if strings.Contains(g.cfg.LoginPath, "?") {
		sep = "&"
	}
	return g.cfg.LoginPath + sep + url.Values{"next": {next}}.Encode()
}

// Protect guards path with the route table and at most one permission.
func (g *Guard) Protect(path string, permission *rbac.Permission) Decision {
	req := Request{Path: path, CheckRoute: true}
	if permission != nil {
		req.Permissions = []rbac.Permission{*permission}
	}
	return g.Decide(req)
}

// Require guards path with an explicit permission list combined by mode,
// optionally together with the route table.
func (g *Guard) Require(path string, perms []rbac.Permission, mode Mode, checkRoute bool) Decision {
	return g.Decide(Request{Path: path, Permissions: perms, Mode: mode, CheckRoute: checkRoute})
}
