package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/shared"
)

// ActionGuard returns middleware admitting only callers allowed to perform action.
type ActionGuard func(action string) func(http.Handler) http.Handler

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	require ActionGuard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, require ActionGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, require: require}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.require(rbac.ActionUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.With(h.require(rbac.ActionUsersCreate)).Post("/", h.createUser)
	r.With(h.require(rbac.ActionUsersUpdate)).Patch("/{id}", h.updateUser)
	r.With(h.require(rbac.ActionUsersDelete)).Delete("/{id}", h.deleteUser)
}

type createRequest struct {
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	DisplayName         string    `json:"display_name"`
	Role                string    `json:"role"`
	Status              Status    `json:"status"`
	Permissions         *[]string `json:"permissions"`
	TemporaryPassword   string    `json:"temporary_password"`
	ForcePasswordChange bool      `json:"force_password_change"`
}

type updateRequest struct {
	Username            *string   `json:"username"`
	Email               *string   `json:"email"`
	DisplayName         *string   `json:"display_name"`
	Role                *string   `json:"role"`
	Status              *Status   `json:"status"`
	Permissions         *[]string `json:"permissions"`
	ClearPermissions    bool      `json:"clear_permissions"`
	TemporaryPassword   *string   `json:"temporary_password"`
	ForcePasswordChange *bool     `json:"force_password_change"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": identities})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	identity, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, identity)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("", "malformed request body"))
		return
	}
	identity := Identity{
		Username:            req.Username,
		Email:               req.Email,
		DisplayName:         req.DisplayName,
		Role:                req.Role,
		Status:              req.Status,
		TemporaryPassword:   req.TemporaryPassword,
		ForcePasswordChange: req.ForcePasswordChange,
	}
	if req.Permissions != nil {
		set, err := parseOverrides(*req.Permissions)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		identity.Permissions = &set
	}
	created, err := h.service.Insert(r.Context(), identity)
	if err != nil {
		h.logger.Warn("create user rejected", slog.String("username", req.Username), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user created", slog.Int64("id", created.ID), slog.String("username", created.Username))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("", "malformed request body"))
		return
	}
	fields := Fields{
		Username:            req.Username,
		Email:               req.Email,
		DisplayName:         req.DisplayName,
		Role:                req.Role,
		Status:              req.Status,
		ClearPermissions:    req.ClearPermissions,
		TemporaryPassword:   req.TemporaryPassword,
		ForcePasswordChange: req.ForcePasswordChange,
	}
	if req.Permissions != nil {
		set, err := parseOverrides(*req.Permissions)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		fields.Permissions = &set
	}
	updated, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("user removed", slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// parseOverrides accepts only registered permission names and the "all" token.
func parseOverrides(names []string) (rbac.PermissionSet, error) {
	valid, invalid := rbac.NormalizePermissionNames(names)
	if len(invalid) > 0 {
		return rbac.PermissionSet{}, shared.NewValidationError("permissions", "unknown permissions: "+strings.Join(invalid, ", "))
	}
	return rbac.ParsePermissions(valid), nil
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
