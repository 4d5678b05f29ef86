package session

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/shared"
)

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		store:     store,
		validator: validator.New(),
	}
}

// MountRoutes registers session routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showSession)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.busy(w) {
		return
	}
	form, ok := h.readLoginForm(w, r)
	if !ok {
		return
	}
	if err := h.store.Login(r.Context(), form.Username, form.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if h.busy(w) {
		return
	}
	h.store.Logout(r.Context())
	httpx.JSON(w, http.StatusOK, h.store.State())
}

// busy rejects duplicate submissions while another operation is in flight.
func (h *Handler) busy(w http.ResponseWriter) bool {
	state := h.store.State()
	if state.Loading || state.LoggingOut {
		httpx.RespondError(w, httpx.ErrConflict)
		return true
	}
	return false
}

func (h *Handler) readLoginForm(w http.ResponseWriter, r *http.Request) (loginForm, bool) {
	var form loginForm
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, shared.NewValidationError("", "malformed request body"))
			return form, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.RespondError(w, shared.NewValidationError("", "malformed form"))
			return form, false
		}
		form.Username = r.PostFormValue("username")
		form.Password = r.PostFormValue("password")
	}
	if err := h.validator.Struct(form); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			httpx.RespondError(w, shared.NewValidationError(strings.ToLower(fieldErrs[0].Field()), "is required"))
			return form, false
		}
		httpx.RespondError(w, shared.NewValidationError("", err.Error()))
		return form, false
	}
	return form, true
}
