package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
)

// Handler exposes the read-only role catalog.
type Handler struct {
	catalog *Catalog
	guard   func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. guard wraps the listing route; nil leaves it open.
func NewHandler(catalog *Catalog, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{catalog: catalog, guard: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.guard != nil {
			r.Use(h.guard)
		}
		r.Get("/", h.listRoles)
		r.Get("/{key}", h.getRole)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": h.catalog.List()})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.catalog.Get(chi.URLParam(r, "key"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}
