package deposit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the authenticated user routes.
func (h *Handler) Routes(authMiddleware, resolveRole func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.With(resolveRole).Get("/status", h.Status)

	return r
}

// AdminRoutes returns routes mounted under the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.AdminListPending)
	r.Put("/{id}", h.AdminDecide)
	return r
}
