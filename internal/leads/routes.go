package leads

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the lead browser routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/data.json", h.data)
	r.Get("/status/{code}", h.statusHop)

	r.Post("/page/next", h.next)
	r.Post("/page/prev", h.previous)
	r.Post("/page", h.goToPage)
	r.Post("/size", h.pageSize)
	r.Post("/search", h.search)
	r.Post("/retry", h.retry)
	r.Post("/reload", h.reload)

	r.Route("/filters", func(r chi.Router) {
		r.Get("/", h.showFilters)
		r.Post("/toggle", h.toggleFilter)
		r.Post("/clear", h.clearFilters)
		r.Post("/apply", h.applyFilters)
		r.Post("/cancel", h.cancelFilters)
	})
}
