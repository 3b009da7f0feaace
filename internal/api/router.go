package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sitedesk/internal/contentservice"
)

// Options controls router behaviour.
type Options struct {
	// AllowRemote disables the loopback-only guard.
	AllowRemote bool
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *contentservice.Service, opts Options) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(LocalOnly(opts.AllowRemote))

	// Content records.
	r.Get("/content", h.ListContent)
	r.Post("/content/{collection}", h.CreateContent)
	r.Get("/content/*", h.GetContent)
	r.Put("/content/*", h.ReplaceContent)
	r.Patch("/content/*", h.UpdateContent)
	r.Delete("/content/*", h.DeleteContent)
	r.Post("/bulk", h.BulkUpdate)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags/rename", h.RenameTag)
	r.Post("/tags/merge", h.MergeTags)
	r.Delete("/tags/{tag}", h.DeleteTag)

	// Translations.
	r.Get("/i18n/parity", h.Parity)
	r.Get("/i18n/{lang}", h.GetTranslation)
	r.Put("/i18n/keys", h.SetTranslation)
	r.Delete("/i18n/keys/{key}", h.DeleteTranslation)

	// Categories.
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.AddCategory)
	r.Put("/categories/{slug}", h.UpdateCategory)
	r.Delete("/categories/{slug}", h.RemoveCategory)

	// Site configuration.
	r.Get("/site", h.GetSite)
	r.Patch("/site", h.PatchSite)

	r.Get("/search", h.Search)

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
