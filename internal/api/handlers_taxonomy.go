package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/taxonomy"
)

// ListTags handles GET /api/tags.
//
//	@Summary		Tag usage across all records
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: stats})
}

// RenameTag handles POST /api/tags/rename.
//
//	@Summary		Rename a tag (not implemented)
//	@Tags			tags
//	@Accept			json
//	@Param			body	body		RenameTagRequest	true	"Rename"
//	@Failure		501		{object}	errResponse
//	@Router			/tags/rename [post]
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	var req RenameTagRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeError(w, "rename tag", h.svc.RenameTag(r.Context(), req.From, req.To))
}

// MergeTags handles POST /api/tags/merge.
//
//	@Summary		Merge tags (not implemented)
//	@Tags			tags
//	@Accept			json
//	@Param			body	body		MergeTagsRequest	true	"Merge"
//	@Failure		501		{object}	errResponse
//	@Router			/tags/merge [post]
func (h *Handler) MergeTags(w http.ResponseWriter, r *http.Request) {
	var req MergeTagsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeError(w, "merge tags", h.svc.MergeTags(r.Context(), req.From, req.Into))
}

// DeleteTag handles DELETE /api/tags/{tag}.
//
//	@Summary		Delete a tag (not implemented)
//	@Tags			tags
//	@Param			tag	path		string	true	"Tag"
//	@Failure		501	{object}	errResponse
//	@Router			/tags/{tag} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	writeError(w, "delete tag", h.svc.DeleteTag(r.Context(), chi.URLParam(r, "tag")))
}

// Parity handles GET /api/i18n/parity.
//
//	@Summary		Keys missing from each translation file
//	@Tags			i18n
//	@Produce		json
//	@Success		200	{object}	ParityResponse
//	@Failure		422	{object}	errResponse
//	@Router			/i18n/parity [get]
func (h *Handler) Parity(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Parity(r.Context())
	if err != nil {
		writeError(w, "i18n parity", err)
		return
	}
	writeJSON(w, http.StatusOK, ParityResponse{
		Languages: h.svc.Languages(),
		Missing:   p.Missing,
		Counts:    p.Counts,
		InSync:    p.InSync(),
	})
}

// GetTranslation handles GET /api/i18n/{lang}.
//
//	@Summary		Read one translation document
//	@Tags			i18n
//	@Produce		json
//	@Param			lang	path	string	true	"Language code"
//	@Success		200		{object}	object
//	@Failure		404		{object}	errResponse
//	@Router			/i18n/{lang} [get]
func (h *Handler) GetTranslation(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Translation(r.Context(), chi.URLParam(r, "lang"))
	if err != nil {
		writeError(w, "get translation", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetTranslation handles PUT /api/i18n/keys.
//
//	@Summary		Set a key in one or more languages
//	@Tags			i18n
//	@Accept			json
//	@Param			body	body	SetTranslationRequest	true	"Key and per-language values"
//	@Success		204		"Key written"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/i18n/keys [put]
func (h *Handler) SetTranslation(w http.ResponseWriter, r *http.Request) {
	var req SetTranslationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SetTranslation(r.Context(), req.Key, req.Values); err != nil {
		writeError(w, "set translation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTranslation handles DELETE /api/i18n/keys/{key}.
//
//	@Summary		Delete a key from every language
//	@Tags			i18n
//	@Param			key	path	string	true	"Dot-separated key"
//	@Success		204	"Key deleted"
//	@Failure		404	{object}	errResponse
//	@Router			/i18n/keys/{key} [delete]
func (h *Handler) DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	if err := h.svc.DeleteTranslation(r.Context(), key); err != nil {
		writeError(w, "delete translation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List the category registry
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoriesResponse
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

// AddCategory handles POST /api/categories.
//
//	@Summary		Append a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		taxonomy.Category	true	"Category"
//	@Success		201		{object}	taxonomy.Category
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/categories [post]
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var cat taxonomy.Category
	if err := decodeBody(w, r, &cat); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.AddCategory(r.Context(), cat); err != nil {
		writeError(w, "add category", err)
		return
	}
	if cat.Types == nil {
		cat.Types = []string{}
	}
	writeJSON(w, http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/categories/{slug}.
//
//	@Summary		Update a category (not implemented)
//	@Tags			categories
//	@Param			slug	path		string	true	"Category slug"
//	@Failure		501		{object}	errResponse
//	@Router			/categories/{slug} [put]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var cat taxonomy.Category
	if err := decodeBody(w, r, &cat); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeError(w, "update category", h.svc.UpdateCategory(r.Context(), chi.URLParam(r, "slug"), cat))
}

// RemoveCategory handles DELETE /api/categories/{slug}.
//
//	@Summary		Remove a category
//	@Tags			categories
//	@Param			slug	path	string	true	"Category slug"
//	@Success		204		"Category removed"
//	@Failure		404		{object}	errResponse
//	@Router			/categories/{slug} [delete]
func (h *Handler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, "remove category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSite handles GET /api/site.
//
//	@Summary		Read the site configuration
//	@Tags			site
//	@Produce		json
//	@Success		200	{object}	object
//	@Failure		404	{object}	errResponse
//	@Router			/site [get]
func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	site, err := h.svc.Site(r.Context())
	if err != nil {
		writeError(w, "get site", err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

// PatchSite handles PATCH /api/site.
//
//	@Summary		Replace or add top-level site keys
//	@Description	Comments and untouched keys in the file are kept; null removes a key.
//	@Tags			site
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Keys to set"
//	@Success		200		{object}	object
//	@Failure		400		{object}	errResponse
//	@Router			/site [patch]
func (h *Handler) PatchSite(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	fields, err := frontmatter.ParseJSON(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	site, err := h.svc.PatchSite(r.Context(), fields)
	if err != nil {
		writeError(w, "patch site", err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}
