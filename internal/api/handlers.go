package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sitedesk/internal/bulk"
	"github.com/starford/sitedesk/internal/contentservice"
	"github.com/starford/sitedesk/internal/frontmatter"
)

// Handler holds API route handlers.
type Handler struct {
	svc *contentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// contentID extracts the record id from the URL (everything after
// /api/content/). Encoded slashes are accepted and a trailing content
// extension is dropped, so articles/x and articles/x.md address the same
// record.
func (h *Handler) contentID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return h.trimExt(raw)
}

// trimExt drops a trailing content extension from id.
func (h *Handler) trimExt(id string) string {
	for _, ext := range h.svc.Config().Extensions {
		if trimmed, ok := strings.CutSuffix(id, ext); ok {
			return trimmed
		}
	}
	return id
}

// ListContent handles GET /api/content.
//
//	@Summary		Scan the content tree
//	@Tags			content
//	@Produce		json
//	@Param			collection	query		string	false	"Only this collection"
//	@Param			lang		query		string	false	"Only this language"
//	@Param			tag			query		string	false	"Only records carrying this tag"
//	@Param			draft		query		bool	false	"Only drafts (true) or published records (false)"
//	@Success		200			{object}	CatalogResponse
//	@Failure		400			{object}	errResponse
//	@Router			/content [get]
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := contentservice.Filter{
		Collection: q.Get("collection"),
		Lang:       q.Get("lang"),
		Tag:        q.Get("tag"),
	}
	if v := q.Get("draft"); v != "" {
		draft, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("draft must be a boolean"))
			return
		}
		f.Draft = &draft
	}

	cat, err := h.svc.Catalog(r.Context(), f)
	if err != nil {
		writeError(w, "list content", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// GetContent handles GET /api/content/*.
//
//	@Summary		Read a single record
//	@Tags			content
//	@Produce		json
//	@Param			id	path		string	true	"Record id (collection/slug)"
//	@Success		200	{object}	ContentRecord
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Router			/content/{id} [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := h.contentID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get content", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateContent handles POST /api/content/{collection}.
//
//	@Summary		Create a record
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			collection	path		string					true	"Collection"
//	@Param			body		body		CreateContentRequest	true	"Record to create"
//	@Success		201			{object}	ContentRecord
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/content/{collection} [post]
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if req.Slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	fm, err := parseObject(req.Frontmatter)
	if err != nil {
		writeError(w, "create content", err)
		return
	}
	if fm == nil {
		fm = frontmatter.NewMap()
	}
	rec, err := h.svc.Create(r.Context(), chi.URLParam(r, "collection"), req.Slug, req.Ext, fm, req.Body)
	if err != nil {
		writeError(w, "create content", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ReplaceContent handles PUT /api/content/*.
//
//	@Summary		Replace a record's frontmatter and body
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Record id"
//	@Param			body	body		ReplaceContentRequest	true	"New document"
//	@Success		200		{object}	ContentRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/content/{id} [put]
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	id := h.contentID(r)
	var req ReplaceContentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	fm, err := parseObject(req.Frontmatter)
	if err != nil {
		writeError(w, "replace content", err)
		return
	}
	if fm == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("frontmatter is required"))
		return
	}
	rec, err := h.svc.Replace(r.Context(), id, fm, req.Body)
	if err != nil {
		writeError(w, "replace content", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateContent handles PATCH /api/content/*.
//
//	@Summary		Merge frontmatter keys into a record
//	@Description	Listed keys replace existing values, null removes a key; the body is replaced only when given.
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Record id"
//	@Param			body	body		UpdateContentRequest	true	"Patch"
//	@Success		200		{object}	ContentRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/content/{id} [patch]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := h.contentID(r)
	var req UpdateContentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	patch, err := parseObject(req.Frontmatter)
	if err != nil {
		writeError(w, "update content", err)
		return
	}
	if patch == nil && req.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("frontmatter or body is required"))
		return
	}
	rec, err := h.svc.Update(r.Context(), id, patch, req.Body)
	if err != nil {
		writeError(w, "update content", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteContent handles DELETE /api/content/*.
//
//	@Summary		Soft-delete a record
//	@Description	The file is renamed with a .deleted-<timestamp> suffix.
//	@Tags			content
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	DeleteResponse
//	@Failure		404	{object}	errResponse
//	@Router			/content/{id} [delete]
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := h.contentID(r)
	moved, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete content", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ID: id, MovedTo: moved})
}

// BulkUpdate handles POST /api/bulk.
//
//	@Summary		Update one set of fields across many records
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BulkRequest	true	"Slugs, fields and array mode"
//	@Success		200		{object}	BulkReport
//	@Failure		400		{object}	errResponse
//	@Router			/bulk [post]
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	fields, err := parseObject(req.Fields)
	if err != nil {
		writeError(w, "bulk update", err)
		return
	}
	slugs := make([]string, len(req.Slugs))
	for i, slug := range req.Slugs {
		slugs[i] = h.trimExt(slug)
	}
	rep, err := h.svc.Bulk(r.Context(), bulk.Request{Slugs: slugs, Fields: fields, Mode: req.Mode})
	if err != nil {
		writeError(w, "bulk update", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		501		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
