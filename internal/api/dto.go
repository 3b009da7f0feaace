package api

import (
	"encoding/json"

	"github.com/starford/sitedesk/internal/bulk"
	"github.com/starford/sitedesk/internal/content"
	"github.com/starford/sitedesk/internal/contentservice"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/taxonomy"
)

// CreateContentRequest is the request body for creating a record.
type CreateContentRequest struct {
	Slug        string          `json:"slug" example:"en/hello-world" validate:"required"`
	Ext         string          `json:"ext,omitempty" example:".md"`
	Frontmatter json.RawMessage `json:"frontmatter" swaggertype:"object"`
	Body        string          `json:"body" example:"Hello.\n"`
}

// ReplaceContentRequest is the request body for PUT: frontmatter and body
// are replaced wholesale.
type ReplaceContentRequest struct {
	Frontmatter json.RawMessage `json:"frontmatter" swaggertype:"object" validate:"required"`
	Body        string          `json:"body"`
}

// UpdateContentRequest is the request body for PATCH: listed keys replace
// existing ones, null deletes a key, an absent body keeps the current one.
type UpdateContentRequest struct {
	Frontmatter json.RawMessage `json:"frontmatter" swaggertype:"object"`
	Body        *string         `json:"body,omitempty"`
}

// BulkRequest is the request body for POST /bulk.
type BulkRequest struct {
	Slugs  []string        `json:"slugs" example:"articles/en/a,articles/en/b" validate:"required"`
	Fields json.RawMessage `json:"fields" swaggertype:"object" validate:"required"`
	Mode   bulk.Mode       `json:"arrayMode,omitempty" example:"merge" enums:"merge,remove,replace"`
}

// RenameTagRequest is the request body for POST /tags/rename.
type RenameTagRequest struct {
	From string `json:"from" example:"golang"`
	To   string `json:"to" example:"go"`
}

// MergeTagsRequest is the request body for POST /tags/merge.
type MergeTagsRequest struct {
	From []string `json:"from" example:"golang,go-lang"`
	Into string   `json:"into" example:"go"`
}

// SetTranslationRequest is the request body for PUT /i18n/keys.
type SetTranslationRequest struct {
	Key    string            `json:"key" example:"nav.home" validate:"required"`
	Values map[string]string `json:"values" validate:"required"`
}

// ContentRecord is a single decoded record.
type ContentRecord = content.Record

// CatalogResponse is the listing response (aliased from the domain layer).
type CatalogResponse = contentservice.Catalog

// BulkReport is the per-slug bulk outcome (aliased from the domain layer).
type BulkReport = bulk.Report

// TagsResponse wraps tag statistics.
type TagsResponse struct {
	Tags []taxonomy.TagStat `json:"tags" validate:"required"`
}

// ParityResponse reports translation key parity.
type ParityResponse struct {
	Languages []string            `json:"languages" validate:"required"`
	Missing   map[string][]string `json:"missing" validate:"required"`
	Counts    map[string]int      `json:"counts" validate:"required"`
	InSync    bool                `json:"in_sync"`
}

// CategoriesResponse wraps the category registry.
type CategoriesResponse struct {
	Categories []taxonomy.Category `json:"categories" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// DeleteResponse reports where a soft-deleted record was moved.
type DeleteResponse struct {
	ID      string `json:"id" example:"articles/en/old-post"`
	MovedTo string `json:"moved_to" example:"articles/en/old-post.md.deleted-20240309T140506Z"`
}
