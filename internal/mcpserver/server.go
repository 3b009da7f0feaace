// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the site's content tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/contentservice"
	"github.com/starford/sitedesk/internal/frontmatter"
)

const contractURI = "sitedesk://content-format"

// Server wraps the MCP server with content tools.
type Server struct {
	mcp *server.MCPServer
	svc *contentservice.Service
}

// New creates a new MCP server with all content tools registered.
func New(svc *contentservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"sitedesk",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_content",
		mcp.WithDescription("List content records (id, collection, lang, title, tags, draft) with optional filters."),
		mcp.WithString("collection", mcp.Description("Only records in this collection")),
		mcp.WithString("lang", mcp.Description("Only records in this language")),
		mcp.WithString("tag", mcp.Description("Only records carrying this tag")),
	), s.listContent)

	s.mcp.AddTool(mcp.NewTool("read_content",
		mcp.WithDescription("Read one record's frontmatter and body."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id: collection/slug without extension (e.g. articles/en/hello)")),
	), s.readContent)

	s.mcp.AddTool(mcp.NewTool("create_content",
		mcp.WithDescription("Create a new record. Frontmatter MUST follow the content format "+
			"contract; read it first via get_content_contract or the "+contractURI+" resource."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection directory (e.g. articles)")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug inside the collection (e.g. en/hello)")),
		mcp.WithString("frontmatter", mcp.Required(), mcp.Description("Frontmatter as a JSON object")),
		mcp.WithString("body", mcp.Description("Markdown body")),
	), s.createContent)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Full-text search through record titles, tags and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("tag_stats",
		mcp.WithDescription("Tag usage counts across all records, most used first."),
	), s.tagStats)

	s.mcp.AddTool(mcp.NewTool("i18n_parity",
		mcp.WithDescription("Translation keys missing from each language file."),
	), s.i18nParity)

	s.mcp.AddTool(mcp.NewTool("get_content_contract",
		mcp.WithDescription("Returns the content file format contract. "+
			"Call this before creating records to ensure correct structure."),
	), s.getContentContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Content Format Contract",
			mcp.WithResourceDescription("File layout and frontmatter format every record must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns a service error into a tool-level error message.
func toolError(err error, subject string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + subject)
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists: " + subject)
	}
	return mcp.NewToolResultError(err.Error())
}

type listItem struct {
	ID         string   `json:"id"`
	Collection string   `json:"collection"`
	Lang       string   `json:"lang"`
	Title      string   `json:"title"`
	Draft      bool     `json:"draft"`
	Tags       []string `json:"tags"`
}

func (s *Server) listContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := s.svc.Catalog(ctx, contentservice.Filter{
		Collection: req.GetString("collection", ""),
		Lang:       req.GetString("lang", ""),
		Tag:        req.GetString("tag", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := make([]listItem, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, listItem{ID: e.ID, Collection: e.Collection, Lang: e.Lang, Title: e.Title(), Draft: e.Draft, Tags: tags})
	}
	return jsonResult(items)
}

func (s *Server) readContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err, id), nil
	}
	return jsonResult(map[string]any{
		"id":          rec.Entry.ID,
		"path":        rec.Entry.Path,
		"frontmatter": rec.Frontmatter,
		"body":        rec.Body,
	})
}

func (s *Server) createContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("frontmatter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fm, err := frontmatter.ParseJSON([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError("frontmatter: " + err.Error()), nil
	}

	rec, err := s.svc.Create(ctx, collection, slug, "", fm, req.GetString("body", ""))
	if err != nil {
		return toolError(err, collection+"/"+slug), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", rec.Entry.Path)), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results)
}

func (s *Server) tagStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(stats))
	for _, st := range stats {
		lines = append(lines, fmt.Sprintf("%s\t%d\t%s", st.Name, st.Count, strings.Join(st.Collections, ",")))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) i18nParity(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.Parity(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if p.InSync() {
		return mcp.NewToolResultText("all languages in sync"), nil
	}
	return jsonResult(p.Missing)
}

func (s *Server) getContentContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
