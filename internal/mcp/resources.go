package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"canvasnotes/internal/domain"
)

const (
	pagesURI        = "canvas://pages"
	pageURIPrefix   = "canvas://page/"
	elementsURISufx = "/elements"
)

func (s *Server) registerResources() {
	// ── canvas://pages ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── canvas://page/{pageId}/elements ────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}"+elementsURISufx,
			"Elements on a Page",
		),
		s.handlePageElementsResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.pages.List(ctx)
	if err != nil {
		return nil, err
	}

	type pageSummary struct {
		ID   string  `json:"id"`
		Name string  `json:"name"`
		Zoom float64 `json:"zoom"`
	}

	summaries := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		summaries = append(summaries, pageSummary{ID: p.ID, Name: p.Name, Zoom: p.Zoom})
	}
	return jsonResource(pagesURI, summaries)
}

func (s *Server) handlePageElementsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	// The open page may hold changes that are not saved yet.
	var els []domain.Element
	if active, ok := s.workspace.Active(); ok && active.ID == pageID {
		st, err := s.workspace.State()
		if err != nil {
			return nil, err
		}
		els = st.Elements
	} else {
		stored, err := s.scenes.Stored(ctx, pageID)
		if err != nil {
			return nil, err
		}
		els = stored
	}
	return jsonResource(uri, summarizeAll(els))
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page ID from "canvas://page/{id}/elements".
func extractPageIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, elementsURISufx)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
