package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sitechat/internal/engine"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// handleAskSite answers a question against a namespace through the chat engine.
func (s *Server) handleAskSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := request.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: namespace"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.engine.Query(ctx, namespace, question, engine.QueryOptions{
		TopK: request.GetInt("top_k", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(resp)), nil
}

// handleSearchContent performs semantic search over the content store.
func (s *Server) handleSearchContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := request.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: namespace"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var filter *vectordb.Filter
	if sourceURL := request.GetString("source_url", ""); sourceURL != "" {
		filter = &vectordb.Filter{SourceURL: &sourceURL}
	}

	matches, err := s.store.Query(ctx, namespace, query, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return mcp.NewToolResultText("No results found. The namespace may not be trained yet. Run `sitechat train` to index a website."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatMatches(matches)), nil
}

// handleListNamespaces lists indexed namespaces with their record counts.
func (s *Server) handleListNamespaces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespaces := s.store.Namespaces()
	if len(namespaces) == 0 {
		return mcp.NewToolResultText("No namespaces indexed yet. Run `sitechat train` to index a website."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d namespace(s):\n", len(namespaces)))
	for _, ns := range namespaces {
		sb.WriteString(fmt.Sprintf("- %s (%d chunks)\n", ns, s.store.Count(ns)))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatAnswer renders a query response as text with a sources section.
func formatAnswer(resp *engine.QueryResponse) string {
	var sb strings.Builder
	sb.WriteString(resp.Answer)

	if len(resp.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, src := range resp.Sources {
			if src.Title != "" {
				sb.WriteString(fmt.Sprintf("- %s (%s)\n", src.Title, src.URL))
			} else {
				sb.WriteString(fmt.Sprintf("- %s\n", src.URL))
			}
		}
	}

	return sb.String()
}
