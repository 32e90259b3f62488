package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askSiteTool defines the ask_site MCP tool.
var askSiteTool = mcp.NewTool("ask_site",
	mcp.WithDescription("Ask a question about an indexed website and get a grounded answer with source URLs."),
	mcp.WithString("namespace",
		mcp.Required(),
		mcp.Description("Namespace of the indexed website to query"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question about the website's content"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of content chunks to retrieve as context (default 5)"),
	),
)

// searchContentTool defines the search_content MCP tool.
var searchContentTool = mcp.NewTool("search_content",
	mcp.WithDescription("Search the indexed website content semantically. Returns matching chunks with source URLs and similarity scores."),
	mcp.WithString("namespace",
		mcp.Required(),
		mcp.Description("Namespace of the indexed website to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("source_url",
		mcp.Description("Restrict results to chunks from this page URL"),
	),
)

// listNamespacesTool defines the list_namespaces MCP tool.
var listNamespacesTool = mcp.NewTool("list_namespaces",
	mcp.WithDescription("List the indexed website namespaces and how many content chunks each holds."),
)
