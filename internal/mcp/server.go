package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/sitechat/internal/engine"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes website question-answering
// and content search tools to AI agents.
type Server struct {
	engine *engine.Engine
	store  vectordb.Store
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(eng *engine.Engine, store vectordb.Store) *Server {
	s := &Server{
		engine: eng,
		store:  store,
	}

	s.mcp = server.NewMCPServer(
		"sitechat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askSiteTool, s.handleAskSite)
	s.mcp.AddTool(searchContentTool, s.handleSearchContent)
	s.mcp.AddTool(listNamespacesTool, s.handleListNamespaces)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
