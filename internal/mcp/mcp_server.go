// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/autoindex/core/search"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the autoindex MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(store contract.Store, searcher *search.Searcher) *server.MCPServer {
	s := server.NewMCPServer(
		"Autoindex Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		store:    store,
		searcher: searcher,
	}

	s.AddTool(mcp.NewTool("get_tracker",
		mcp.WithDescription("Show the indexed windows, bounds and coverage of a tracked source."),
		mcp.WithString("source_id", mcp.Description("Id of the tracked source."), mcp.Required()),
	), h.handleGetTracker)

	s.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List open index jobs, optionally for one source."),
		mcp.WithString("source_id", mcp.Description("Only list the job of this source.")),
	), h.handleListJobs)

	s.AddTool(mcp.NewTool("split_query",
		mcp.WithDescription("Show how a query on a source is split between the raw and indexed backends."),
		mcp.WithString("source_id", mcp.Description("Id of the tracked source."), mcp.Required()),
		mcp.WithString("query", mcp.Description("Query document as JSON. Empty matches everything.")),
	), h.handleSplitQuery)

	s.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Run a federated query on a tracked source and return the merged rows."),
		mcp.WithString("source_id", mcp.Description("Id of the tracked source."), mcp.Required()),
		mcp.WithString("query", mcp.Description("Query document as JSON. Empty matches everything.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows to return.")),
	), h.handleSearch)

	return s
}

// StartMCPServer serves the autoindex tools over stdio.
func StartMCPServer(_ context.Context, store contract.Store, searcher *search.Searcher) error {
	s := NewMCPServer(store, searcher)
	return server.ServeStdio(s)
}
