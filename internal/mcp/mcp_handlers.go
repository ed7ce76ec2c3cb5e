package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/autoindex/core/search"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/internal/store"
	"github.com/huangsam/autoindex/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	store    contract.Store
	searcher *search.Searcher
}

// trackerView is the get_tracker payload.
type trackerView struct {
	schema.CoverageStatus
	Covered []schema.Window `json:"covered"`
}

func textResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func requireSource(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id := request.GetString("source_id", "")
	if id == "" {
		return "", mcp.NewToolResultError("source_id is required")
	}
	return id, nil
}

func (h *toolHandler) handleGetTracker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireSource(request)
	if errResult != nil {
		return errResult, nil
	}
	source, err := h.store.GetSource(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source: %v", err)), nil
	}
	tracker, err := h.store.GetTracker(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("tracker lookup failed: %v", err)), nil
	}
	statuses, err := store.Coverage(ctx, h.store, []schema.TrackedSource{source})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("coverage lookup failed: %v", err)), nil
	}
	return textResult(trackerView{
		CoverageStatus: statuses[0],
		Covered:        tracker.Windows,
	}), nil
}

func (h *toolHandler) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := h.store.ListJobs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing jobs failed: %v", err)), nil
	}
	if id := request.GetString("source_id", ""); id != "" {
		filtered := []schema.IndexJob{}
		for _, j := range jobs {
			if j.SourceID == id {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	return textResult(jobs), nil
}

func (h *toolHandler) handleSplitQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireSource(request)
	if errResult != nil {
		return errResult, nil
	}
	q, err := search.DecodeQuery([]byte(request.GetString("query", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, plan, err := h.searcher.Plan(ctx, id, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("split failed: %v", err)), nil
	}
	return textResult(plan.Flatten()), nil
}

func (h *toolHandler) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireSource(request)
	if errResult != nil {
		return errResult, nil
	}
	q, err := search.DecodeQuery([]byte(request.GetString("query", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		if len(q.ResultRequests) == 0 {
			q.ResultRequests = []schema.ResultRequest{{}}
		}
		q.ResultRequests[0].Length = limit
	}
	rs, err := h.searcher.Search(ctx, id, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return textResult(rs), nil
}
