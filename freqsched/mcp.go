package freqsched

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/recrawl/kit"
	"github.com/hazyhaar/recrawl/pagedb"
)

// RegisterMCP registers the scheduler tools on an MCP server.
func (s *Scheduler) RegisterMCP(srv *mcp.Server) {
	s.registerRequest(srv)
	s.registerAddPage(srv)
	s.registerDump(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Scheduler) registerRequest(srv *mcp.Server) {
	type req struct {
		MaxRequests int `json:"max_requests"`
	}

	tool := &mcp.Tool{
		Name:        "recrawl_request",
		Description: "Dequeue the next batch of URLs to crawl",
		InputSchema: inputSchema(map[string]any{
			"max_requests": map[string]any{"type": "integer", "description": "Maximum number of URLs to return"},
		}, []string{"max_requests"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Request(ctx, p.MaxRequests)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Scheduler) registerAddPage(srv *mcp.Server) {
	type req struct {
		URL         string   `json:"url"`
		Time        int64    `json:"time"`
		ContentHash uint64   `json:"content_hash"`
		Links       []string `json:"links"`
	}

	tool := &mcp.Tool{
		Name:        "recrawl_add_page",
		Description: "Record a completed fetch in the page store",
		InputSchema: inputSchema(map[string]any{
			"url":          map[string]any{"type": "string", "description": "Fetched URL"},
			"time":         map[string]any{"type": "integer", "description": "Fetch time in epoch seconds (0 = now)"},
			"content_hash": map[string]any{"type": "integer", "description": "Content fingerprint"},
			"links":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "URLs discovered on the page"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		page := &pagedb.CrawledPage{
			URL:         p.URL,
			Time:        p.Time,
			ContentHash: p.ContentHash,
			Links:       p.Links,
		}
		if err := s.Add(ctx, page); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Scheduler) registerDump(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "recrawl_dump",
		Description: "Dump the schedule in sorted order, one entry per line",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		var buf bytes.Buffer
		if err := s.Dump(&buf); err != nil {
			return nil, err
		}
		return map[string]string{"schedule": buf.String()}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
