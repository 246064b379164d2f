package freqsched

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/recrawl/pagedb"
)

var testMCPImpl = &mcp.Implementation{Name: "recrawl-test", Version: "0.1.0"}

func mcpSession(t *testing.T, sched *Scheduler) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	sched.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_RequestAndDump(t *testing.T) {
	db := testPageDB(t)
	sched := testScheduler(t, db)
	insertPage(t, db, 0x1, "http://one.example", 1, 2000)
	loadTable(t, sched, PageFreq{Hash: 0x1, Freq: 2})
	session := mcpSession(t, sched)

	text := mcpCallTool(t, session, "recrawl_request", map[string]any{"max_requests": 1})
	var pr PageRequest
	if err := json.Unmarshal([]byte(text), &pr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pr.URLs) != 1 || pr.URLs[0] != "http://one.example" {
		t.Fatalf("page request: %+v", pr)
	}

	text = mcpCallTool(t, session, "recrawl_dump", map[string]any{})
	var dump struct {
		Schedule string `json:"schedule"`
	}
	if err := json.Unmarshal([]byte(text), &dump); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if !strings.Contains(dump.Schedule, "0000000000000001") {
		t.Fatalf("dump: %q", dump.Schedule)
	}
}

func TestMCP_AddPage(t *testing.T) {
	db := testPageDB(t)
	sched := testScheduler(t, db)
	session := mcpSession(t, sched)

	mcpCallTool(t, session, "recrawl_add_page", map[string]any{
		"url":  "http://new.example",
		"time": 1000,
	})

	pi, err := db.GetInfo(context.Background(), pagedb.Hash("http://new.example"))
	if err != nil || pi == nil || pi.NCrawls != 1 {
		t.Fatalf("page not recorded: pi=%v err=%v", pi, err)
	}
}
