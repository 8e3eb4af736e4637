package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/encyclopedia"
	"github.com/kakapo-ai/kakapo/pkg/models"
)

type fakeAsker struct{ err error }

func (f fakeAsker) Ask(_ context.Context, q string) (*models.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Answer{Text: "Kakapo answer to: " + q, Source: models.SourceLLM, Model: "gemini-2.0-flash"}, nil
}

type fakeLookup struct{}

func (fakeLookup) Answer(_ context.Context, raw string) encyclopedia.Result {
	if strings.Contains(raw, "kakapo") {
		return encyclopedia.Result{Text: "The kākāpō is a parrot.", Title: "Kākāpō", Found: true}
	}
	return encyclopedia.Result{Text: encyclopedia.NotFoundReply}
}

// fakeCache implements CacheStatter for testing.
type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(context.Context) (models.CacheStats, error) { return f.stats, nil }

type fakeAudit struct {
	entries []models.AuditEntry
	last    models.AuditQueryOpts
}

func (f *fakeAudit) Query(_ context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	f.last = opts
	return f.entries, nil
}

type fakeBudget struct{ st models.BudgetStatus }

func (f fakeBudget) Status(context.Context) (models.BudgetStatus, error) { return f.st, nil }

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	p := ToolCallParams{Name: name}
	if args != "" {
		p.Arguments = json.RawMessage(args)
	}
	params, _ := json.Marshal(p)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	json.Unmarshal(data, &result)
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(Deps{}, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "kakapo" {
		t.Errorf("server name = %s, want kakapo", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(Deps{}, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != len(toolHandlers) {
		t.Errorf("got %d tools, want %d", len(result.Tools), len(toolHandlers))
	}
	for _, tool := range result.Tools {
		if _, ok := toolHandlers[tool.Name]; !ok {
			t.Errorf("listed tool %s has no handler", tool.Name)
		}
	}
}

func TestToolCallAsk(t *testing.T) {
	srv := New(Deps{Answers: fakeAsker{}}, "test")

	result := callTool(t, srv, "kakapo_ask", `{"question":"Do kakapo fly?"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "Do kakapo fly?") || !strings.Contains(text, "model: gemini-2.0-flash") {
		t.Errorf("unexpected answer output: %s", text)
	}
}

func TestToolCallAskErrors(t *testing.T) {
	srv := New(Deps{Answers: fakeAsker{err: errors.New("no available models")}}, "test")

	if r := callTool(t, srv, "kakapo_ask", `{}`); !r.IsError {
		t.Error("expected error for missing question")
	}
	r := callTool(t, srv, "kakapo_ask", `{"question":"kakapo?"}`)
	if !r.IsError || !strings.Contains(r.Content[0].Text, "no available models") {
		t.Errorf("expected backend error, got: %+v", r)
	}
}

func TestToolCallLookup(t *testing.T) {
	srv := New(Deps{Lookup: fakeLookup{}}, "test")

	text := callTool(t, srv, "kakapo_lookup", `{"question":"what is a kakapo"}`).Content[0].Text
	if !strings.Contains(text, "article: Kākāpō") {
		t.Errorf("expected article title, got: %s", text)
	}

	text = callTool(t, srv, "kakapo_lookup", `{"question":"quarks"}`).Content[0].Text
	if text != encyclopedia.NotFoundReply {
		t.Errorf("expected not-found reply, got: %s", text)
	}
}

func TestToolCallNotConfigured(t *testing.T) {
	srv := New(Deps{}, "test")
	for _, name := range []string{"kakapo_ask", "kakapo_lookup", "kakapo_cache_stats", "kakapo_audit_search", "kakapo_budget"} {
		text := callTool(t, srv, name, `{"question":"x"}`).Content[0].Text
		if !strings.Contains(text, "not configured") {
			t.Errorf("%s: expected 'not configured', got: %s", name, text)
		}
	}
}

func TestToolCallCacheStats(t *testing.T) {
	cache := &fakeCache{stats: models.CacheStats{Backend: "memory", Entries: 42, Hits: 10, Misses: 5}}
	srv := New(Deps{Cache: cache}, "test")

	text := callTool(t, srv, "kakapo_cache_stats", "").Content[0].Text
	if !strings.Contains(text, "42") || !strings.Contains(text, "66.7%") || !strings.Contains(text, "memory") {
		t.Errorf("unexpected cache stats output: %s", text)
	}
}

func TestToolCallAuditSearch(t *testing.T) {
	audit := &fakeAudit{entries: []models.AuditEntry{{
		RequestID: "req-1", Endpoint: "/ask", Source: models.SourceLLM, Model: "gemini-2.0-flash",
		StatusCode: 200, TotalTokens: 30, Question: "What do kakapo eat?", CreatedAt: time.Now(),
	}}}
	srv := New(Deps{Audit: audit}, "test")

	text := callTool(t, srv, "kakapo_audit_search", `{"endpoint":"/ask","since":"2026-01-02"}`).Content[0].Text
	if !strings.Contains(text, "req-1") || !strings.Contains(text, "What do kakapo eat?") {
		t.Errorf("unexpected audit output: %s", text)
	}
	if audit.last.Endpoint != "/ask" || audit.last.Limit != 50 {
		t.Errorf("unexpected query opts: %+v", audit.last)
	}
	if audit.last.Since.Format("2006-01-02") != "2026-01-02" {
		t.Errorf("since not parsed: %v", audit.last.Since)
	}

	if r := callTool(t, srv, "kakapo_audit_search", `{"since":"yesterday"}`); !r.IsError {
		t.Error("expected error for bad date")
	}
}

func TestToolCallBudget(t *testing.T) {
	srv := New(Deps{Budget: fakeBudget{st: models.BudgetStatus{
		Period: models.BudgetDaily, MaxTokens: 1000, Used: 250, Remaining: 750,
	}}}, "test")

	text := callTool(t, srv, "kakapo_budget", "").Content[0].Text
	if !strings.Contains(text, "daily") || !strings.Contains(text, "25.0%") {
		t.Errorf("unexpected budget output: %s", text)
	}
}

func TestUnknownTool(t *testing.T) {
	srv := New(Deps{}, "test")
	result := callTool(t, srv, "nonexistent", "")
	if !result.IsError {
		t.Error("expected isError for unknown tool")
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(Deps{}, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestPing(t *testing.T) {
	srv := New(Deps{}, "test")
	resp := sendAndReceive(t, srv, Request{JSONRPC: "2.0", ID: json.RawMessage(`10`), Method: "ping"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
}

func TestParseError(t *testing.T) {
	srv := New(Deps{}, "test")
	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("not json\n"), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := New(Deps{}, "test")
	line, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestInvalidJSONRPCVersion(t *testing.T) {
	srv := New(Deps{}, "test")
	resp := sendAndReceive(t, srv, Request{JSONRPC: "1.0", ID: json.RawMessage(`11`), Method: "ping"})
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Errorf("expected invalid request, got %+v", resp.Error)
	}
}

func TestToolPanicBecomesInternalError(t *testing.T) {
	toolHandlers["kakapo_test_panic"] = func(context.Context, *Server, json.RawMessage) ToolCallResult {
		panic("boom")
	}
	defer delete(toolHandlers, "kakapo_test_panic")

	srv := New(Deps{}, "test")
	params, _ := json.Marshal(ToolCallParams{Name: "kakapo_test_panic"})
	resp := sendAndReceive(t, srv, Request{JSONRPC: "2.0", ID: json.RawMessage(`12`), Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Errorf("expected internal error, got %+v", resp.Error)
	}
}
