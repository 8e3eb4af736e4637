package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/models"
)

// Tool argument structs.

type questionArgs struct {
	Question string `json:"question"`
}

type auditSearchArgs struct {
	Endpoint string `json:"endpoint"`
	Source   string `json:"source"`
	Model    string `json:"model"`
	Since    string `json:"since"`
	Limit    int    `json:"limit"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"kakapo_ask":          handleAsk,
	"kakapo_lookup":       handleLookup,
	"kakapo_cache_stats":  handleCacheStats,
	"kakapo_audit_search": handleAuditSearch,
	"kakapo_budget":       handleBudget,
}

var questionSchema = map[string]any{
	"type":     "object",
	"required": []string{"question"},
	"properties": map[string]any{
		"question": map[string]any{
			"type":        "string",
			"description": "The question to answer",
		},
	},
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "kakapo_ask",
		Description: "Answer a question about kakapo using the configured backend (model or encyclopedia).",
		InputSchema: questionSchema,
	},
	{
		Name:        "kakapo_lookup",
		Description: "Look a question up in the encyclopedia and return the first sentences of the best match.",
		InputSchema: questionSchema,
	},
	{
		Name:        "kakapo_cache_stats",
		Description: "Show answer cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "kakapo_audit_search",
		Description: "Search the request audit log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"endpoint": map[string]any{
					"type":        "string",
					"description": "Filter by endpoint, e.g. /ask (optional)",
				},
				"source": map[string]any{
					"type":        "string",
					"description": "Filter by answer source: llm or encyclopedia (optional)",
				},
				"model": map[string]any{
					"type":        "string",
					"description": "Filter by model (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum entries to return (optional, default 50)",
				},
			},
		},
	},
	{
		Name:        "kakapo_budget",
		Description: "Show token usage against the configured budget for the current period.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func parseQuestion(rawArgs json.RawMessage) (string, bool) {
	var args questionArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	q := strings.TrimSpace(args.Question)
	return q, q != ""
}

func handleAsk(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Answers == nil {
		return textResult("Answering is not configured.")
	}
	q, ok := parseQuestion(rawArgs)
	if !ok {
		return errorResult("question is required")
	}
	ans, err := s.deps.Answers.Ask(ctx, q)
	if err != nil {
		return errorResult("Error answering question: " + err.Error())
	}
	return textResult(formatAnswer(ans))
}

func handleLookup(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Lookup == nil {
		return textResult("Encyclopedia lookup is not configured.")
	}
	q, ok := parseQuestion(rawArgs)
	if !ok {
		return errorResult("question is required")
	}
	res := s.deps.Lookup.Answer(ctx, q)
	return textResult(formatLookup(res))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.deps.Cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Audit == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AuditQueryOpts{
		Endpoint: args.Endpoint,
		Source:   args.Source,
		Model:    args.Model,
		Limit:    50,
	}
	if args.Limit > 0 {
		opts.Limit = args.Limit
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.deps.Audit.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatAuditEntries(entries))
}

func handleBudget(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	st, err := s.deps.Budget.Status(ctx)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(st))
}
