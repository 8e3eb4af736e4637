package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kakapo-ai/kakapo/pkg/encyclopedia"
	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/rs/zerolog/log"
)

// Asker answers a question through the configured backend.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// Lookuper answers from the encyclopedia only.
type Lookuper interface {
	Answer(ctx context.Context, raw string) encyclopedia.Result
}

// CacheStatter provides cache statistics without coupling to a concrete cache implementation.
type CacheStatter interface {
	Stats(ctx context.Context) (models.CacheStats, error)
}

// AuditSearcher queries the audit log.
type AuditSearcher interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error)
}

// BudgetReporter reports usage against the token cap.
type BudgetReporter interface {
	Status(ctx context.Context) (models.BudgetStatus, error)
}

// Deps are the services exposed as tools. Any of them may be nil.
type Deps struct {
	Answers Asker
	Lookup  Lookuper
	Cache   CacheStatter
	Audit   AuditSearcher
	Budget  BudgetReporter
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	deps    Deps
	version string
}

// New creates a new MCP Server.
func New(deps Deps, version string) *Server {
	return &Server{deps: deps, version: version}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, errorResponse(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, resp)
		}
	}
	return scanner.Err()
}

// dispatch returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != jsonrpcVersion {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "jsonrpc must be 2.0")
	}

	var resp *Response
	switch req.Method {
	case "initialize":
		resp = resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "kakapo", Version: s.version},
		})
	case "ping":
		resp = resultResponse(req.ID, map[string]any{})
	case "tools/list":
		resp = resultResponse(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		resp = s.handleToolsCall(ctx, req)
	default:
		resp = errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
	if req.IsNotification() {
		log.Debug().Str("method", req.Method).Msg("mcp notification")
		return nil
	}
	return resp
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) (resp *Response) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return resultResponse(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("tool", params.Name).Msg("mcp: tool panicked")
			resp = errorResponse(req.ID, CodeInternalError, "internal error")
		}
	}()
	log.Debug().Str("tool", params.Name).Msg("mcp: tool call")
	return resultResponse(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) writeResponse(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("mcp: marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("mcp: write response")
	}
}
