package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domnote/annotation"
)

// RegisterMCP registers the agent-facing annotation operations as MCP
// tools. The HTTP surface stays the overlay's; these tools are how the
// agent reads and retires annotations.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerStatusTool(srv)
	s.registerListTool(srv)
	s.registerGetTool(srv)
	s.registerResolveTool(srv)
	s.registerDeleteTool(srv)
	s.registerClearTool(srv)
	s.registerWaitTool(srv)
	s.registerConsumeTool(srv)
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

// registerTool adapts an endpoint func into the SDK's tool handler shape:
// decode errors and endpoint errors become tool errors, results are
// marshalled to a single JSON text block.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(ctx context.Context, req *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}
		resp, err := endpoint(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

type emptyReq struct{}

type idReq struct {
	ID string `json:"id"`
}

var idProperty = map[string]any{
	"id": map[string]any{"type": "string", "description": "Annotation id"},
}

func (s *Server) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_status",
		Description: "Report whether the annotation server is running, its port, and the stored annotation count.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(_ context.Context, _ *emptyReq) (any, error) {
		port := s.Port()
		return map[string]any{
			"running": port != 0,
			"port":    port,
			"count":   s.store.Len(),
		}, nil
	})
}

func (s *Server) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_list",
		Description: "List all stored annotations in creation order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(_ context.Context, _ *emptyReq) (any, error) {
		return s.store.List(), nil
	})
}

func (s *Server) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_get",
		Description: "Fetch a single annotation by id.",
		InputSchema: inputSchema(idProperty, []string{"id"}),
	}
	registerTool(srv, tool, func(_ context.Context, req *idReq) (any, error) {
		a := s.store.Get(req.ID)
		if a == nil {
			return nil, annotation.ErrNotFound
		}
		return a, nil
	})
}

func (s *Server) registerResolveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_resolve",
		Description: "Mark an annotation resolved.",
		InputSchema: inputSchema(idProperty, []string{"id"}),
	}
	registerTool(srv, tool, func(_ context.Context, req *idReq) (any, error) {
		return s.store.Resolve(req.ID)
	})
}

func (s *Server) registerDeleteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_delete",
		Description: "Delete an annotation.",
		InputSchema: inputSchema(idProperty, []string{"id"}),
	}
	registerTool(srv, tool, func(_ context.Context, req *idReq) (any, error) {
		if !s.store.Delete(req.ID) {
			return nil, annotation.ErrNotFound
		}
		return map[string]bool{"success": true}, nil
	})
}

func (s *Server) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_clear",
		Description: "Delete every stored annotation, returning how many were removed.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(_ context.Context, _ *emptyReq) (any, error) {
		return map[string]int{"deleted": s.store.Clear()}, nil
	})
}

type waitReq struct {
	TimeoutMs int `json:"timeout_ms"`
}

func (s *Server) registerWaitTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_wait_for_send",
		Description: "Block until the user presses send in the overlay, or the timeout elapses.",
		InputSchema: inputSchema(map[string]any{
			"timeout_ms": map[string]any{"type": "integer", "description": "Maximum wait in milliseconds (default 30000)"},
		}, nil),
	}
	registerTool(srv, tool, func(_ context.Context, req *waitReq) (any, error) {
		timeout := time.Duration(req.TimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return map[string]bool{"triggered": s.WaitForSend(timeout)}, nil
	})
}

func (s *Server) registerConsumeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "annotations_consume_send",
		Description: "Poll whether a send was requested since the last check, resetting the flag.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(_ context.Context, _ *emptyReq) (any, error) {
		return map[string]bool{"triggered": s.ConsumeSend()}, nil
	})
}
