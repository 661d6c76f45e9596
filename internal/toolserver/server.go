// ABOUTME: MCP server over stdio: newline-delimited JSON-RPC on stdin/stdout.
// ABOUTME: Dispatches initialize, ping, tools/list, and tools/call to the registry.

package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/appdeck/appdeck-gateway/internal/tools"
)

// ReadyMarker is printed to the announce writer (stderr) once the server is
// accepting requests. The HTTP shim watches child stderr for this line.
const ReadyMarker = "MCP server started (stdio)."

// protocolVersion is the MCP protocol version advertised in initialize responses.
const protocolVersion = "2024-11-05"

// MaxLineSize is the maximum allowed size for a single request line (1MB).
const MaxLineSize = 1 << 20

// Config holds configuration for the stdio tool server.
type Config struct {
	Registry *tools.Registry
	Logger   *slog.Logger // must not write to Out; stdout carries JSON-RPC only
	In       io.Reader    // defaults applied by caller (usually os.Stdin)
	Out      io.Writer    // usually os.Stdout
	Announce io.Writer    // readiness marker target, usually os.Stderr
	Name     string
	Version  string
}

// Server reads newline-delimited JSON-RPC requests and writes one response
// line per request. Notifications produce no output.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	announce io.Writer
	name     string
	version  string

	outMu sync.Mutex
}

// NewServer creates a new stdio tool server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.In == nil || cfg.Out == nil {
		return nil, errors.New("in and out streams are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "appdeck-tools"
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	return &Server{
		registry: cfg.Registry,
		logger:   logger,
		in:       cfg.In,
		out:      cfg.Out,
		announce: cfg.Announce,
		name:     name,
		version:  version,
	}, nil
}

// Run announces readiness and serves requests until the input stream closes
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.announce != nil {
		fmt.Fprintln(s.announce, ReadyMarker)
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(nil, JSONRPCParseError, "invalid JSON", nil)
			continue
		}

		if req.JSONRPC != "2.0" {
			s.writeError(req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
			continue
		}

		s.handleRequest(ctx, req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleRequest dispatches a single parsed request. Notifications (no id)
// are accepted silently per the MCP stdio transport.
func (s *Server) handleRequest(ctx context.Context, req JSONRPCRequest) {
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"
	if isNotification {
		s.logger.Debug("notification accepted", "method", req.Method)
		return
	}

	s.logger.Debug("request", "method", req.Method, "id", string(req.ID))

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "ping":
		s.writeResult(req.ID, map[string]any{})
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		s.writeError(req.ID, JSONRPCMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleInitialize(req JSONRPCRequest) {
	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}
	s.writeResult(req.ID, result)
}

func (s *Server) handleToolsList(req JSONRPCRequest) {
	list := s.registry.List()

	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(list)),
	}
	for i, tool := range list {
		result.Tools[i] = MCPToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	s.logger.Debug("tools/list", "count", len(list))
	s.writeResult(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req JSONRPCRequest) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.writeError(req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}

	if params.Name == "" {
		s.writeError(req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	output, err := s.registry.Call(ctx, params.Name, args)
	if err != nil {
		if errors.Is(err, tools.ErrToolNotFound) {
			s.writeError(req.ID, JSONRPCInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name), nil)
			return
		}

		// Tool execution failures become isError results, not protocol errors
		s.logger.Warn("tool call failed", "tool", params.Name, "error", err)
		s.writeResult(req.ID, MCPCallToolResult{
			Content: []MCPContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	s.logger.Debug("tools/call complete", "tool", params.Name)
	s.writeResult(req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: string(output)}},
	})
}

func (s *Server) writeResult(id json.RawMessage, result any) {
	s.writeResponse(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) writeError(id json.RawMessage, code int, message string, data any) {
	s.writeResponse(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) writeResponse(resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to encode response", "error", err)
		return
	}
	data = append(data, '\n')

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
