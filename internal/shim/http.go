// ABOUTME: HTTP surface of the shim: health and tool execution endpoints.
// ABOUTME: Maps bridge outcomes to 200/502/503/504 with JSON bodies.

package shim

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxBodySize caps tool parameter bodies (1MB).
const maxBodySize = 1 << 20

// Handler serves the shim's HTTP endpoints in front of a bridge.
type Handler struct {
	bridge *Bridge
	logger *slog.Logger
}

// NewHandler creates an HTTP handler for the given bridge.
func NewHandler(bridge *Bridge, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bridge: bridge, logger: logger}
}

// RegisterRoutes registers the shim endpoints on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /tools/{toolName}", h.handleToolCall)
}

// healthResponse is the GET /health body.
type healthResponse struct {
	OK       bool   `json:"ok"`
	MCPReady bool   `json:"mcpReady"`
	Time     string `json:"time"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		OK:       true,
		MCPReady: h.bridge.Ready(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleToolCall(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("toolName")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > maxBodySize {
		h.writeError(w, http.StatusBadRequest, "request body too large")
		return
	}

	var arguments json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			h.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}
		arguments = body
	}

	text, err := h.bridge.Call(r.Context(), toolName, arguments)
	if err != nil {
		h.writeCallError(w, toolName, err)
		return
	}

	// Tool results are JSON produced by the server; pass structured results
	// through, fall back to a string for plain text.
	var result any
	if json.Valid([]byte(text)) {
		result = json.RawMessage(text)
	} else {
		result = text
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tool":    toolName,
		"result":  result,
	})
}

// writeCallError maps bridge failures to HTTP statuses: 503 before readiness,
// 502 for tool and child failures, 504 on timeout.
func (h *Handler) writeCallError(w http.ResponseWriter, toolName string, err error) {
	var toolErr *ToolError

	switch {
	case errors.Is(err, ErrNotReady):
		h.writeError(w, http.StatusServiceUnavailable, "MCP server not ready")
	case errors.Is(err, ErrCallTimeout):
		h.writeError(w, http.StatusGatewayTimeout, "tool call timed out")
	case errors.Is(err, ErrChildExited):
		h.writeError(w, http.StatusBadGateway, "MCP server process exited")
	case errors.As(err, &toolErr):
		h.logger.Warn("tool failed", "tool", toolName, "error", toolErr.Text)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"tool":    toolName,
			"error":   toolErr.Text,
		})
	default:
		h.logger.Error("tool call failed", "tool", toolName, "error", err)
		h.writeError(w, http.StatusInternalServerError, "tool execution failed")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// CORSMiddleware allows cross-origin calls to the shim endpoints.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
