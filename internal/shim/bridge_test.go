// ABOUTME: Tests for the bridge lifecycle and request correlation.
// ABOUTME: Drives a fake MCP child over in-memory pipes, no real process.

package shim

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/appdeck/appdeck-gateway/internal/toolserver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChild simulates the MCP server side of the pipes. A reader goroutine
// drains the bridge's stdin continuously so writes never block.
type fakeChild struct {
	requests chan toolserver.JSONRPCRequest
	stdout   *io.PipeWriter // lines the child sends back
	stderr   *io.PipeWriter
}

// newTestBridge wires a bridge to a fake child over in-memory pipes.
func newTestBridge(t *testing.T, timeout time.Duration) (*Bridge, *fakeChild) {
	t.Helper()

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	b, err := NewBridge(Config{
		Command:     []string{"fake-child"},
		Logger:      testLogger(),
		CallTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	b.stdin = stdinW
	b.attach(stdoutR, stderrR)

	child := &fakeChild{
		requests: make(chan toolserver.JSONRPCRequest, 16),
		stdout:   stdoutW,
		stderr:   stderrW,
	}
	go func() {
		scanner := bufio.NewScanner(stdinR)
		for scanner.Scan() {
			var req toolserver.JSONRPCRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			child.requests <- req
		}
	}()

	t.Cleanup(func() {
		stdinW.Close()
		stdoutW.Close()
		stderrW.Close()
	})

	return b, child
}

// announceReady writes the readiness marker and waits for the bridge to see it.
func (c *fakeChild) announceReady(t *testing.T, b *Bridge) {
	t.Helper()
	io.WriteString(c.stderr, toolserver.ReadyMarker+"\n")
	waitFor(t, func() bool { return b.Ready() }, "bridge never became ready")
}

// respond answers the next request with a reply built by fn.
func (c *fakeChild) respond(t *testing.T, fn func(req toolserver.JSONRPCRequest) toolserver.JSONRPCResponse) {
	t.Helper()
	go func() {
		req, ok := <-c.requests
		if !ok {
			return
		}
		resp := fn(req)
		data, _ := json.Marshal(resp)
		c.stdout.Write(append(data, '\n'))
	}()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func textResult(id json.RawMessage, text string, isError bool) toolserver.JSONRPCResponse {
	return toolserver.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: toolserver.MCPCallToolResult{
			Content: []toolserver.MCPContent{{Type: "text", Text: text}},
			IsError: isError,
		},
	}
}

func TestBridge_StartsInStartingState(t *testing.T) {
	b, _ := newTestBridge(t, time.Second)
	if got := b.State(); got != StateStarting {
		t.Errorf("State() = %q, want %q", got, StateStarting)
	}
	if b.Ready() {
		t.Error("Ready() = true before marker")
	}
}

func TestBridge_ReadyAfterMarker(t *testing.T) {
	b, child := newTestBridge(t, time.Second)

	// Unrelated stderr lines do not flip readiness
	io.WriteString(child.stderr, "starting up...\n")
	time.Sleep(20 * time.Millisecond)
	if b.Ready() {
		t.Fatal("Ready() = true before marker")
	}

	child.announceReady(t, b)
	if got := b.State(); got != StateReady {
		t.Errorf("State() = %q, want %q", got, StateReady)
	}
}

func TestBridge_CallBeforeReady(t *testing.T) {
	b, _ := newTestBridge(t, time.Second)

	_, err := b.Call(context.Background(), "health", nil)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Call() error = %v, want ErrNotReady", err)
	}
}

func TestBridge_CallSuccess(t *testing.T) {
	b, child := newTestBridge(t, time.Second)
	child.announceReady(t, b)

	child.respond(t, func(req toolserver.JSONRPCRequest) toolserver.JSONRPCResponse {
		if req.Method != "tools/call" {
			t.Errorf("method = %q, want tools/call", req.Method)
		}
		var params toolserver.MCPCallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("params: %v", err)
		}
		if params.Name != "health" {
			t.Errorf("tool name = %q, want health", params.Name)
		}
		return textResult(req.ID, `{"ok":true}`, false)
	})

	text, err := b.Call(context.Background(), "health", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("Call() result = %q", text)
	}
}

func TestBridge_CallToolError(t *testing.T) {
	b, child := newTestBridge(t, time.Second)
	child.announceReady(t, b)

	child.respond(t, func(req toolserver.JSONRPCRequest) toolserver.JSONRPCResponse {
		return textResult(req.ID, "User not found: ghost@company.com", true)
	})

	_, err := b.Call(context.Background(), "assign_user_to_app", json.RawMessage(`{"user_email":"ghost@company.com"}`))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Call() error = %v, want ToolError", err)
	}
	if toolErr.Text != "User not found: ghost@company.com" {
		t.Errorf("ToolError.Text = %q", toolErr.Text)
	}
}

func TestBridge_CallProtocolError(t *testing.T) {
	b, child := newTestBridge(t, time.Second)
	child.announceReady(t, b)

	child.respond(t, func(req toolserver.JSONRPCRequest) toolserver.JSONRPCResponse {
		return toolserver.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &toolserver.JSONRPCError{Code: toolserver.JSONRPCInvalidParams, Message: "unknown tool: bogus"},
		}
	})

	_, err := b.Call(context.Background(), "bogus", nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Call() error = %v, want ToolError", err)
	}
	if !strings.Contains(toolErr.Text, "unknown tool") {
		t.Errorf("ToolError.Text = %q", toolErr.Text)
	}
}

func TestBridge_CallTimeout(t *testing.T) {
	b, child := newTestBridge(t, 50*time.Millisecond)
	child.announceReady(t, b)

	// Child never answers
	_, err := b.Call(context.Background(), "health", nil)
	if !errors.Is(err, ErrCallTimeout) {
		t.Errorf("Call() error = %v, want ErrCallTimeout", err)
	}
}

func TestBridge_CallContextCancelled(t *testing.T) {
	b, child := newTestBridge(t, time.Minute)
	child.announceReady(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.Call(ctx, "health", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestBridge_ExitFailsPendingCalls(t *testing.T) {
	b, child := newTestBridge(t, time.Minute)
	child.announceReady(t, b)

	done := make(chan error, 1)
	go func() {
		_, err := b.Call(context.Background(), "health", nil)
		done <- err
	}()

	// Give the call time to register, then simulate child death
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.pending) == 1
	}, "call never registered")
	b.onExit(errors.New("signal: killed"))

	select {
	case err := <-done:
		if !errors.Is(err, ErrChildExited) {
			t.Errorf("Call() error = %v, want ErrChildExited", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call never failed")
	}

	if got := b.State(); got != StateExited {
		t.Errorf("State() = %q, want %q", got, StateExited)
	}

	// New calls fail fast after exit
	_, err := b.Call(context.Background(), "health", nil)
	if !errors.Is(err, ErrChildExited) {
		t.Errorf("Call() after exit error = %v, want ErrChildExited", err)
	}
}

func TestBridge_ConcurrentCallsCorrelated(t *testing.T) {
	b, child := newTestBridge(t, 2*time.Second)
	child.announceReady(t, b)

	// Answer both requests in reverse arrival order to prove id correlation
	go func() {
		reqs := []toolserver.JSONRPCRequest{<-child.requests, <-child.requests}
		for i := len(reqs) - 1; i >= 0; i-- {
			var params toolserver.MCPCallToolParams
			json.Unmarshal(reqs[i].Params, &params)
			data, _ := json.Marshal(textResult(reqs[i].ID, params.Name, false))
			child.stdout.Write(append(data, '\n'))
		}
	}()

	results := make(chan string, 2)
	for _, name := range []string{"health", "list_users"} {
		go func(name string) {
			text, err := b.Call(context.Background(), name, nil)
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			if text != name {
				results <- "mismatch: " + name + " got " + text
				return
			}
			results <- "ok"
		}(name)
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r != "ok" {
				t.Error(r)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("calls did not complete")
		}
	}
}
