// ABOUTME: Bridge to a child MCP process over stdio with request correlation.
// ABOUTME: Tracks lifecycle (starting/ready/exited) and matches replies by id.

package shim

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appdeck/appdeck-gateway/internal/toolserver"
)

// Bridge errors
var (
	ErrNotReady    = errors.New("MCP server not ready")
	ErrChildExited = errors.New("MCP server process exited")
	ErrCallTimeout = errors.New("tool call timed out")
)

// ToolError is a tool execution failure reported by the child. The text is
// the child's error content, suitable for returning to the HTTP caller.
type ToolError struct {
	Text string
}

func (e *ToolError) Error() string {
	return e.Text
}

// State is the bridge lifecycle state.
type State string

const (
	StateStarting State = "starting" // child spawned, ready marker not yet seen
	StateReady    State = "ready"    // child announced readiness on stderr
	StateExited   State = "exited"   // child process has terminated
)

// DefaultCallTimeout bounds how long a tool call waits for the child's reply.
const DefaultCallTimeout = 15 * time.Second

// maxLineSize caps child output lines (1MB, matching the server side).
const maxLineSize = 1 << 20

// Config holds configuration for the bridge.
type Config struct {
	Command     []string      // child argv, e.g. ["appdeck-tools"]
	Logger      *slog.Logger
	CallTimeout time.Duration // zero means DefaultCallTimeout
	ReadyMarker string        // zero means toolserver.ReadyMarker
}

// Bridge supervises the child MCP process and correlates JSON-RPC requests
// with replies by id. Safe for concurrent use.
type Bridge struct {
	logger      *slog.Logger
	command     []string
	callTimeout time.Duration
	readyMarker string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex // serializes stdin writes

	mu      sync.Mutex
	state   State
	pending map[string]chan *toolserver.JSONRPCResponse
}

// NewBridge creates a bridge from the given configuration.
func NewBridge(cfg Config) (*Bridge, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("command is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	marker := cfg.ReadyMarker
	if marker == "" {
		marker = toolserver.ReadyMarker
	}

	return &Bridge{
		logger:      logger,
		command:     cfg.Command,
		callTimeout: timeout,
		readyMarker: marker,
		state:       StateStarting,
		pending:     make(map[string]chan *toolserver.JSONRPCResponse),
	}, nil
}

// Start spawns the child process and begins watching its streams.
func (b *Bridge) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting MCP server: %w", err)
	}

	b.cmd = cmd
	b.stdin = stdin

	b.logger.Info("MCP server spawned", "command", strings.Join(b.command, " "), "pid", cmd.Process.Pid)

	b.attach(stdout, stderr)

	go func() {
		err := cmd.Wait()
		b.onExit(err)
	}()

	return nil
}

// attach starts the stdout and stderr readers. Split out from Start so tests
// can drive a bridge over in-memory pipes without a real process.
func (b *Bridge) attach(stdout, stderr io.Reader) {
	go b.watchStderr(stderr)
	go b.readStdout(stdout)
}

// watchStderr relays child log lines and flips the bridge to ready when the
// readiness marker appears.
func (b *Bridge) watchStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		b.logger.Info("mcp stderr", "line", line)

		if strings.Contains(line, b.readyMarker) {
			b.mu.Lock()
			if b.state == StateStarting {
				b.state = StateReady
			}
			b.mu.Unlock()
			b.logger.Info("MCP server ready")
		}
	}
}

// readStdout decodes child responses and resolves the matching pending call.
func (b *Bridge) readStdout(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp toolserver.JSONRPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			b.logger.Warn("unparseable line from MCP server", "error", err)
			continue
		}

		id := idKey(resp.ID)
		if id == "" {
			b.logger.Warn("response without id from MCP server")
			continue
		}

		b.mu.Lock()
		ch, ok := b.pending[id]
		if ok {
			delete(b.pending, id)
		}
		b.mu.Unlock()

		if !ok {
			b.logger.Warn("unmatched response from MCP server", "id", id)
			continue
		}
		ch <- &resp
	}
}

// onExit marks the bridge exited and fails every pending call.
func (b *Bridge) onExit(err error) {
	b.mu.Lock()
	b.state = StateExited
	pending := b.pending
	b.pending = make(map[string]chan *toolserver.JSONRPCResponse)
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("MCP server exited", "error", err)
	} else {
		b.logger.Info("MCP server exited")
	}

	for id, ch := range pending {
		b.logger.Warn("failing pending call after exit", "id", id)
		close(ch)
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Ready reports whether the child has announced readiness and is still running.
func (b *Bridge) Ready() bool {
	return b.State() == StateReady
}

// Stop terminates the child process if it is running.
func (b *Bridge) Stop() {
	if b.cmd != nil && b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
}

// Call sends a tools/call request to the child and waits for the correlated
// reply. Returns the raw JSON text of the tool result content on success,
// *ToolError if the tool reported a failure, ErrNotReady before readiness,
// ErrChildExited if the child dies mid-call, or ErrCallTimeout.
func (b *Bridge) Call(ctx context.Context, toolName string, arguments json.RawMessage) (string, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	id := uuid.New().String()
	idJSON, err := json.Marshal(id)
	if err != nil {
		return "", err
	}

	params, err := json.Marshal(toolserver.MCPCallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return "", err
	}

	req := toolserver.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      idJSON,
		Method:  "tools/call",
		Params:  params,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	data = append(data, '\n')

	ch := make(chan *toolserver.JSONRPCResponse, 1)

	b.mu.Lock()
	if b.state != StateReady {
		state := b.state
		b.mu.Unlock()
		if state == StateExited {
			return "", ErrChildExited
		}
		return "", ErrNotReady
	}
	b.pending[id] = ch
	b.mu.Unlock()

	b.writeMu.Lock()
	_, err = b.stdin.Write(data)
	b.writeMu.Unlock()
	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", fmt.Errorf("writing to MCP server: %w", err)
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return "", ErrChildExited
		}
		return b.decodeToolResult(resp)
	case <-timer.C:
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", fmt.Errorf("%w after %s", ErrCallTimeout, b.callTimeout)
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", ctx.Err()
	}
}

// decodeToolResult unwraps a tools/call reply into the result text.
func (b *Bridge) decodeToolResult(resp *toolserver.JSONRPCResponse) (string, error) {
	if resp.Error != nil {
		return "", &ToolError{Text: resp.Error.Message}
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("re-encoding result: %w", err)
	}

	var result toolserver.MCPCallToolResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return "", fmt.Errorf("decoding tool result: %w", err)
	}

	var text string
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}

	if result.IsError {
		return "", &ToolError{Text: text}
	}
	return text, nil
}

// idKey normalizes a raw JSON id for pending-map lookup. String ids are
// unquoted; numeric ids use their literal text.
func idKey(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
