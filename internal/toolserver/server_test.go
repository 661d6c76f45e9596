// ABOUTME: Tests for the stdio tool server dispatch loop.
// ABOUTME: Drives requests through in-memory streams and parses response lines.

package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/appdeck/appdeck-gateway/internal/store"
	"github.com/appdeck/appdeck-gateway/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runServer feeds the input lines through a server and returns the decoded
// response lines plus the announce output.
func runServer(t *testing.T, input string) ([]JSONRPCResponse, string) {
	t.Helper()

	registry := tools.NewRegistry(testLogger())
	if err := registry.RegisterAll(tools.DashboardTools(seededStore(t))); err != nil {
		t.Fatalf("registering tools: %v", err)
	}

	var out, announce bytes.Buffer
	srv, err := NewServer(Config{
		Registry: registry,
		Logger:   testLogger(),
		In:       strings.NewReader(input),
		Out:      &out,
		Announce: &announce,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var responses []JSONRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp JSONRPCResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("invalid response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses, announce.String()
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMockStore()
	ctx := context.Background()
	if err := s.CreateUser(ctx, &store.User{Name: "Alice", Email: "alice@company.com"}); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	if err := s.CreateApp(ctx, &store.App{Name: "Notion"}); err != nil {
		t.Fatalf("seeding app: %v", err)
	}
	return s
}

func resultAs(t *testing.T, resp JSONRPCResponse, v any) {
	t.Helper()
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
}

func TestServer_AnnouncesReadiness(t *testing.T) {
	_, announce := runServer(t, "")
	if !strings.Contains(announce, ReadyMarker) {
		t.Errorf("announce output %q missing ready marker", announce)
	}
}

func TestServer_Initialize(t *testing.T) {
	responses, _ := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}

	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	resultAs(t, resp, &result)
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "appdeck-tools" {
		t.Errorf("serverInfo.name = %q", result.ServerInfo.Name)
	}
}

func TestServer_ToolsList(t *testing.T) {
	responses, _ := runServer(t, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`+"\n")
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}

	var result MCPListToolsResult
	resultAs(t, responses[0], &result)
	if len(result.Tools) != 6 {
		t.Fatalf("got %d tools, want 6", len(result.Tools))
	}
	// Sorted by name
	if result.Tools[0].Name != "assign_user_to_app" {
		t.Errorf("first tool = %q", result.Tools[0].Name)
	}
	if len(result.Tools[0].InputSchema) == 0 {
		t.Error("inputSchema is empty")
	}
}

func TestServer_ToolsCall(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_users","arguments":{"search":"alice"}}}` + "\n"
	responses, _ := runServer(t, input)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}

	var result MCPCallToolResult
	resultAs(t, responses[0], &result)
	if result.IsError {
		t.Fatalf("unexpected isError, content: %+v", result.Content)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}

	var users []map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &users); err != nil {
		t.Fatalf("content text is not JSON: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("got %d users, want 1", len(users))
	}
}

func TestServer_ToolsCall_NoArguments(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"health"}}` + "\n"
	responses, _ := runServer(t, input)

	var result MCPCallToolResult
	resultAs(t, responses[0], &result)
	if result.IsError {
		t.Fatalf("unexpected isError: %+v", result.Content)
	}
}

func TestServer_ToolsCall_ToolFailure(t *testing.T) {
	// Missing user turns into an isError result, not a protocol error
	input := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"assign_user_to_app","arguments":{"user_email":"ghost@company.com","app_name":"Notion"}}}` + "\n"
	responses, _ := runServer(t, input)

	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("expected isError result, got protocol error: %+v", resp.Error)
	}

	var result MCPCallToolResult
	resultAs(t, resp, &result)
	if !result.IsError {
		t.Fatal("expected isError result")
	}
	if result.Content[0].Text != "User not found: ghost@company.com" {
		t.Errorf("error text = %q", result.Content[0].Text)
	}
}

func TestServer_ToolsCall_UnknownTool(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"no_such_tool"}}` + "\n"
	responses, _ := runServer(t, input)

	resp := responses[0]
	if resp.Error == nil {
		t.Fatal("expected protocol error for unknown tool")
	}
	if resp.Error.Code != JSONRPCInvalidParams {
		t.Errorf("code = %d, want %d", resp.Error.Code, JSONRPCInvalidParams)
	}
}

func TestServer_Ping(t *testing.T) {
	responses, _ := runServer(t, `{"jsonrpc":"2.0","id":7,"method":"ping"}`+"\n")
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("unexpected error: %+v", responses[0].Error)
	}
}

func TestServer_MethodNotFound(t *testing.T) {
	responses, _ := runServer(t, `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`+"\n")

	resp := responses[0]
	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Code != JSONRPCMethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, JSONRPCMethodNotFound)
	}
}

func TestServer_ParseError(t *testing.T) {
	responses, _ := runServer(t, "not json at all\n")

	resp := responses[0]
	if resp.Error == nil {
		t.Fatal("expected parse error")
	}
	if resp.Error.Code != JSONRPCParseError {
		t.Errorf("code = %d, want %d", resp.Error.Code, JSONRPCParseError)
	}
}

func TestServer_InvalidVersion(t *testing.T) {
	responses, _ := runServer(t, `{"jsonrpc":"1.0","id":9,"method":"ping"}`+"\n")

	resp := responses[0]
	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("code = %d, want %d", resp.Error.Code, JSONRPCInvalidRequest)
	}
}

func TestServer_NotificationsSilent(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":10,"method":"ping"}` + "\n"
	responses, _ := runServer(t, input)

	// Only the ping gets a response
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if string(responses[0].ID) != "10" {
		t.Errorf("response id = %s, want 10", responses[0].ID)
	}
}

func TestServer_MultipleRequests(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n" +
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"health"}}` + "\n"
	responses, _ := runServer(t, input)

	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	for i, want := range []string{"1", "2", "3"} {
		if string(responses[i].ID) != want {
			t.Errorf("response[%d] id = %s, want %s", i, responses[i].ID, want)
		}
	}
}
