package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"callmap/internal/config"
	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/registry"
)

func newTestSupervisor(t *testing.T, cfg *config.Config) *Supervisor {
	t.Helper()
	s := NewSupervisor(cfg, registry.Builtin(), logging.Discard())
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestSupervisorCreation(t *testing.T) {
	s := newTestSupervisor(t, config.DefaultConfig())

	if got := len(s.Stats()); got != 0 {
		t.Errorf("expected 0 processes, got %d", got)
	}
	if s.IsReady("go") {
		t.Error("go server should not be ready before starting")
	}
}

func TestResolveServerPrecedence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Lsp.Servers = map[string]config.LspServerCfg{
		"go": {Command: "my-gopls", Args: []string{"-custom"}},
	}
	s := newTestSupervisor(t, cfg)

	spec, err := s.resolveServer("go")
	if err != nil {
		t.Fatalf("resolveServer: %v", err)
	}
	if spec.Command != "my-gopls" {
		t.Errorf("config override lost: command = %q", spec.Command)
	}

	// Registry fallback for languages the config does not name.
	spec, err = s.resolveServer("python")
	if err != nil {
		t.Fatalf("resolveServer(python): %v", err)
	}
	if spec.Command != "pyright-langserver" {
		t.Errorf("registry fallback: command = %q", spec.Command)
	}

	_, err = s.resolveServer("cobol")
	if err == nil {
		t.Fatal("expected error for unconfigured language")
	}
	if !errors.IsCode(err, errors.ServerNotConfigured) {
		t.Errorf("error code = %v, want %v", errors.CodeOf(err), errors.ServerNotConfigured)
	}
}

func TestProcessLifecycle(t *testing.T) {
	proc := newServerProcess("typescript", t.TempDir(), time.Second)

	if proc.GetState() != StateStarting {
		t.Errorf("initial state = %v, want %v", proc.GetState(), StateStarting)
	}

	proc.SetState(StateInitializing)
	if proc.GetState() != StateInitializing {
		t.Errorf("state = %v, want %v", proc.GetState(), StateInitializing)
	}

	proc.SetState(StateReady)
	if !proc.IsHealthy() {
		t.Error("ready process should be healthy")
	}

	proc.RecordFailure()
	if proc.GetConsecutiveFailures() != 1 {
		t.Errorf("failures = %d, want 1", proc.GetConsecutiveFailures())
	}

	proc.RecordSuccess()
	if proc.GetConsecutiveFailures() != 0 {
		t.Errorf("failures after success = %d, want 0", proc.GetConsecutiveFailures())
	}

	_ = proc.Shutdown()
	if !proc.IsDead() {
		t.Error("process should be dead after shutdown")
	}
}

func TestComputeBackoff(t *testing.T) {
	tests := []struct {
		restartCount int
		want         time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := computeBackoff(tt.restartCount); got != tt.want {
			t.Errorf("computeBackoff(%d) = %v, want %v", tt.restartCount, got, tt.want)
		}
	}
}

func TestCapabilityDetection(t *testing.T) {
	proc := newServerProcess("go", t.TempDir(), time.Second)

	proc.SetCapabilities(map[string]interface{}{
		"callHierarchyProvider": true,
		"hoverProvider":         map[string]interface{}{},
		"definitionProvider":    false,
	})

	if !proc.SupportsCallHierarchy() {
		t.Error("callHierarchyProvider=true not detected")
	}
	if !hasCapability(proc.GetCapabilities(), "hoverProvider") {
		t.Error("object-valued capability not detected")
	}
	if hasCapability(proc.GetCapabilities(), "definitionProvider") {
		t.Error("false capability reported as supported")
	}
	if hasCapability(proc.GetCapabilities(), "renameProvider") {
		t.Error("absent capability reported as supported")
	}
}

func TestReadMessageFraming(t *testing.T) {
	payload := `{"jsonrpc":"2.0","id":1,"result":{"capabilities":{}}}`
	framed := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(payload), payload)

	msg, err := readMessage(bufio.NewReader(strings.NewReader(framed)))
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if msg.ID == nil || *msg.ID != 1 {
		t.Errorf("id = %v, want 1", msg.ID)
	}
	if len(msg.Result) == 0 {
		t.Error("result missing")
	}
}

func TestReadMessageMissingContentLength(t *testing.T) {
	framed := "X-Other: 1\r\n\r\n{}"
	_, err := readMessage(bufio.NewReader(strings.NewReader(framed)))
	if err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestWriteMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	proc := newServerProcess("go", t.TempDir(), time.Second)
	proc.stdin = nopWriteCloser{&buf}

	id := 7
	err := proc.writeMessage(&Message{Jsonrpc: "2.0", ID: &id, Method: "textDocument/hover"})
	if err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "Content-Length: ") {
		t.Fatalf("missing header: %q", out)
	}

	// The frame must parse back into the same message.
	msg, err := readMessage(bufio.NewReader(strings.NewReader(out)))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if msg.Method != "textDocument/hover" || msg.ID == nil || *msg.ID != 7 {
		t.Errorf("round trip lost fields: %+v", msg)
	}
}

// TestSendRequestResponse wires a fake server onto pipes and runs one full
// request/response round trip through the read loop.
func TestSendRequestResponse(t *testing.T) {
	proc := newServerProcess("go", t.TempDir(), 5*time.Second)

	clientToServer, stdin := io.Pipe()
	stdout, serverToClient := io.Pipe()
	proc.stdin = stdin
	proc.stdout = stdout

	go proc.readLoop()
	defer proc.Shutdown()

	go func() {
		reader := bufio.NewReader(clientToServer)
		req, err := readMessage(reader)
		if err != nil {
			return
		}
		resp := Message{
			Jsonrpc: "2.0",
			ID:      req.ID,
			Result:  json.RawMessage(`[{"name":"add","kind":12,"uri":"file:///a.go"}]`),
		}
		data, _ := json.Marshal(resp)
		fmt.Fprintf(serverToClient, "Content-Length: %d\r\n\r\n%s", len(data), data)
		// Keep draining so shutdown notifications do not block the pipe.
		io.Copy(io.Discard, clientToServer)
	}()

	raw, err := proc.sendRequest("textDocument/prepareCallHierarchy", map[string]interface{}{})
	if err != nil {
		t.Fatalf("sendRequest: %v", err)
	}

	var items []CallHierarchyItem
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(items) != 1 || items[0].Name != "add" || items[0].Kind != KindFunction {
		t.Errorf("items = %+v", items)
	}
}

func TestSendRequestServerError(t *testing.T) {
	proc := newServerProcess("go", t.TempDir(), 5*time.Second)

	clientToServer, stdin := io.Pipe()
	stdout, serverToClient := io.Pipe()
	proc.stdin = stdin
	proc.stdout = stdout

	go proc.readLoop()
	defer proc.Shutdown()

	go func() {
		reader := bufio.NewReader(clientToServer)
		req, err := readMessage(reader)
		if err != nil {
			return
		}
		resp := Message{
			Jsonrpc: "2.0",
			ID:      req.ID,
			Error:   &ResponseError{Code: MethodNotFound, Message: "unsupported"},
		}
		data, _ := json.Marshal(resp)
		fmt.Fprintf(serverToClient, "Content-Length: %d\r\n\r\n%s", len(data), data)
		io.Copy(io.Discard, clientToServer)
	}()

	_, err := proc.sendRequest("callHierarchy/incomingCalls", nil)
	if err == nil {
		t.Fatal("expected error from server error response")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error = %v, want server message included", err)
	}
}
