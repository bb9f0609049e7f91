package lsp

import (
	"io"
	"os/exec"
	"sync"
	"time"
)

// ProcessState represents the lifecycle state of a language server process.
type ProcessState string

const (
	// StateStarting indicates the process is being spawned
	StateStarting ProcessState = "starting"
	// StateInitializing indicates the initialize handshake is in flight
	StateInitializing ProcessState = "initializing"
	// StateReady indicates the process is ready to handle requests
	StateReady ProcessState = "ready"
	// StateUnhealthy indicates the process is not responding properly
	StateUnhealthy ProcessState = "unhealthy"
	// StateDead indicates the process has terminated
	StateDead ProcessState = "dead"
)

// ServerProcess is one running language server and its request plumbing.
type ServerProcess struct {
	// LanguageID is the language this process handles (go, typescript, ...)
	LanguageID string

	// WorkspaceRoot is the directory the server was started in
	WorkspaceRoot string

	// State is the current lifecycle state
	State ProcessState

	// LastResponseTime tracks when we last got a successful response
	LastResponseTime time.Time

	// ConsecutiveFailures counts failed requests in a row
	ConsecutiveFailures int

	// RestartCount tracks how many times this process has been restarted
	RestartCount int

	// NextRestartAt is the earliest time a restart may happen (backoff)
	NextRestartAt time.Time

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// mu protects the mutable state fields above
	mu sync.RWMutex

	// writeMu serializes frames onto stdin
	writeMu sync.Mutex

	nextMessageID   int
	pendingRequests map[int]chan *Message
	requestsMu      sync.RWMutex

	// requestTimeout bounds each sendRequest round trip
	requestTimeout time.Duration

	// done signals shutdown to the read loops
	done chan struct{}

	// capabilities holds the server's advertised capabilities
	capabilities map[string]interface{}
}

// newServerProcess creates a process handle; the command is not started.
func newServerProcess(languageID, workspaceRoot string, requestTimeout time.Duration) *ServerProcess {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &ServerProcess{
		LanguageID:      languageID,
		WorkspaceRoot:   workspaceRoot,
		State:           StateStarting,
		pendingRequests: make(map[int]chan *Message),
		requestTimeout:  requestTimeout,
		done:            make(chan struct{}),
		capabilities:    make(map[string]interface{}),
	}
}

// GetState returns the current state (thread-safe)
func (p *ServerProcess) GetState() ProcessState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State
}

// SetState sets the current state (thread-safe)
func (p *ServerProcess) SetState(state ProcessState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = state
}

// IsHealthy returns true if the process is ready to handle requests
func (p *ServerProcess) IsHealthy() bool {
	return p.GetState() == StateReady
}

// IsDead returns true if the process has terminated
func (p *ServerProcess) IsDead() bool {
	return p.GetState() == StateDead
}

// RecordSuccess records a successful request
func (p *ServerProcess) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LastResponseTime = time.Now()
	p.ConsecutiveFailures = 0
}

// RecordFailure records a failed request
func (p *ServerProcess) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConsecutiveFailures++
}

// GetConsecutiveFailures returns the failure count
func (p *ServerProcess) GetConsecutiveFailures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ConsecutiveFailures
}

// CanRestart returns true once the backoff window has passed
func (p *ServerProcess) CanRestart() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Now().After(p.NextRestartAt)
}

// IncrementRestartCount increments the restart counter
func (p *ServerProcess) IncrementRestartCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RestartCount++
}

// GetRestartCount returns the restart count
func (p *ServerProcess) GetRestartCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.RestartCount
}

// SetNextRestartAt sets when the process can next be restarted
func (p *ServerProcess) SetNextRestartAt(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NextRestartAt = t
}

// GetLastResponseTime returns the last successful response time
func (p *ServerProcess) GetLastResponseTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.LastResponseTime
}

// GetCapabilities returns the server capabilities
func (p *ServerProcess) GetCapabilities() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.capabilities
}

// SetCapabilities sets the server capabilities
func (p *ServerProcess) SetCapabilities(caps map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capabilities = caps
}

// SupportsCallHierarchy reports whether the server advertised
// callHierarchyProvider during initialization.
func (p *ServerProcess) SupportsCallHierarchy() bool {
	return hasCapability(p.GetCapabilities(), "callHierarchyProvider")
}

// hasCapability handles the two ways servers advertise support: a bare
// boolean or an options object.
func hasCapability(caps map[string]interface{}, name string) bool {
	val, ok := caps[name]
	if !ok {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	if _, ok := val.(map[string]interface{}); ok {
		return true
	}
	return false
}

// Shutdown tears the process down: best-effort protocol goodbye, close
// streams, kill what remains.
func (p *ServerProcess) Shutdown() error {
	close(p.done)

	if p.stdin != nil {
		p.sendNotification("shutdown", nil)
		p.sendNotification("exit", nil)
	}

	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.stdout != nil {
		p.stdout.Close()
	}
	if p.stderr != nil {
		p.stderr.Close()
	}

	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}

	p.SetState(StateDead)
	return nil
}
