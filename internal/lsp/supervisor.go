package lsp

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"callmap/internal/config"
	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/paths"
	"callmap/internal/registry"
)

// Constants for supervisor behavior
const (
	// MaxTotalProcesses is the default max number of concurrent server processes
	MaxTotalProcesses = 4

	// QueueSizePerLanguage is the default queue size per language
	QueueSizePerLanguage = 10

	// MaxQueueWaitMs is the default max time to wait for a queue slot
	MaxQueueWaitMs = 200

	// MaxConsecutiveFailures before marking a process as unhealthy
	MaxConsecutiveFailures = 3

	// BaseBackoffMs is the base restart backoff in milliseconds
	BaseBackoffMs = 1000

	// MaxBackoffMs caps the restart backoff
	MaxBackoffMs = 30000

	// HealthCheckInterval is how often to check process health
	HealthCheckInterval = 30 * time.Second

	// ResponseTimeout is how long without a response before a process
	// counts as unhealthy
	ResponseTimeout = 60 * time.Second
)

// Supervisor manages one language server process per language, with
// bounded request queues and health-driven restarts.
type Supervisor struct {
	processes map[string]*ServerProcess
	cfg       *config.Config
	reg       *registry.Registry
	logger    *logging.Logger

	// mu protects processes
	mu sync.RWMutex

	queues   map[string]chan *Request
	queuesMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	maxProcesses   int
	queueSize      int
	maxQueueWaitMs int
	requestTimeout time.Duration
}

// NewSupervisor creates a supervisor and starts its health check loop.
func NewSupervisor(cfg *config.Config, reg *registry.Registry, logger *logging.Logger) *Supervisor {
	maxProcesses := cfg.Lsp.Supervisor.MaxProcesses
	if maxProcesses == 0 {
		maxProcesses = MaxTotalProcesses
	}

	queueSize := cfg.Lsp.Supervisor.QueueSize
	if queueSize == 0 {
		queueSize = QueueSizePerLanguage
	}

	maxQueueWaitMs := cfg.Lsp.Supervisor.MaxQueueWaitMs
	if maxQueueWaitMs == 0 {
		maxQueueWaitMs = MaxQueueWaitMs
	}

	requestTimeout := time.Duration(cfg.Lsp.RequestTimeoutMs) * time.Millisecond
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	s := &Supervisor{
		processes:      make(map[string]*ServerProcess),
		cfg:            cfg,
		reg:            reg,
		logger:         logger,
		queues:         make(map[string]chan *Request),
		done:           make(chan struct{}),
		maxProcesses:   maxProcesses,
		queueSize:      queueSize,
		maxQueueWaitMs: maxQueueWaitMs,
		requestTimeout: requestTimeout,
	}

	s.wg.Add(1)
	go s.healthCheckLoop()

	return s
}

// resolveServer returns the launch spec for a language. Workspace config
// overrides the registry.
func (s *Supervisor) resolveServer(languageID string) (registry.ServerSpec, error) {
	if srv, ok := s.cfg.Lsp.Servers[languageID]; ok {
		return registry.ServerSpec{Command: srv.Command, Args: srv.Args}, nil
	}
	if spec, ok := s.reg.Lookup(languageID); ok {
		return spec, nil
	}
	return registry.ServerSpec{}, errors.New(errors.ServerNotConfigured,
		fmt.Sprintf("no language server configured for %q", languageID))
}

// HasServer reports whether a server could be launched for the language.
func (s *Supervisor) HasServer(languageID string) bool {
	_, err := s.resolveServer(languageID)
	return err == nil
}

// StartServer launches and initializes the server for a language. Already
// healthy servers are left alone.
func (s *Supervisor) StartServer(languageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if proc, exists := s.processes[languageID]; exists {
		if proc.IsHealthy() {
			return nil
		}
		proc.Shutdown()
		delete(s.processes, languageID)
	}

	if len(s.processes) >= s.maxProcesses {
		if err := s.ensureCapacity(); err != nil {
			return errors.Wrap(errors.BackendUnavailable, "cannot start server, at capacity", err)
		}
	}

	spec, err := s.resolveServer(languageID)
	if err != nil {
		return err
	}

	proc := newServerProcess(languageID, s.cfg.WorkspaceRoot, s.requestTimeout)

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = s.cfg.WorkspaceRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	proc.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	proc.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	proc.stderr = stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.BackendUnavailable,
			fmt.Sprintf("failed to start %s", spec.Command), err)
	}

	proc.cmd = cmd

	go proc.readLoop()
	go proc.stderrLoop()

	if err := s.initializeServer(proc); err != nil {
		proc.Shutdown()
		return errors.Wrap(errors.ServerNotReady, "server initialization failed", err)
	}

	s.processes[languageID] = proc

	s.queuesMu.Lock()
	if _, exists := s.queues[languageID]; !exists {
		s.queues[languageID] = make(chan *Request, s.queueSize)
		s.wg.Add(1)
		go s.processQueue(languageID)
	}
	s.queuesMu.Unlock()

	s.logger.Info("Started language server", map[string]interface{}{
		"languageId": languageID,
		"command":    spec.Command,
	})

	return nil
}

// initializeServer runs the initialize handshake. The capabilities we
// announce are exactly what the graph and relocation layers consume:
// hierarchical document symbols, hover, and call hierarchy.
func (s *Supervisor) initializeServer(proc *ServerProcess) error {
	proc.SetState(StateInitializing)

	params := map[string]interface{}{
		"processId": nil,
		"rootUri":   paths.ToFileURI(proc.WorkspaceRoot),
		"capabilities": map[string]interface{}{
			"textDocument": map[string]interface{}{
				"documentSymbol": map[string]interface{}{
					"hierarchicalDocumentSymbolSupport": true,
				},
				"hover": map[string]interface{}{
					"contentFormat": []string{"markdown", "plaintext"},
				},
				"callHierarchy": map[string]interface{}{},
			},
			"workspace": map[string]interface{}{
				"symbol": map[string]interface{}{},
			},
		},
	}

	result, err := proc.sendRequest("initialize", params)
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	var initResult struct {
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := unmarshalResult(result, &initResult); err == nil && initResult.Capabilities != nil {
		proc.SetCapabilities(initResult.Capabilities)
	}

	if err := proc.sendNotification("initialized", map[string]interface{}{}); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	proc.SetState(StateReady)
	proc.RecordSuccess()

	return nil
}

// StopServer stops the server for a language.
func (s *Supervisor) StopServer(languageID string) error {
	s.mu.Lock()
	proc, exists := s.processes[languageID]
	if !exists {
		s.mu.Unlock()
		return errors.New(errors.ServerNotReady,
			fmt.Sprintf("no server running for language %q", languageID))
	}
	delete(s.processes, languageID)
	s.mu.Unlock()

	return proc.Shutdown()
}

// GetProcess returns the process for a language, or nil.
func (s *Supervisor) GetProcess(languageID string) *ServerProcess {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[languageID]
}

// IsReady returns true if the server is running and healthy.
func (s *Supervisor) IsReady(languageID string) bool {
	proc := s.GetProcess(languageID)
	if proc == nil {
		return false
	}
	return proc.IsHealthy()
}

// healthCheckLoop periodically checks process health.
func (s *Supervisor) healthCheckLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkAllProcesses()
		case <-s.done:
			return
		}
	}
}

func (s *Supervisor) checkAllProcesses() {
	s.mu.RLock()
	languageIDs := make([]string, 0, len(s.processes))
	for languageID := range s.processes {
		languageIDs = append(languageIDs, languageID)
	}
	s.mu.RUnlock()

	for _, languageID := range languageIDs {
		if !s.checkHealth(languageID) {
			s.handleCrash(languageID)
		}
	}
}

// Shutdown stops all servers and background goroutines.
func (s *Supervisor) Shutdown() error {
	close(s.done)

	s.mu.Lock()
	for languageID, proc := range s.processes {
		s.logger.Info("Shutting down language server", map[string]interface{}{
			"languageId": languageID,
		})
		proc.Shutdown()
	}
	s.processes = make(map[string]*ServerProcess)
	s.mu.Unlock()

	s.queuesMu.Lock()
	for _, queue := range s.queues {
		close(queue)
	}
	s.queues = make(map[string]chan *Request)
	s.queuesMu.Unlock()

	s.wg.Wait()

	return nil
}

// ProcessStats is a point-in-time view of one managed process.
type ProcessStats struct {
	State               ProcessState `json:"state"`
	Healthy             bool         `json:"healthy"`
	RestartCount        int          `json:"restartCount"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastResponse        time.Time    `json:"lastResponse"`
	QueueSize           int          `json:"queueSize"`
	QueueCapacity       int          `json:"queueCapacity"`
}

// Stats returns per-language process statistics keyed by language ID.
func (s *Supervisor) Stats() map[string]ProcessStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]ProcessStats, len(s.processes))
	for languageID, proc := range s.processes {
		stats[languageID] = ProcessStats{
			State:               proc.GetState(),
			Healthy:             proc.IsHealthy(),
			RestartCount:        proc.GetRestartCount(),
			ConsecutiveFailures: proc.GetConsecutiveFailures(),
			LastResponse:        proc.GetLastResponseTime(),
			QueueSize:           s.getQueueSize(languageID),
			QueueCapacity:       s.queueSize,
		}
	}
	return stats
}
