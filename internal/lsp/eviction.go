package lsp

import (
	"fmt"
	"time"
)

// ensureCapacity makes room for a new process by evicting the least
// recently used one. Called with s.mu held.
func (s *Supervisor) ensureCapacity() error {
	if len(s.processes) < s.maxProcesses {
		return nil
	}

	lruProc := s.findLRUProcess()
	if lruProc == nil {
		return fmt.Errorf("no process available for eviction")
	}

	s.logger.Info("Evicting language server to make room", map[string]interface{}{
		"languageId":    lruProc.LanguageID,
		"timeSinceUsed": time.Since(lruProc.GetLastResponseTime()).String(),
	})

	return s.shutdownLocked(lruProc.LanguageID)
}

// findLRUProcess finds the healthy process with the oldest last response.
// Called with s.mu held.
func (s *Supervisor) findLRUProcess() *ServerProcess {
	var lruProc *ServerProcess
	var oldestTime time.Time

	for _, proc := range s.processes {
		lastResponse := proc.GetLastResponseTime()

		// Never-used processes may still be initializing.
		if lastResponse.IsZero() {
			continue
		}
		if !proc.IsHealthy() {
			continue
		}

		if lruProc == nil || lastResponse.Before(oldestTime) {
			lruProc = proc
			oldestTime = lastResponse
		}
	}

	if lruProc == nil {
		for _, proc := range s.processes {
			return proc
		}
	}

	return lruProc
}

// shutdownLocked removes a process from the supervisor and tears it down
// in the background. Called with s.mu held.
func (s *Supervisor) shutdownLocked(languageID string) error {
	proc, exists := s.processes[languageID]
	if !exists {
		return fmt.Errorf("no process found for language %q", languageID)
	}

	delete(s.processes, languageID)

	go s.clearQueue(languageID)
	go func() {
		if err := proc.Shutdown(); err != nil {
			s.logger.Error("Error shutting down language server", map[string]interface{}{
				"languageId": languageID,
				"error":      err.Error(),
			})
		}
	}()

	return nil
}
