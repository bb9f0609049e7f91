package lsp

import (
	"fmt"
	"time"

	"callmap/internal/errors"
)

// handleCrash recovers a crashed or unhealthy process.
func (s *Supervisor) handleCrash(languageID string) {
	s.mu.Lock()
	proc, exists := s.processes[languageID]
	if !exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Error("Language server crashed or unhealthy", map[string]interface{}{
		"languageId":          languageID,
		"restartCount":        proc.GetRestartCount(),
		"consecutiveFailures": proc.GetConsecutiveFailures(),
	})

	proc.SetState(StateDead)

	s.clearQueue(languageID)

	if err := s.restart(languageID); err != nil {
		s.logger.Error("Failed to restart language server", map[string]interface{}{
			"languageId": languageID,
			"error":      err.Error(),
		})
	}
}

// restart restarts a process, honoring exponential backoff.
func (s *Supervisor) restart(languageID string) error {
	s.mu.Lock()
	proc, exists := s.processes[languageID]
	if !exists {
		s.mu.Unlock()
		return errors.New(errors.ServerNotReady,
			fmt.Sprintf("no process found for language %q", languageID))
	}

	if !proc.CanRestart() {
		s.mu.Unlock()
		waitTime := time.Until(proc.NextRestartAt)
		s.logger.Info("Language server restart delayed by backoff", map[string]interface{}{
			"languageId": languageID,
			"waitTime":   waitTime.String(),
		})
		return errors.New(errors.BackendUnavailable,
			fmt.Sprintf("language server in backoff, retry in %v", waitTime.Round(time.Second)))
	}

	proc.IncrementRestartCount()
	restartCount := proc.GetRestartCount()

	backoff := computeBackoff(restartCount)
	proc.SetNextRestartAt(time.Now().Add(backoff))

	delete(s.processes, languageID)
	s.mu.Unlock()

	_ = proc.Shutdown()

	s.logger.Info("Restarting language server", map[string]interface{}{
		"languageId":   languageID,
		"restartCount": restartCount,
		"backoff":      backoff.String(),
	})

	return s.StartServer(languageID)
}

// checkHealth reports whether a process is fit to take requests, marking
// it unhealthy or dead as a side effect when it is not.
func (s *Supervisor) checkHealth(languageID string) bool {
	proc := s.GetProcess(languageID)
	if proc == nil {
		return false
	}

	state := proc.GetState()
	if state == StateDead {
		return false
	}

	if state == StateReady {
		lastResponse := proc.GetLastResponseTime()
		if !lastResponse.IsZero() && time.Since(lastResponse) > ResponseTimeout {
			s.logger.Warn("Language server not responding", map[string]interface{}{
				"languageId":        languageID,
				"timeSinceResponse": time.Since(lastResponse).String(),
			})
			proc.SetState(StateUnhealthy)
			return false
		}
	}

	if proc.GetConsecutiveFailures() >= MaxConsecutiveFailures {
		s.logger.Warn("Language server has too many failures", map[string]interface{}{
			"languageId":          languageID,
			"consecutiveFailures": proc.GetConsecutiveFailures(),
		})
		proc.SetState(StateUnhealthy)
		return false
	}

	if proc.cmd != nil && proc.cmd.Process != nil {
		// Signal 0 probes process existence without delivering anything.
		if err := proc.cmd.Process.Signal(nil); err != nil {
			s.logger.Warn("Language server process died unexpectedly", map[string]interface{}{
				"languageId": languageID,
				"error":      err.Error(),
			})
			proc.SetState(StateDead)
			return false
		}
	}

	return true
}

// computeBackoff doubles the base delay per restart, capped at MaxBackoffMs.
func computeBackoff(restartCount int) time.Duration {
	if restartCount <= 0 {
		return time.Duration(BaseBackoffMs) * time.Millisecond
	}

	backoffMs := BaseBackoffMs
	for i := 1; i < restartCount && backoffMs < MaxBackoffMs; i++ {
		backoffMs *= 2
	}
	if backoffMs > MaxBackoffMs {
		backoffMs = MaxBackoffMs
	}

	return time.Duration(backoffMs) * time.Millisecond
}

// ForceRestart restarts a language server immediately, bypassing backoff.
func (s *Supervisor) ForceRestart(languageID string) error {
	s.mu.Lock()
	proc, exists := s.processes[languageID]
	if exists {
		proc.SetNextRestartAt(time.Now())
		delete(s.processes, languageID)
	}
	s.mu.Unlock()

	if exists {
		_ = proc.Shutdown()
	}

	s.logger.Info("Force restarting language server", map[string]interface{}{
		"languageId": languageID,
	})

	return s.StartServer(languageID)
}
