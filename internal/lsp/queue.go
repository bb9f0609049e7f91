package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callmap/internal/errors"
)

// Request is one queued protocol request.
type Request struct {
	// Method is the protocol method name
	Method string

	// Params are the request parameters
	Params interface{}

	// Response carries the result back to the caller
	Response chan *Response

	// Context for cancellation
	Context context.Context

	// CreatedAt tracks when the request was created
	CreatedAt time.Time
}

// Response is the outcome of one request.
type Response struct {
	Result   json.RawMessage
	Error    error
	Duration time.Duration
}

// NewRequest creates a request with a buffered response channel.
func NewRequest(ctx context.Context, method string, params interface{}) *Request {
	return &Request{
		Method:    method,
		Params:    params,
		Response:  make(chan *Response, 1),
		Context:   ctx,
		CreatedAt: time.Now(),
	}
}

// Query sends a request to the language's server, starting it on demand,
// and waits for the response.
func (s *Supervisor) Query(ctx context.Context, languageID, method string, params interface{}) (json.RawMessage, error) {
	if !s.cfg.Lsp.Enabled {
		return nil, errors.New(errors.BackendUnavailable, "language server backend is disabled")
	}
	if !s.HasServer(languageID) {
		return nil, errors.New(errors.ServerNotConfigured,
			fmt.Sprintf("no language server configured for %q", languageID))
	}

	if !s.IsReady(languageID) {
		if err := s.StartServer(languageID); err != nil {
			return nil, err
		}
	}

	req := NewRequest(ctx, method, params)

	if err := s.enqueue(languageID, req); err != nil {
		return nil, err
	}

	select {
	case resp := <-req.Response:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, errors.Wrap(errors.Timeout, "language server query cancelled", ctx.Err())
	}
}

// enqueue adds a request to the language's queue, creating the queue and
// its processor on first use.
func (s *Supervisor) enqueue(languageID string, req *Request) error {
	s.queuesMu.RLock()
	queue, exists := s.queues[languageID]
	s.queuesMu.RUnlock()

	if !exists {
		s.queuesMu.Lock()
		queue, exists = s.queues[languageID]
		if !exists {
			queue = make(chan *Request, s.queueSize)
			s.queues[languageID] = queue

			s.wg.Add(1)
			go s.processQueue(languageID)
		}
		s.queuesMu.Unlock()
	}

	select {
	case queue <- req:
		return nil
	case <-time.After(time.Duration(s.maxQueueWaitMs) * time.Millisecond):
		return errors.New(errors.BackendUnavailable,
			fmt.Sprintf("request queue full for language %q", languageID))
	case <-req.Context.Done():
		return errors.Wrap(errors.Timeout, "request cancelled before enqueuing", req.Context.Err())
	}
}

// processQueue serializes requests for one language onto its process.
func (s *Supervisor) processQueue(languageID string) {
	defer s.wg.Done()

	s.queuesMu.RLock()
	queue := s.queues[languageID]
	s.queuesMu.RUnlock()

	for {
		select {
		case req, ok := <-queue:
			if !ok {
				return
			}

			select {
			case <-req.Context.Done():
				req.Response <- &Response{
					Error: errors.Wrap(errors.Timeout, "request cancelled", req.Context.Err()),
				}
				continue
			default:
			}

			resp := s.executeRequest(languageID, req)

			select {
			case req.Response <- resp:
			default:
				s.logger.Warn("Failed to deliver language server response", map[string]interface{}{
					"languageId": languageID,
					"method":     req.Method,
				})
			}

		case <-s.done:
			return
		}
	}
}

// executeRequest runs one request against the language's process and
// records success or failure for health tracking.
func (s *Supervisor) executeRequest(languageID string, req *Request) *Response {
	startTime := time.Now()

	proc := s.GetProcess(languageID)
	if proc == nil || !proc.IsHealthy() {
		return &Response{
			Error: errors.New(errors.ServerNotReady,
				fmt.Sprintf("language server not available for %q", languageID)),
			Duration: time.Since(startTime),
		}
	}

	result, err := proc.sendRequest(req.Method, req.Params)

	resp := &Response{
		Result:   result,
		Error:    err,
		Duration: time.Since(startTime),
	}

	if err != nil {
		proc.RecordFailure()
		s.logger.Error("Language server request failed", map[string]interface{}{
			"languageId": languageID,
			"method":     req.Method,
			"error":      err.Error(),
		})
	} else {
		proc.RecordSuccess()
		s.logger.Debug("Language server request succeeded", map[string]interface{}{
			"languageId": languageID,
			"method":     req.Method,
			"durationMs": resp.Duration.Milliseconds(),
		})
	}

	return resp
}

// getQueueSize returns the current queue depth for a language.
func (s *Supervisor) getQueueSize(languageID string) int {
	s.queuesMu.RLock()
	defer s.queuesMu.RUnlock()

	queue, exists := s.queues[languageID]
	if !exists {
		return 0
	}
	return len(queue)
}

// clearQueue fails all pending requests for a language, used when its
// process is being restarted.
func (s *Supervisor) clearQueue(languageID string) {
	s.queuesMu.RLock()
	queue, exists := s.queues[languageID]
	s.queuesMu.RUnlock()

	if !exists {
		return
	}

	drained := 0
	for {
		select {
		case req := <-queue:
			req.Response <- &Response{
				Error: errors.New(errors.ServerNotReady, "language server restarting"),
			}
			drained++
		default:
			if drained > 0 {
				s.logger.Info("Cleared language server queue", map[string]interface{}{
					"languageId": languageID,
					"count":      drained,
				})
			}
			return
		}
	}
}
