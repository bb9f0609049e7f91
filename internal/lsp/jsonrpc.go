package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Message is a JSON-RPC 2.0 message. Result stays raw so callers can
// decode into typed protocol structs.
type Message struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  interface{}     `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error object.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// sendRequest sends a request and blocks for the response or timeout.
func (p *ServerProcess) sendRequest(method string, params interface{}) (json.RawMessage, error) {
	p.requestsMu.Lock()
	id := p.nextMessageID
	p.nextMessageID++

	respChan := make(chan *Message, 1)
	p.pendingRequests[id] = respChan
	p.requestsMu.Unlock()

	msg := Message{
		Jsonrpc: "2.0",
		ID:      &id,
		Method:  method,
		Params:  params,
	}

	if err := p.writeMessage(&msg); err != nil {
		p.requestsMu.Lock()
		delete(p.pendingRequests, id)
		p.requestsMu.Unlock()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, fmt.Errorf("process exited before responding")
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("server error [%d]: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-time.After(p.requestTimeout):
		p.requestsMu.Lock()
		delete(p.pendingRequests, id)
		p.requestsMu.Unlock()
		return nil, fmt.Errorf("request timeout after %s", p.requestTimeout)
	case <-p.done:
		return nil, fmt.Errorf("process shutting down")
	}
}

// sendNotification sends a notification; no response is expected.
func (p *ServerProcess) sendNotification(method string, params interface{}) error {
	msg := Message{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
	}
	return p.writeMessage(&msg)
}

// writeMessage frames a message with a Content-Length header and writes
// it to the server's stdin.
func (p *ServerProcess) writeMessage(msg *Message) error {
	if p.stdin == nil {
		return fmt.Errorf("stdin not available")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := p.stdin.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// readLoop reads server messages until stdout closes.
func (p *ServerProcess) readLoop() {
	defer func() {
		p.SetState(StateDead)

		p.requestsMu.Lock()
		for _, ch := range p.pendingRequests {
			close(ch)
		}
		p.pendingRequests = make(map[int]chan *Message)
		p.requestsMu.Unlock()
	}()

	reader := bufio.NewReader(p.stdout)

	for {
		select {
		case <-p.done:
			return
		default:
			msg, err := readMessage(reader)
			if err != nil {
				if err == io.EOF {
					return
				}
				// Malformed frame; resynchronize on the next header.
				continue
			}
			p.handleMessage(msg)
		}
	}
}

// readMessage reads one Content-Length framed message.
func readMessage(reader *bufio.Reader) (*Message, error) {
	headers := make(map[string]string)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	contentLengthStr, ok := headers["Content-Length"]
	if !ok {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	contentLength, err := strconv.Atoi(contentLengthStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Content-Length: %w", err)
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, content); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(content, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// handleMessage routes a response to its waiting request, or handles a
// server-initiated message.
func (p *ServerProcess) handleMessage(msg *Message) {
	if msg.ID != nil && msg.Method == "" {
		p.requestsMu.Lock()
		respChan, ok := p.pendingRequests[*msg.ID]
		if ok {
			delete(p.pendingRequests, *msg.ID)
		}
		p.requestsMu.Unlock()

		if ok {
			select {
			case respChan <- msg:
			default:
			}
		}
		return
	}

	if msg.Method != "" {
		p.handleServerMessage(msg)
	}
}

// handleServerMessage answers server-initiated traffic. Notifications are
// dropped; requests get an empty result so the server does not stall.
func (p *ServerProcess) handleServerMessage(msg *Message) {
	switch msg.Method {
	case "window/logMessage", "textDocument/publishDiagnostics", "$/progress":
		// Routine chatter during indexing.
	case "workspace/configuration", "client/registerCapability", "window/workDoneProgress/create":
		// Server requests we fulfill with an empty response below.
	}

	if msg.ID != nil {
		resp := Message{
			Jsonrpc: "2.0",
			ID:      msg.ID,
			Result:  json.RawMessage("null"),
		}
		_ = p.writeMessage(&resp)
	}
}

// stderrLoop drains stderr so the child cannot block on a full pipe.
func (p *ServerProcess) stderrLoop() {
	if p.stderr == nil {
		return
	}

	buf := make([]byte, 4096)
	for {
		select {
		case <-p.done:
			return
		default:
			n, err := p.stderr.Read(buf)
			if err != nil {
				return
			}
			_ = buf[:n]
		}
	}
}
