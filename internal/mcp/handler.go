package mcp

import (
	"encoding/json"
	"fmt"

	"callmap/internal/envelope"
	"callmap/internal/errors"
)

// ServerCapabilities is the capability set announced on initialize.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies this server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the response to the initialize request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// handleMessage processes one incoming message. Notifications return
// nil; requests return a response to write.
func (s *Server) handleMessage(msg *Message) *Message {
	if msg.IsRequest() {
		return s.handleRequest(msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

func (s *Server) handleRequest(msg *Message) *Message {
	s.logger.Debug("Handling request", map[string]interface{}{
		"method": msg.Method,
		"id":     msg.Id,
	})

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(msg))
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": s.ToolDefinitions(),
		})
	case "tools/call":
		return s.handleCallTool(msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized", nil)
	default:
		s.logger.Debug("Ignoring notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}

func (s *Server) handleInitialize(msg *Message) *InitializeResult {
	if params, ok := msg.Params.(map[string]interface{}); ok {
		s.logger.Info("MCP server initializing", map[string]interface{}{
			"clientInfo": params["clientInfo"],
		})
	}

	return &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    "callmap",
			Version: s.version,
		},
	}
}

// handleCallTool runs a tool and wraps its envelope in MCP content.
// Tool-level failures become error envelopes, not JSON-RPC errors, so
// clients always get the same response shape.
func (s *Server) handleCallTool(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}
	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Missing tool name", nil)
	}
	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Unknown tool: %s", toolName), nil)
	}

	s.logger.Info("Calling tool", map[string]interface{}{
		"tool": toolName,
	})

	resp, err := handler(toolParams)
	if err != nil {
		resp = errorEnvelope(err)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, "Failed to marshal response: "+err.Error(), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(payload),
			},
		},
	})
}

// errorEnvelope wraps a tool failure. The error code travels as a
// coded warning so clients can branch without parsing the message.
func errorEnvelope(err error) *envelope.Response {
	return envelope.New().
		Error(err.Error()).
		WarningWithCode(string(errors.CodeOf(err)), "tool call failed").
		Build()
}
